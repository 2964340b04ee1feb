// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := &websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ServeWS(hub, upgrader, w, r, userID); err != nil {
			t.Logf("ServeWS() error = %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestServeWS_SubscribeAndReceive(t *testing.T) {
	hub := setupHub(t, 16)
	conn := dialTestServer(t, hub, 3)

	if err := conn.WriteJSON(Message{Type: MessageTypeSubscribe, Topic: "/topic/dm/3_9"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readFrame(t, conn); msg.Type != MessageTypeSubscribed {
		t.Fatalf("reply = %+v", msg)
	}

	if err := hub.SendToTopic("/topic/dm/3_9", map[string]interface{}{"content": "hello"}); err != nil {
		t.Fatalf("SendToTopic() error = %v", err)
	}
	msg := readFrame(t, conn)
	if msg.Type != MessageTypeMessage || msg.Topic != "/topic/dm/3_9" {
		t.Fatalf("frame = %+v", msg)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok || data["content"] != "hello" {
		t.Errorf("data = %#v", msg.Data)
	}
}

func TestServeWS_PingAndInvalidFrames(t *testing.T) {
	hub := setupHub(t, 16)
	conn := dialTestServer(t, hub, 1)

	_ = conn.WriteJSON(Message{Type: MessageTypePing})
	if msg := readFrame(t, conn); msg.Type != MessageTypePong {
		t.Errorf("ping reply = %+v", msg)
	}

	_ = conn.WriteJSON(Message{Type: MessageTypeSubscribe, Topic: "not-a-topic"})
	if msg := readFrame(t, conn); msg.Type != MessageTypeError {
		t.Errorf("invalid topic reply = %+v", msg)
	}

	_ = conn.WriteJSON(Message{Type: "shout"})
	if msg := readFrame(t, conn); msg.Type != MessageTypeError {
		t.Errorf("unknown frame reply = %+v", msg)
	}
}

func TestServeWS_DisconnectUnregisters(t *testing.T) {
	hub := setupHub(t, 16)
	conn := dialTestServer(t, hub, 1)

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = conn.Close()

	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after client closed", hub.GetClientCount())
	}
}

func TestValidateTopic(t *testing.T) {
	tests := map[string]bool{
		"/topic/chatroom/1":                  true,
		"/topic/":                            true,
		"/queue/x":                           false,
		"":                                   false,
		"/topic/" + strings.Repeat("a", 300): false,
	}
	for topic, ok := range tests {
		if err := validateTopic(topic); (err == nil) != ok {
			t.Errorf("validateTopic(%q) = %v, want ok=%v", topic, err, ok)
		}
	}
}
