// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package websocket

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/teamlink/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates and starts a new hub for testing.
func setupHub(t *testing.T, buffer int) *Hub {
	t.Helper()
	hub := NewHub(buffer)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// createTestClient creates a client without a network connection.
func createTestClient(hub *Hub, userID int64, buffer int) *Client {
	c := NewClient(hub, nil, userID)
	c.send = make(chan Message, buffer)
	return c
}

// expectMessage reads the next message for client or fails.
func expectMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func subscribe(t *testing.T, hub *Hub, c *Client, topic string) {
	t.Helper()
	hub.Subscribe(c, topic)
	if msg := expectMessage(t, c); msg.Type != MessageTypeSubscribed || msg.Topic != topic {
		t.Fatalf("subscribe reply = %+v", msg)
	}
}

type listenerEvent struct {
	userID    int64
	topic     string
	subscribe bool
}

type recordingListener struct {
	mu     sync.Mutex
	events []listenerEvent
}

func (l *recordingListener) OnSubscribe(userID int64, topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, listenerEvent{userID, topic, true})
}

func (l *recordingListener) OnUnsubscribe(userID int64, topic string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, listenerEvent{userID, topic, false})
}

func (l *recordingListener) snapshot() []listenerEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]listenerEvent(nil), l.events...)
}

func TestHub_SendToTopicReachesSubscribersOnly(t *testing.T) {
	hub := setupHub(t, 16)
	a := createTestClient(hub, 1, 16)
	b := createTestClient(hub, 2, 16)
	hub.Register <- a
	hub.Register <- b

	subscribe(t, hub, a, "/topic/chatroom/42")

	if err := hub.SendToTopic("/topic/chatroom/42", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("SendToTopic() error = %v", err)
	}

	msg := expectMessage(t, a)
	if msg.Type != MessageTypeMessage || msg.Topic != "/topic/chatroom/42" {
		t.Errorf("message = %+v", msg)
	}

	select {
	case msg := <-b.send:
		t.Errorf("unsubscribed client received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}

	if n := hub.TopicSubscriberCount("/topic/chatroom/42"); n != 1 {
		t.Errorf("TopicSubscriberCount() = %d, want 1", n)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := setupHub(t, 16)
	a := createTestClient(hub, 1, 16)
	hub.Register <- a
	subscribe(t, hub, a, "/topic/dm/1_2")

	hub.Unsubscribe(a, "/topic/dm/1_2")
	if msg := expectMessage(t, a); msg.Type != MessageTypeUnsubscribed {
		t.Fatalf("unsubscribe reply = %+v", msg)
	}
	if n := hub.TopicSubscriberCount("/topic/dm/1_2"); n != 0 {
		t.Errorf("TopicSubscriberCount() = %d after unsubscribe", n)
	}
}

func TestHub_ListenerSeesSubscriptionLifecycle(t *testing.T) {
	hub := NewHub(16)
	listener := &recordingListener{}
	hub.AddListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	a := createTestClient(hub, 5, 16)
	hub.Register <- a
	subscribe(t, hub, a, "/topic/dm/5_8")
	subscribe(t, hub, a, "/topic/dm/5_8")
	hub.Unregister <- a

	deadline := time.Now().Add(time.Second)
	for len(listener.snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	events := listener.snapshot()
	want := []listenerEvent{{5, "/topic/dm/5_8", true}, {5, "/topic/dm/5_8", false}}
	if len(events) != len(want) {
		t.Fatalf("listener events = %+v, want %+v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestHub_AuthorizerRejects(t *testing.T) {
	hub := NewHub(16)
	hub.SetAuthorizer(func(userID int64, topic string) bool { return userID == 1 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	intruder := createTestClient(hub, 2, 16)
	hub.Register <- intruder
	hub.Subscribe(intruder, "/topic/dm/1_3")

	if msg := expectMessage(t, intruder); msg.Type != MessageTypeError {
		t.Errorf("reply = %+v, want error", msg)
	}
	if n := hub.TopicSubscriberCount("/topic/dm/1_3"); n != 0 {
		t.Errorf("rejected client subscribed (count %d)", n)
	}
}

func TestHub_SlowClientDisconnected(t *testing.T) {
	hub := setupHub(t, 16)
	slow := createTestClient(hub, 1, 1)
	fast := createTestClient(hub, 2, 16)
	hub.Register <- slow
	hub.Register <- fast
	subscribe(t, hub, slow, "/topic/chatroom/1")
	subscribe(t, hub, fast, "/topic/chatroom/1")

	for i := 0; i < 3; i++ {
		_ = hub.SendToTopic("/topic/chatroom/1", i)
	}
	for i := 0; i < 3; i++ {
		expectMessage(t, fast)
	}

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 1 {
		t.Fatalf("GetClientCount() = %d, want slow client removed", hub.GetClientCount())
	}

	// Drain what was buffered; the channel must then be closed.
	for range slow.send {
	}
}

func TestHub_SendToTopicQueueFull(t *testing.T) {
	// Hub not running: nothing drains the queue.
	hub := NewHub(2)
	for i := 0; i < 2; i++ {
		if err := hub.SendToTopic("/topic/x", i); err != nil {
			t.Fatalf("SendToTopic(%d) error = %v", i, err)
		}
	}
	if err := hub.SendToTopic("/topic/x", 3); !errors.Is(err, ErrBroadcastQueueFull) {
		t.Errorf("SendToTopic() = %v, want ErrBroadcastQueueFull", err)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(16)
	listener := &recordingListener{}
	hub.AddListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	a := createTestClient(hub, 1, 16)
	hub.Register <- a
	subscribe(t, hub, a, "/topic/dm/1_2")

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext() = %v, want context.Canceled", err)
	}
	if _, ok := <-a.send; ok {
		t.Error("client send channel still open after shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after shutdown", hub.GetClientCount())
	}
	events := listener.snapshot()
	if len(events) != 2 || events[1].subscribe {
		t.Errorf("shutdown did not report unsubscribe: %+v", events)
	}
}

func TestGetShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled: got %s", got)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline: got %s", got)
	}
}

func TestHub_LifecycleCallsAfterShutdown(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(stopped)
	}()

	live := createTestClient(hub, 1, 4)
	if !hub.Attach(live) {
		t.Fatal("Attach() = false on a running hub")
	}

	cancel()
	<-stopped
	select {
	case <-hub.Done():
	default:
		t.Fatal("Done() not closed after shutdown")
	}

	late := createTestClient(hub, 2, 4)
	returned := make(chan bool, 1)
	go func() {
		attached := hub.Attach(late)
		hub.Subscribe(late, "/topic/chatroom/1")
		hub.Unsubscribe(late, "/topic/chatroom/1")
		hub.Detach(live)
		returned <- attached
	}()

	select {
	case attached := <-returned:
		if attached {
			t.Error("Attach() = true on a stopped hub")
		}
	case <-time.After(time.Second):
		t.Fatal("lifecycle calls blocked on a stopped hub")
	}
}
