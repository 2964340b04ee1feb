// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package websocket

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/teamlink/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 256
	maxTopicLength = 256

	// Inbound frame budget per client.
	frameRate  = 20
	frameBurst = 40
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id     uint64
	userID int64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message

	// topics is owned by the hub goroutine.
	topics  map[string]struct{}
	limiter *rate.Limiter
}

// NewClient creates a client for an authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		userID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		topics:  make(map[string]struct{}),
		limiter: rate.NewLimiter(rate.Limit(frameRate), frameBurst),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 { return c.id }

// UserID returns the user the client was opened for.
func (c *Client) UserID() int64 { return c.userID }

// readPump handles inbound frames until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if !c.limiter.Allow() {
			c.trySend(Message{Type: MessageTypeError, Data: "rate limit exceeded"})
			continue
		}
		c.handleFrame(msg)
	}
}

func (c *Client) handleFrame(msg Message) {
	switch msg.Type {
	case MessageTypePing:
		c.trySend(Message{Type: MessageTypePong})
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if err := validateTopic(msg.Topic); err != nil {
			c.trySend(Message{Type: MessageTypeError, Topic: msg.Topic, Data: err.Error()})
			return
		}
		if msg.Type == MessageTypeSubscribe {
			c.hub.Subscribe(c, msg.Topic)
		} else {
			c.hub.Unsubscribe(c, msg.Topic)
		}
	default:
		c.trySend(Message{Type: MessageTypeError, Data: fmt.Sprintf("unknown frame type %q", msg.Type)})
	}
}

// trySend queues a direct reply without blocking.
func (c *Client) trySend(msg Message) {
	defer func() {
		// send may have been closed by the hub.
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func validateTopic(topic string) error {
	if !strings.HasPrefix(topic, "/topic/") || len(topic) > maxTopicLength {
		return fmt.Errorf("invalid topic %q", topic)
	}
	return nil
}

// writePump writes hub messages and keep-alive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// ServeWS upgrades the request and attaches a new client for userID.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	client := NewClient(hub, conn, userID)
	if !hub.Attach(client) {
		_ = conn.Close()
		return ErrHubStopped
	}
	client.Start()
	return nil
}
