// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/metrics"
)

// ErrBroadcastQueueFull is returned by SendToTopic when the hub is saturated.
var ErrBroadcastQueueFull = errors.New("broadcast queue full")

// ErrHubStopped is returned by ServeWS once the hub has shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types
const (
	MessageTypeMessage      = "message"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// DefaultBroadcastBuffer is the hub queue size used when none is configured.
const DefaultBroadcastBuffer = 1024

// Message is a frame exchanged with clients.
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// SubscriptionListener observes topic subscriptions. Callbacks run on the
// hub goroutine and must not block or call back into the hub.
type SubscriptionListener interface {
	OnSubscribe(userID int64, topic string)
	OnUnsubscribe(userID int64, topic string)
}

// Authorizer decides whether userID may subscribe to topic.
type Authorizer func(userID int64, topic string) bool

type subscriptionRequest struct {
	client    *Client
	topic     string
	subscribe bool
}

// Hub maintains the set of active clients and their topic subscriptions.
type Hub struct {
	clients       map[*Client]bool
	topics        map[string]map[*Client]struct{}
	broadcast     chan Message
	Register      chan *Client
	Unregister    chan *Client
	subscriptions chan subscriptionRequest

	listeners []SubscriptionListener
	authorize Authorizer

	// done is closed when RunWithContext shuts down. Senders on the
	// unbuffered lifecycle channels select on it so they never block on a
	// stopped hub.
	done     chan struct{}
	doneOnce sync.Once

	mu sync.RWMutex
}

// NewHub creates a hub whose broadcast queue holds buffer messages.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBroadcastBuffer
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		topics:        make(map[string]map[*Client]struct{}),
		broadcast:     make(chan Message, buffer),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		subscriptions: make(chan subscriptionRequest),
		done:          make(chan struct{}),
	}
}

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Attach registers client with the running hub. It reports false, without
// registering, once the hub has shut down.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters client. It returns at once on a stopped hub.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// AddListener registers l. Call before RunWithContext.
func (h *Hub) AddListener(l SubscriptionListener) {
	h.listeners = append(h.listeners, l)
}

// SetAuthorizer installs a subscription check. Call before RunWithContext.
func (h *Hub) SetAuthorizer(a Authorizer) {
	h.authorize = a
}

// RunWithContext processes hub events until ctx is canceled, then closes
// every client, closes Done and returns ctx.Err(). A hub that has shut down
// accepts no further clients.
//
// Shutdown has priority over lifecycle events, which have priority over
// broadcasts, so a client's subscriptions are in place before messages
// queued after them are fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		case req := <-h.subscriptions:
			h.handleSubscription(req)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case req := <-h.subscriptions:
			h.handleSubscription(req)
		case message := <-h.broadcast:
			h.broadcastToTopic(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	logging.Debug().Uint64("client_id", client.id).Int64("user_id", client.userID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		h.dropClientLocked(client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WebSocketClients.Set(float64(total))
		logging.Debug().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// dropClientLocked removes client from every topic and closes its send
// channel. Caller holds h.mu.
func (h *Hub) dropClientLocked(client *Client) {
	topics := make([]string, 0, len(client.topics))
	for topic := range client.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		h.removeFromTopicLocked(client, topic)
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) removeFromTopicLocked(client *Client, topic string) {
	subs := h.topics[topic]
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	delete(client.topics, topic)
	for _, l := range h.listeners {
		l.OnUnsubscribe(client.userID, topic)
	}
}

func (h *Hub) handleSubscription(req subscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := req.client
	if _, ok := h.clients[client]; !ok {
		return
	}

	if !req.subscribe {
		if _, ok := client.topics[req.topic]; ok {
			h.removeFromTopicLocked(client, req.topic)
		}
		h.reply(client, Message{Type: MessageTypeUnsubscribed, Topic: req.topic})
		return
	}

	if h.authorize != nil && !h.authorize(client.userID, req.topic) {
		h.reply(client, Message{Type: MessageTypeError, Topic: req.topic, Data: "subscription not allowed"})
		return
	}
	if _, ok := client.topics[req.topic]; !ok {
		subs, ok := h.topics[req.topic]
		if !ok {
			subs = make(map[*Client]struct{})
			h.topics[req.topic] = subs
		}
		subs[client] = struct{}{}
		client.topics[req.topic] = struct{}{}
		for _, l := range h.listeners {
			l.OnSubscribe(client.userID, req.topic)
		}
	}
	h.reply(client, Message{Type: MessageTypeSubscribed, Topic: req.topic})
}

// reply queues msg for one client without blocking. Caller holds h.mu.
func (h *Hub) reply(client *Client, msg Message) {
	select {
	case client.send <- msg:
	default:
	}
}

// broadcastToTopic delivers message to the topic's subscribers in client ID
// order. Clients with a full buffer are disconnected.
func (h *Hub) broadcastToTopic(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.topics[message.Topic]
	if len(subs) == 0 {
		return
	}

	clients := make([]*Client, 0, len(subs))
	for client := range subs {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		logging.Warn().Uint64("client_id", client.id).Str("topic", message.Topic).Msg("websocket client too slow, disconnecting")
		h.dropClientLocked(client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.dropClientLocked(client)
	}
	metrics.WebSocketClients.Set(0)
}

// SendToTopic queues message for every subscriber of topic. It never
// blocks; a full queue drops the message.
func (h *Hub) SendToTopic(topic string, message interface{}) error {
	select {
	case h.broadcast <- Message{Type: MessageTypeMessage, Topic: topic, Data: message}:
		metrics.RecordSinkMessage(true)
		return nil
	default:
		metrics.RecordSinkMessage(false)
		logging.Warn().Str("topic", topic).Msg("broadcast channel full, dropping message")
		return ErrBroadcastQueueFull
	}
}

// Subscribe asks the hub to add client to topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.request(subscriptionRequest{client: client, topic: topic, subscribe: true})
}

// Unsubscribe asks the hub to remove client from topic.
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.request(subscriptionRequest{client: client, topic: topic})
}

func (h *Hub) request(req subscriptionRequest) {
	select {
	case h.subscriptions <- req:
	case <-h.done:
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicSubscriberCount returns the number of clients subscribed to topic.
func (h *Hub) TopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
