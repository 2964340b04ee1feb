// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

/*
Package websocket is the topic broadcast sink: browsers connect over
WebSocket, subscribe to topics such as "/topic/chatroom/42", and receive
every message sent to those topics.

Key Components:

  - Hub: owns clients and topic subscriptions; all mutations happen on the
    goroutine running RunWithContext.
  - Client: one WebSocket connection with readPump and writePump goroutines.
  - SubscriptionListener: observes subscribe and unsubscribe events (the
    presence tracker hooks in here).

Client frames:

	{"type":"subscribe","topic":"/topic/dm/3_9"}
	{"type":"unsubscribe","topic":"/topic/dm/3_9"}
	{"type":"ping"}

Server frames:

	{"type":"message","topic":"/topic/dm/3_9","data":{...}}
	{"type":"subscribed","topic":"/topic/dm/3_9"}
	{"type":"pong"}
	{"type":"error","data":"rate limit exceeded"}

SendToTopic never blocks. When the hub queue is full the message is dropped
and ErrBroadcastQueueFull is returned; a client whose own send buffer is
full is disconnected.
*/
package websocket
