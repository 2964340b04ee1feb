// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

/*
Package bus is the publish/subscribe bridge that carries event envelopes
between server processes.

A producer hands the Client a channel name ("chatroom:42", "dm:3_9") and an
opaque payload. The Client wraps them in a Watermill message, tags the
message with the channel, and writes it to the configured Transport through
a circuit breaker. Every process runs exactly one dispatch router that
subscribes to all channels through Client.Subscribe and turns each message
back into an Envelope.

# Transports

Three transports are available:

  - memory: Watermill gochannel, single process only. Used in tests and in
    single-instance deployments.
  - nats: core NATS through watermill-nats (JetStream disabled). Every
    instance subscribes without a queue group so each process sees every
    envelope and can reach the connections it holds.
  - redis: Redis PUBLISH / PSUBSCRIBE through go-redis.

An EmbeddedServer can start an in-process NATS server so the nats transport
works without external infrastructure.

# Delivery guarantees

Delivery is best-effort. Publish does not wait for subscribers, is never
retried, and an envelope published while no process is subscribed is lost.
Within one channel a single publisher's envelopes arrive in publish order.
*/
package bus
