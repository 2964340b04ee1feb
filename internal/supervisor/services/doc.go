// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

/*
Package services provides suture.Service wrappers for the delivery components.

Each wrapper translates a component's lifecycle into suture's
Serve(ctx) error pattern and names itself through fmt.Stringer so supervisor
events identify it:

  - RouterService: runs dispatch.Router.Run, the bus subscription loop
  - WebSocketHubService: runs websocket.Hub.RunWithContext
  - HTTPServerService: runs an *http.Server with graceful shutdown

The wrappers depend on small interfaces rather than the concrete packages,
so they can be tested with fakes and never import upward.

Serve returns ctx.Err() on a requested shutdown. Any other return is a
failure and suture restarts the service with backoff.
*/
package services
