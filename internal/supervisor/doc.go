// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

/*
Package supervisor provides process supervision using suture v4.

Long-running components are grouped into two child supervisors so a crash in
one layer restarts only that layer:

	root ("teamlink")
	├── messaging-layer
	│   ├── dispatch-router   (bus subscription → channel handlers)
	│   └── websocket-hub     (broadcast sink)
	└── api-layer
	    └── http-server       (SSE, websocket upgrade, ingest API)

Supervisor events (start, failure, backoff) are logged through sutureslog,
which writes to the zerolog global logger via logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: 10 * time.Second,
	})
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewRouterService(router))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))

	return tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
