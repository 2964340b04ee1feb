// Teamlink - Real-time Event Delivery for Team Collaboration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/teamlink

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/tomtom215/teamlink/internal/api"
	"github.com/tomtom215/teamlink/internal/config"
	"github.com/tomtom215/teamlink/internal/dispatch"
	"github.com/tomtom215/teamlink/internal/events"
	"github.com/tomtom215/teamlink/internal/logging"
	"github.com/tomtom215/teamlink/internal/notify"
	"github.com/tomtom215/teamlink/internal/presence"
	"github.com/tomtom215/teamlink/internal/sse"
	"github.com/tomtom215/teamlink/internal/supervisor"
	"github.com/tomtom215/teamlink/internal/supervisor/services"
	ws "github.com/tomtom215/teamlink/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// App is the wired server, ready to be served by its supervisor tree.
type App struct {
	Tree    *supervisor.SupervisorTree
	Bus     *BusComponents
	Server  *http.Server
	Router  *dispatch.Router
	Handler http.Handler
}

// NewApp wires every component from cfg. Nothing runs until the tree is served.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logging.Info().
		Str("backend", cfg.Bus.Backend).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Teamlink with supervisor tree")

	busComps, err := InitBus(ctx, cfg.Bus, cfg.Delivery.RouterCloseTimeout)
	if err != nil {
		return nil, err
	}
	client := busComps.Client

	// Presence is fed by websocket subscriptions to direct message topics
	presenceReg := presence.NewRegistry(cfg.Delivery.PresenceShards)
	hub := ws.NewHub(cfg.Delivery.BroadcastBuffer)
	hub.SetAuthorizer(events.CanSubscribe)
	hub.AddListener(events.NewPresenceTracker(presenceReg))

	router, err := dispatch.NewRouter(client, dispatch.Config{CloseTimeout: cfg.Delivery.RouterCloseTimeout},
		events.NewChatRoomHandler(hub),
		events.NewDirectMessageHandler(hub),
		events.NewNotificationHandler(hub),
	)
	if err != nil {
		_ = busComps.Shutdown(ctx)
		return nil, fmt.Errorf("create dispatch router: %w", err)
	}

	notifier := notify.NewDispatcher(sse.NewRegistry[sse.Stream](cfg.Delivery.RegistryShards), notify.Config{
		SendTimeout:       cfg.Delivery.SendTimeout,
		HeartbeatInterval: cfg.Delivery.HeartbeatInterval,
		StreamTimeout:     cfg.Delivery.StreamTimeout,
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Server.RateLimitDisabled
	mw := api.NewChiMiddleware(mwConfig)

	handler, err := api.NewHandler(api.Deps{
		Bus:      client,
		Router:   router,
		Hub:      hub,
		Notifier: notifier,
		Presence: presenceReg,
		Chat:     events.NewChatPublisher(client),
		Direct:   events.NewDirectPublisher(client, presenceReg),
		Notices:  events.NewNotificationPublisher(client),
	}, mw.AllowedOrigins())
	if err != nil {
		_ = busComps.Shutdown(ctx)
		return nil, fmt.Errorf("create API handler: %w", err)
	}
	httpHandler := api.NewRouter(handler, mw)

	// Streams hang off baseCtx so Shutdown can end them instead of waiting
	// for clients to leave.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpHandler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		cancelBase()
		_ = busComps.Shutdown(ctx)
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	// Messaging layer services
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRouterService(router))
	logging.Info().Strs("prefixes", router.Prefixes()).Msg("WebSocket hub and dispatch router added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	return &App{
		Tree:    tree,
		Bus:     busComps,
		Server:  server,
		Router:  router,
		Handler: httpHandler,
	}, nil
}

// run serves the app until ctx ends, then releases the bus.
func run(ctx context.Context, cfg *config.Config) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	logging.Info().Msg("Starting supervisor tree...")
	errCh := app.Tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error). The
	// channel yields exactly one result.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := app.Tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Supervisor.ShutdownTimeout)
	defer cancel()
	if err := app.Bus.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("release bus: %w", err)
	}
	return nil
}
