// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netdodge/netdodge/internal/backend"
	"github.com/netdodge/netdodge/internal/config"
	"github.com/netdodge/netdodge/internal/events"
	"github.com/netdodge/netdodge/internal/identity"
	"github.com/netdodge/netdodge/internal/logging"
	"github.com/netdodge/netdodge/internal/observability"
	"github.com/netdodge/netdodge/internal/poll"
	"github.com/netdodge/netdodge/internal/session"
	"github.com/netdodge/netdodge/internal/xdg"
)

// NewClientCmd creates the client subcommand.
func NewClientCmd() *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run the NetDodge client daemon",
		Long: `Run the client daemon: authenticate against the configured
identity backend, start the poll loop, and serve session lifecycle
operations until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClient(cmd, demo)
		},
	}

	defaults := config.Defaults()
	cmd.Flags().String("login-kind", defaults.LoginKind, "credential kind (developer, portal, storefront, device)")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().Duration("poll-interval", defaults.PollInterval, "backend poll interval")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&demo, "demo", false, "seed an in-memory demo world and walk the session lifecycle")

	return cmd
}

func runClient(cmd *cobra.Command, demo bool) error {
	path := configFile
	if path == "" {
		path = xdg.ConfigFile()
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if demo {
		fillDemoIdentity(&cfg)
	}

	logging.SetDefault("netdodge", version, cfg.LogFormat, cfg.LogLevel)
	logger := slog.Default()

	if err := cfg.Validate(logger); err != nil {
		return err
	}
	kind, err := backend.ParseCredentialKind(cfg.LoginKind)
	if err != nil {
		return err
	}

	// Backend wiring. The in-memory services stand in for the platform
	// SDK; completions only fire when the poll loop ticks the queue.
	queue := backend.NewQueue()
	provider := backend.NewMemoryIdentityProvider(queue)
	users := backend.NewMemoryUserService(queue)
	sessions := backend.NewMemorySessionService(queue)
	provider.AddAccount(cfg.DeveloperUsername, "acct-"+cfg.DeveloperUsername)

	var tickets backend.TicketSource
	if cfg.SteamAppID != "" {
		tickets = backend.StaticTicketSource("ticket-" + cfg.SteamAppID)
	}

	bus := events.NewBus()
	allEvents := bus.Subscribe(events.TypeAll)

	pipeline := identity.New(provider, users, tickets, bus, logger, identity.Settings{
		DevAuthURL:        cfg.DevAuthURL,
		DeveloperUsername: cfg.DeveloperUsername,
		ClientSecret:      cfg.ClientSecret,
		DisplayName:       cfg.DisplayName,
		DeviceModel:       cfg.DeviceModel,
	})
	defer pipeline.Close()

	orch := session.New(sessions, users, bus, logger, pipeline.UserID)
	defer orch.Close()

	loop := poll.New(cfg.PollInterval, logger, queue)

	var ready atomic.Bool
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer, err = observability.NewServer(cfg.MetricsAddr, ready.Load)
		if err != nil {
			return err
		}
		if _, err := obsServer.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go logEvents(allEvents, logger)
	if demo {
		runDemo(queue, orch, bus, cfg)
	}

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()
	ready.Store(true)

	if err := pipeline.StartLogin(kind); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Client started")
	logger.Info("client ready", "login_kind", kind.String(), "poll_interval", cfg.PollInterval)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-loopErr:
		if err != nil {
			return fmt.Errorf("poll loop error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	ready.Store(false)
	cancel()
	return nil
}

// fillDemoIdentity supplies placeholder platform ids so the demo runs
// without a config file.
func fillDemoIdentity(cfg *config.Config) {
	if cfg.ProductID == "" {
		cfg.ProductID = "demo-product"
	}
	if cfg.SandboxID == "" {
		cfg.SandboxID = "demo-sandbox"
	}
	if cfg.DeploymentID == "" {
		cfg.DeploymentID = "demo-deployment"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "demo-client"
	}
	if cfg.DeveloperUsername == "" {
		cfg.DeveloperUsername = "demo-player"
	}
	if cfg.DevAuthURL == "" {
		cfg.DevAuthURL = "localhost:6547"
	}
}

// logEvents mirrors every bus event into the log until the bus
// subscription closes.
func logEvents(ch chan events.Event, logger *slog.Logger) {
	for ev := range ch {
		logger.Info("event",
			"event_id", ev.ID.String(),
			"event_type", string(ev.Type),
			"payload", fmt.Sprintf("%+v", ev.Payload))
	}
}

// runDemo drives the session lifecycle once authentication completes:
// create a session, register a synthetic player, search, and leave.
// Follow-up operations are deferred onto the backend queue so they run
// on the poll goroutine alongside the completions that triggered them.
func runDemo(queue *backend.Queue, orch *session.Orchestrator, bus *events.Bus, cfg config.Config) {
	steps := bus.Subscribe(events.TypeAll)
	go func() {
		for ev := range steps {
			switch p := ev.Payload.(type) {
			case events.AuthenticationFinished:
				if !p.Success {
					continue
				}
				queue.Defer(func() {
					if err := orch.CreateSession("demo", 4, true, "demo-bucket",
						map[string]string{"MAPNAME_S": cfg.ProductName}); err != nil {
						slog.Warn("demo: create failed", "error", err)
					}
				})
			case events.SessionCreated:
				if !p.Success {
					continue
				}
				queue.Defer(func() {
					orch.RegisterPlayer("demo-guest")
					if err := orch.FindSessions("MAPNAME_S", cfg.ProductName, 0); err != nil {
						slog.Warn("demo: search failed", "error", err)
					}
				})
			case events.SessionSearchFinished:
				queue.Defer(func() {
					if err := orch.LeaveSession(); err != nil {
						slog.Warn("demo: leave failed", "error", err)
					}
				})
			}
		}
	}()
}
