package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JamesPrial/pokeflow/internal/admin"
	"github.com/JamesPrial/pokeflow/internal/browser"
	"github.com/JamesPrial/pokeflow/internal/pokeapi"
	"github.com/JamesPrial/pokeflow/internal/transport"
	"github.com/JamesPrial/pokeflow/pkg/config"
	"github.com/JamesPrial/pokeflow/pkg/logging"
)

func newServeCmd() *cobra.Command {
	var transportType string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph to the diagram widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			defer logging.Shutdown()

			if transportType != "" {
				cfg.TransportType = transportType
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&transportType, "transport", "t", "", "Transport: http, sse or stdio")
	return cmd
}

// serve runs the transport and the optional admin server until ctx ends
func serve(ctx context.Context, cfg *config.Settings) error {
	logger := logging.GetGlobalLogger("main")

	t, err := transport.New(cfg)
	if err != nil {
		return err
	}

	deps, err := newSessionDeps(cfg, nil)
	if err != nil {
		return err
	}
	publisher, _ := t.(transport.Publisher)
	manager := newSession(cfg, deps, publisher)
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Error("Failed to close session", slog.String("error", err.Error()))
		}
	}()

	mountSession(ctx, manager)
	server := NewServer(manager)

	if t.Name() != "stdio" {
		printBanner(os.Stderr, cfg)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// stdio ends at EOF and takes the admin server with it
		defer cancel()
		return t.Start(gctx, server.HandleRequest)
	})
	if cfg.Admin.Enabled {
		adminServer := admin.NewAdminServer(healthStatus(ctx, t.Name(), manager, deps.cache))
		g.Go(func() error {
			return adminServer.Serve(gctx, cfg.Admin.Port)
		})
	}

	logger.InfoContext(ctx, "Server started",
		slog.String("transport", t.Name()),
		slog.Bool("admin", cfg.Admin.Enabled),
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.InfoContext(ctx, "Server stopped")
	return nil
}

// healthStatus reports graph size, panel state and cache counts for /health.
// cache may be nil.
func healthStatus(ctx context.Context, transportName string, manager *browser.Manager, cache *pokeapi.CachedClient) admin.StatusFunc {
	return func() map[string]interface{} {
		nodes, edges := manager.Store().Len()
		status := map[string]interface{}{
			"transport": transportName,
			"nodes":     nodes,
			"edges":     edges,
			"panel":     manager.Panel().View().State,
		}
		if cache == nil {
			return status
		}
		stats, err := cache.Statistics(ctx)
		if err != nil {
			status["cache"] = map[string]interface{}{"error": err.Error()}
			return status
		}
		status["cache"] = stats
		return status
	}
}

func printBanner(w io.Writer, cfg *config.Settings) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(w, "pokeflow")
	fmt.Fprintf(w, "%s %s\n", color.WhiteString("Transport:"), color.GreenString(cfg.TransportType))
	fmt.Fprintf(w, "%s %s\n", color.WhiteString("Listening:"), color.GreenString("http://%s:%d/rpc", cfg.Transport.Host, cfg.Transport.Port))
	if cfg.TransportType == "sse" {
		fmt.Fprintf(w, "%s %s\n", color.WhiteString("Events:   "), color.GreenString("http://%s:%d/events", cfg.Transport.Host, cfg.Transport.Port))
	}
	if cfg.Admin.Enabled {
		fmt.Fprintf(w, "%s %s\n", color.WhiteString("Admin:    "), color.GreenString("http://localhost:%d", cfg.Admin.Port))
	}
}
