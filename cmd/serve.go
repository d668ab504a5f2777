package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rakshitha2207/spotify-mcp/internal/auth"
	"github.com/rakshitha2207/spotify-mcp/internal/config"
	"github.com/rakshitha2207/spotify-mcp/internal/governor"
	"github.com/rakshitha2207/spotify-mcp/internal/instrumentation"
	"github.com/rakshitha2207/spotify-mcp/internal/logging"
	"github.com/rakshitha2207/spotify-mcp/internal/server"
	"github.com/rakshitha2207/spotify-mcp/internal/spotify"
	"github.com/rakshitha2207/spotify-mcp/internal/tools/spotify_tools"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode   bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server on stdio, exposing Spotify
search and playback tools for AI assistants.

Configuration is read from the environment:
  SPOTIFY_CLIENT_ID      Spotify application client ID (required)
  SPOTIFY_CLIENT_SECRET  Spotify application client secret (required)
  SPOTIFY_REDIRECT_URI   OAuth redirect URI registered with the application,
                         e.g. http://localhost:8888/callback (required)
  METRICS_ADDR           Address for the Prometheus metrics server
                         (optional; empty disables metrics)
  MCP_DEBUG              Set to "true" for debug logging

The first tool call that needs credentials triggers an interactive OAuth
authorization in the browser. Run "spotify-mcp auth" beforehand to
authorize without waiting for a tool call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debugMode, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging. Can also use MCP_DEBUG env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (e.g. :9090). Can also use METRICS_ADDR env var. Empty disables metrics.")

	return cmd
}

func runServe(debugMode bool, metricsAddr string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if debugMode {
		cfg.Debug = true
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	// All logging goes to stderr; stdout carries the MCP framing.
	logging.Setup(cfg.Debug)

	provider, err := instrumentation.NewProvider(shutdownCtx, instrumentation.Config{
		Enabled:        cfg.MetricsAddr != "",
		ServiceName:    "spotify-mcp",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			slog.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	manager, err := auth.NewManager(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       auth.DefaultScopes,
		OpenBrowser:  auth.OpenBrowser,
		Metrics:      provider.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create credential manager: %w", err)
	}

	client := spotify.NewClient(manager)
	gov := governor.New(governor.DefaultPolicy())

	serverContext := server.NewServerContext(shutdownCtx, manager, gov, client, provider.Metrics())
	defer func() {
		if metricsServer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				slog.Error("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			slog.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("spotify-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := spotify_tools.RegisterSpotifyTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register Spotify tools: %w", err)
	}

	slog.Info("starting MCP server on stdio", "version", version)
	return runStdioServer(shutdownCtx, mcpSrv)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
