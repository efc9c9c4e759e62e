package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/peripheralhq/peripheral-mcp/internal/auth"
	"github.com/peripheralhq/peripheral-mcp/internal/config"
	"github.com/peripheralhq/peripheral-mcp/internal/logging"
	"github.com/peripheralhq/peripheral-mcp/pkg/api"
	"github.com/peripheralhq/peripheral-mcp/pkg/intel"
	"github.com/peripheralhq/peripheral-mcp/pkg/router"
	"github.com/peripheralhq/peripheral-mcp/pkg/server"
	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

const (
	NAME    = "peripheral-mcp"
	VERSION = "1.0.0"
)

var (
	httpAddr = flag.String("http", "", "HTTP address for the MCP transport (e.g., :8080). If not set, uses stdio")
	sseMode  = flag.Bool("sse", false, "Use SSE (Server-Sent Events) for HTTP mode")
	apiAddr  = flag.String("api", "", "HTTP address for the REST API (e.g., :8081). Disabled when empty")
	portFile = flag.String("portfile", "", "If set with -http, write the actual bound TCP port to this file")
)

func main() {
	flag.Parse()

	logLevel := logging.GetLogLevel()
	logger := logging.NewLogger(NAME, logLevel)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("graceful shutdown complete")
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting peripheral server",
		slog.String("version", VERSION),
		slog.String("log_level", logging.GetLogLevel().String()),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return err
	}

	logger.Info("configuration loaded",
		slog.String("store_path", cfg.Store.Path),
		slog.Int("tier_max_hours", cfg.Tier.MaxHours),
	)

	storeLogger := logger.With(slog.String("component", "store"))
	st, err := store.NewSQLiteWithLogger(cfg.Store.Path, storeLogger)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("error", err.Error()),
			slog.String("path", cfg.Store.Path),
		)
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", slog.String("error", err.Error()))
		}
	}()

	verifier := auth.NewVerifier(cfg.Auth.Tokens)
	if verifier == nil {
		logger.Warn("no auth tokens configured, running with open access")
	}

	svc := intel.NewService(st, intel.TierPolicy{MaxHours: cfg.Tier.MaxHours},
		logger.With(slog.String("component", "intel")))
	meter := intel.NewMeter(st, logger.With(slog.String("component", "meter")),
		auth.ClientIDFromContext)

	srv := server.NewServer(svc, meter, logger.With(slog.String("component", "server")))

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    NAME,
			Version: VERSION,
		},
		nil,
	)
	srv.RegisterTools(mcpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	var httpServer, apiServer *http.Server

	if *httpAddr != "" {
		httpServer, err = startHTTPServer(logger, mcpServer, st, verifier, done)
		if err != nil {
			return err
		}
	} else {
		startStdioServer(ctx, logger, mcpServer, done)
	}

	if *apiAddr != "" {
		apiServer, err = startAPIServer(logger, svc, meter, done)
		if err != nil {
			return err
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		logger.Info("server stopped cleanly")
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	}

	shutdown(logger, httpServer, apiServer)

	return nil
}

func shutdown(logger *slog.Logger, servers ...*http.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if s == nil {
			continue
		}
		logger.Info("shutting down HTTP server...", slog.String("address", s.Addr))
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
	}
}

func startHTTPServer(logger *slog.Logger, mcpServer *mcp.Server, st store.Store, verifier *auth.Verifier, done chan<- error) (*http.Server, error) {
	routerCfg := &router.RouterConfig{
		EnableSSE:    *sseMode,
		EnableStream: true, // Always enable stream endpoint in HTTP mode
		Verifier:     verifier,
		Store:        st,
		Name:         NAME,
		Version:      VERSION,
	}
	handler := router.NewRouter(mcpServer, logger, routerCfg)
	httpServer := &http.Server{Addr: *httpAddr, Handler: handler}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("HTTP listen error: %w", err)
	}

	if *portFile != "" {
		addr := ln.Addr().(*net.TCPAddr)
		if err := os.WriteFile(*portFile, []byte(fmt.Sprintf("%d", addr.Port)), 0644); err != nil {
			logger.Warn("failed writing portfile", slog.String("error", err.Error()), slog.String("file", *portFile))
		} else {
			logger.Info("wrote port to file", slog.Int("port", addr.Port), slog.String("file", *portFile))
		}
	}

	go func() {
		logger.Info("starting MCP HTTP server", slog.Bool("sse_enabled", *sseMode), slog.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			done <- fmt.Errorf("HTTP server error: %w", err)
		} else {
			done <- nil
		}
	}()
	return httpServer, nil
}

func startAPIServer(logger *slog.Logger, svc *intel.Service, meter *intel.Meter, done chan<- error) (*http.Server, error) {
	handler := api.New(svc, meter, logger.With(slog.String("component", "api"))).Router()
	apiServer := &http.Server{Addr: *apiAddr, Handler: handler}

	ln, err := net.Listen("tcp", apiServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("API listen error: %w", err)
	}

	go func() {
		logger.Info("starting REST API server", slog.String("address", ln.Addr().String()))
		if err := apiServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			done <- fmt.Errorf("API server error: %w", err)
		} else {
			done <- nil
		}
	}()
	return apiServer, nil
}

func startStdioServer(ctx context.Context, logger *slog.Logger, mcpServer *mcp.Server, done chan<- error) {
	go func() {
		logger.Info("starting in stdio mode")
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
			done <- err
		} else {
			done <- nil
		}
	}()
}
