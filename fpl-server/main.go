package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"fpl-cache-api/internal/api"
	"fpl-cache-api/internal/appstate"
	"fpl-cache-api/internal/cache"
	"fpl-cache-api/internal/config"
	"fpl-cache-api/internal/logger"
	"fpl-cache-api/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if err := logger.Init(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Archive)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Archive.Backend).Msg("failed to open snapshot store")
	}

	opts := []appstate.Option{appstate.WithCacheSize(cfg.Cache.Size)}
	if cfg.Cache.Redis.Enabled {
		tier, client, err := cache.OpenRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis tier unavailable, using in-process cache only")
		} else {
			defer client.Close()
			opts = append(opts, appstate.WithTier(tier))
		}
	}
	svc := appstate.NewService(st, opts...)

	// A failed build leaves the service answering 503 until /admin/rebuild succeeds.
	if _, err := svc.Rebuild(ctx); err != nil {
		log.Error().Err(err).Msg("initial state build failed")
	}

	mcpServer, tools := newMCPServer(svc)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	router := api.NewRouter(svc, api.RouterOptions{
		APIKey:     cfg.Server.APIKey,
		AuthHeader: cfg.Server.AuthHeader,
		AccessLog:  logger.NewAccessLogger(cfg.Logging),
		Tools:      tools,
		MCP:        mcpHandler,
		MCPPath:    cfg.Server.MCPPath,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("mcp_path", cfg.Server.MCPPath).
			Bool("auth", cfg.Server.APIKey != "").
			Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
