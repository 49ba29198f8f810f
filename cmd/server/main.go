package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/cmd"
	"github.com/modelrelay/modelrelay/internal/analytics"
	"github.com/modelrelay/modelrelay/internal/config"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/platform/logger"
	"github.com/modelrelay/modelrelay/internal/platform/otel"
	"github.com/modelrelay/modelrelay/internal/server"
	"github.com/modelrelay/modelrelay/internal/store/cache"
	"github.com/modelrelay/modelrelay/internal/store/document"
	"github.com/modelrelay/modelrelay/internal/store/sqlite"
	"github.com/modelrelay/modelrelay/internal/upstream"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	go cmd.CheckForUpdates()

	shutdownTracer, err := otel.InitTracer("modelrelay", cmd.AppVersion, log, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	ctx := context.Background()

	// Fallback configuration document, loaded through the holder so a
	// corrupt file degrades to an empty disabled config.
	docStore := document.NewStore(cfg.Storage.ConfigPath)
	holder := fallback.NewConfigHolder(docStore)
	if err := holder.Load(ctx); err != nil {
		log.Warn("Starting with empty fallback configuration", zap.Error(err))
	}

	repo, err := sqlite.NewSQLiteStorage(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open attempt store", zap.Error(err))
	}
	defer repo.Close()

	ingestor := analytics.NewIngestor(log, repo)
	ingestor.Start(ctx)
	defer ingestor.Stop()

	analyticsSvc := analytics.NewService(repo)

	var routeCache ports.RouteCache
	if cfg.Redis.Enabled {
		routeCache, err = cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Redis unavailable, using in-memory route cache", zap.Error(err))
			routeCache = cache.NewMemory()
		}
	} else {
		routeCache = cache.NewMemory()
	}

	tokens := make(map[string]string)
	endpoints := make(map[string]upstream.Endpoint)
	for _, p := range cfg.Providers {
		tokens[p.Name] = p.APIKey
		if p.BaseURL != "" {
			endpoints[p.Name] = upstream.Endpoint{BaseURL: p.BaseURL, Version: p.Version}
		}
	}
	tokenSource := upstream.NewStaticTokenSource(tokens)
	client := upstream.NewClient(tokenSource, endpoints, cfg.Dispatch.AttemptTimeout)

	dispatcher := fallback.NewDispatcher(holder, routeCache, client, ingestor, cfg.Dispatch.AttemptTimeout)

	srv := server.New(cfg, log, dispatcher, holder, client, routeCache, analyticsSvc)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Server started", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
}
