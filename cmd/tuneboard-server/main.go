// Package main provides the tuneboard HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/config"
	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/metrics"
	"github.com/tuneboard/tuneboard/internal/provider"
	"github.com/tuneboard/tuneboard/internal/server"
	"github.com/tuneboard/tuneboard/internal/service"
	"github.com/tuneboard/tuneboard/internal/store"
)

func main() {
	cfg := config.Load()

	logger, closeLogger := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := closeLogger(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.Info("loaded catalog", "path", cfg.CatalogPath,
		"functions", len(cat.Functions), "metrics", len(cat.Metrics))

	jobStore, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	providers, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}

	lifecycle := service.NewLifecycle(
		cat,
		jobStore,
		providers,
		gateway.New(cfg.GatewayURL),
		metrics.NewCollector(),
		logger,
	)

	srv := server.New(cfg.ListenAddr, lifecycle, cfg.WatchInterval, logger)
	return srv.Run(ctx)
}

// buildStore selects the job store backend. The in-memory store is the
// default; SurrealDB keeps job handles across restarts.
func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.JobStore, func(), error) {
	switch cfg.Store {
	case config.StoreSurreal:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		s, err := store.NewSurreal(connectCtx, store.SurrealConfig{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() {
			if err := s.Close(context.Background()); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}
		return s, closeStore, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

// buildProviders registers every provider that has credentials configured.
// Jobs naming an unconfigured provider are rejected at validation.
func buildProviders(ctx context.Context, cfg config.Config, logger *slog.Logger) (provider.Registry, error) {
	var providers []provider.Provider

	if cfg.OpenAIAPIKey != "" {
		openai, err := provider.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, openai)
		logger.Info("registered provider", "provider", openai.Name())
	}

	if cfg.BedrockRoleARN != "" {
		bedrock, err := provider.NewBedrock(ctx, cfg.BedrockRoleARN)
		if err != nil {
			return nil, err
		}
		providers = append(providers, bedrock)
		logger.Info("registered provider", "provider", bedrock.Name())
	}

	if len(providers) == 0 {
		logger.Warn("no fine-tuning providers configured, job submission will fail")
	}

	return provider.NewRegistry(providers...), nil
}
