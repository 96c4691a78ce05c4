package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skyflick/skyflick/internal/adapter/gemini"
	"github.com/skyflick/skyflick/internal/adapter/httpapi"
	kafkaadapter "github.com/skyflick/skyflick/internal/adapter/kafka"
	"github.com/skyflick/skyflick/internal/adapter/kma"
	"github.com/skyflick/skyflick/internal/adapter/tmdb"
	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
	"github.com/skyflick/skyflick/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetrics()

	weather := kma.NewClient(cfg.KMA, logger, metrics)
	generator := gemini.NewClient(cfg.Gemini, logger, metrics)

	var catalog domain.MovieCatalog = tmdb.NewClient(cfg.TMDB, logger, metrics)
	catalog = tmdb.NewCachedCatalog(catalog, cfg.TMDB.CacheSize, metrics)

	// Event stream is feature-flagged; runs complete even when disabled.
	var events pipeline.EventPublisher
	var publisher *kafkaadapter.Publisher
	if cfg.Events.Enabled {
		publisher = kafkaadapter.NewPublisher(cfg.Events, logger)
		events = publisher
		logger.Info("recommendation event stream enabled",
			"brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	} else {
		logger.Info("recommendation event stream disabled")
	}

	p := pipeline.New(weather, generator, catalog, events, logger, metrics,
		cfg.Gemini.Temperature, cfg.Gemini.MaxOutputTokens)

	srv := httpapi.NewServer(cfg.Server.Addr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
