package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/storm-data-radar/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-data-radar/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-radar/internal/config"
	"github.com/couchcryptid/storm-data-radar/internal/observability"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
	"github.com/couchcryptid/storm-data-radar/internal/resample"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	opts := resampleOptions(cfg)
	cache := resample.NewGeometryCache(resample.NewGeometryMapper(nil), cfg.GeometryCacheSize)
	resampler := resample.New(opts, cache, logger)
	logger.Info("resampler configured",
		"grid_nx", cfg.Grid.NX,
		"grid_ny", cfg.Grid.NY,
		"grid_nz", cfg.Grid.NZ(),
		"projection", cfg.Grid.Projection,
		"threads", resampler.Options().NThreads,
		"nearest_all", opts.NearestAll,
		"geometry_cache_size", cfg.GeometryCacheSize,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(resampler, cfg.Grid, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start resampling pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func resampleOptions(cfg *config.Config) resample.Options {
	opts := resample.DefaultOptions()
	opts.BeamWidthExtensionFraction = cfg.BeamWidthExtensionFraction
	opts.MinValidForInterp = cfg.MinValidForInterp
	opts.UseMultipleThreads = cfg.UseMultipleThreads
	opts.NThreads = cfg.NThreads
	opts.NearestAll = cfg.InterpMode == config.InterpModeNearest
	opts.NearestFields = cfg.NearestNeighborFields
	opts.DebugFields = cfg.DebugFields
	return opts
}
