package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TimurManjosov/godecider/internal/api"
	"github.com/TimurManjosov/godecider/internal/config"
	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/logging"
	"github.com/TimurManjosov/godecider/internal/store"
	"github.com/TimurManjosov/godecider/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("env", cfg.AppEnv).Logger()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := store.NewSource(ctx, cfg.SourceType, cfg.ConfigPath, cfg.DatabaseDSN, cfg.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("source")
	}
	defer src.Close()

	metrics := telemetry.New()
	d, err := decider.Init(ctx, cfg.Registry, src,
		decider.WithLogger(log),
		decider.WithMetrics(metrics),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("init decider")
	}
	log.Info().
		Int("features", len(d.Features())).
		Str("etag", d.ETag()).
		Str("source", d.Source()).
		Msg("decider ready")

	if cfg.Watch {
		go func() {
			if err := d.Watch(ctx); err != nil && !errors.Is(err, decider.ErrNotWatchable) {
				log.Error().Err(err).Msg("watch stopped")
			}
		}()
	}

	srvAPI := api.NewServer(d,
		api.WithLogger(log),
		api.WithMetrics(metrics),
		api.WithRateLimit(cfg.RateLimitPerIP),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{
		Addr:        cfg.MetricsAddr,
		Handler:     mux,
		ReadTimeout: 3 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("metrics server")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}
