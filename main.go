package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/booms-platform/booms-core/caching"
	"github.com/booms-platform/booms-core/config"
	"github.com/booms-platform/booms-core/events"
	"github.com/booms-platform/booms-core/idempotency"
	"github.com/booms-platform/booms-core/interaction"
	"github.com/booms-platform/booms-core/logger"
	"github.com/booms-platform/booms-core/observability"
	"github.com/booms-platform/booms-core/pipeline"
	"github.com/booms-platform/booms-core/provider"
	"github.com/booms-platform/booms-core/redisclient"
	"github.com/booms-platform/booms-core/router"
	"github.com/booms-platform/booms-core/store"
	"github.com/booms-platform/booms-core/sweep"
	"github.com/booms-platform/booms-core/webhook"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("booms-core starting")

	ctx := context.Background()

	pool, err := store.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis init failed")
	}
	if err := rc.Ping(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — continuing, webhook idempotency dedup degrades to fail-open")
	} else {
		log.Info().Msg("redis connected")
	}

	registry := provider.NewRegistry()
	metrics := observability.NewMetrics(log)
	registerProviders(cfg, registry, metrics, log)

	broadcaster := events.New(log)
	broadcaster.Start()
	defer broadcaster.Stop()

	idem := idempotency.New(rc.Raw())
	notifier := provider.NoopNotifier{}
	auth := provider.PassthroughAuthenticator{}

	pipelines := pipeline.New(pool, broadcaster, registry, notifier, cfg, metrics, log)
	reconciler := webhook.New(pool, registry, idem, broadcaster, metrics, log)
	interactor := interaction.New(pool, broadcaster, log)
	balanceCache := caching.New(3*time.Second, log)

	sweeper := sweep.New(pool, pipelines, cfg, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("sweeper failed to start")
	}

	r := router.New(router.Deps{
		Cfg:          cfg,
		Store:        pool,
		Pipelines:    pipelines,
		Reconciler:   reconciler,
		Interactor:   interactor,
		Auth:         auth,
		BalanceCache: balanceCache,
		Metrics:      metrics,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("booms-core listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	sweeper.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("booms-core stopped gracefully")
	}
}

// registerProviders wires a stub payment rail for every provider whose
// webhook secret (for MTN MoMo, its API secret) is configured. Real rails can be substituted later
// behind the same provider.PaymentProvider interface without touching
// any pipeline.
func registerProviders(cfg *config.Config, registry *provider.Registry, metrics *observability.Metrics, log zerolog.Logger) {
	if cfg.WaveWebhookSecret != "" {
		registry.Register(provider.NewStubRail(provider.Wave, cfg.WaveWebhookSecret))
		metrics.TrackProviderHealth(string(provider.Wave), true)
		log.Info().Str("provider", "wave").Msg("registered payment rail")
	}
	if cfg.StripeWebhookSecret != "" {
		registry.Register(provider.NewStubRail(provider.Stripe, cfg.StripeWebhookSecret))
		metrics.TrackProviderHealth(string(provider.Stripe), true)
		log.Info().Str("provider", "stripe").Msg("registered payment rail")
	}
	if cfg.OrangeWebhookSecret != "" {
		registry.Register(provider.NewStubRail(provider.OrangeMoney, cfg.OrangeWebhookSecret))
		metrics.TrackProviderHealth(string(provider.OrangeMoney), true)
		log.Info().Str("provider", "orange_money").Msg("registered payment rail")
	}
	if cfg.MTNMomoAPISecret != "" {
		registry.Register(provider.NewStubRail(provider.MTNMomo, cfg.MTNMomoAPISecret))
		metrics.TrackProviderHealth(string(provider.MTNMomo), true)
		log.Info().Str("provider", "mtn_momo").Msg("registered payment rail")
	}
	log.Info().Int("providers", len(registry.List())).Msg("provider registration complete")
}
