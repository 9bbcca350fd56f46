package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"server/internal/adapter/repo"
	"server/internal/auth"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/ledger"
	"server/internal/metrics"
	"server/internal/provision"
	"server/internal/providers/identity"
	"server/internal/providers/stylist"
	"server/internal/tryon"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if err := infra.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	profiles := repo.NewProfileRepository(dbpool)
	garments := repo.NewGarmentRepository(dbpool)

	countryResolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}

	identityClient := identity.NewClient(identity.Options{
		BaseURL: cfg.AuthBaseURL,
		APIKey:  cfg.AuthAPIKey,
	})
	defer identityClient.Close()

	stylistClient := stylist.NewClient(stylist.Options{
		BaseURL: cfg.StylistBaseURL,
		APIKey:  cfg.StylistAPIKey,
		Model:   cfg.StylistModel,
	})

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	provisioner := provision.New(profiles, cfg.InitialCredits, cfg.AdminEmail, logger)
	sessions := auth.NewManager(identityClient, profiles, provisioner, logger)
	led := ledger.New(profiles, logger)
	orchestrator := tryon.New(sessions, led, stylistClient, logger)

	subscriber := auth.NewSubscriber(sessions, profiles, logger)
	subscriber.OnDiscard(m.RefreshDiscarded)
	unsubscribe := subscriber.Start(identityClient)
	defer unsubscribe()

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		TryOn:    orchestrator,
		Ledger:   led,
		Profiles: profiles,
		Garments: garments,
		Metrics:  m,
	}

	var lookup func(string) (string, error)
	if countryResolver != nil {
		lookup = countryResolver.CountryCode
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		CountryLookup: lookup,
		Registry:      registry,
		RateLimit:     cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
