package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/spaceweather/internal/api/http"
	"github.com/i474232898/spaceweather/internal/config"
	"github.com/i474232898/spaceweather/internal/location"
	"github.com/i474232898/spaceweather/internal/logging"
	"github.com/i474232898/spaceweather/internal/refresh"
	"github.com/i474232898/spaceweather/internal/store"
	"github.com/i474232898/spaceweather/internal/weather"
	"github.com/i474232898/spaceweather/internal/weather/providers"
)

const appName = "spaceweather"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logging.New(cfg.Env, cfg.LogLevel, appName)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	if !cfg.EnvFileLoaded {
		zl.Info().Msg("no .env file found; using process environment")
	}
	warnMissingKeys(zl, cfg)

	// Shared HTTP client for outbound provider calls. Providers apply their own
	// per-call deadlines; this is the outer bound.
	httpClient := &http.Client{
		Timeout: max(cfg.HTTPTimeout, cfg.IPLookupTimeout) + 2*time.Second,
	}

	openWeather := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey, cfg.HTTPTimeout)
	iqAir := providers.NewIQAirProvider(httpClient, cfg.IQAirAPIKey, cfg.HTTPTimeout)
	ipInfo := providers.NewIPInfoProvider(httpClient, cfg.IPInfoToken, cfg.IPLookupTimeout)

	opts, err := locatorOptions(cfg, zl)
	if err != nil {
		zl.Fatal().Err(err).Msg("failed to configure device location")
	}
	resolver := location.NewResolver(openWeather, ipInfo, component(zl, "resolver"), opts...)

	var conditions weather.ConditionsSource = openWeather
	if cfg.ConditionsProvider == config.ConditionsOpenMeteo {
		conditions = providers.NewOpenMeteoProvider(httpClient, cfg.HTTPTimeout)
	}

	aggregator := weather.NewAggregator(conditions, openWeather, iqAir, cfg.HTTPTimeout, component(zl, "aggregator"))
	memStore := store.NewMemoryStore()
	service := weather.NewService(resolver, aggregator, memStore, component(zl, "refresh"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := refresh.NewWorker(service, cfg.CycleTimeout, component(zl, "worker"))
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error().Err(err).Msg("refresh worker stopped")
		}
	}()

	sched := refresh.NewScheduler(worker, cfg.RefreshInterval, cfg.RefreshCron, component(zl, "scheduler"))
	if err := sched.Start(); err != nil {
		zl.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, service, worker)

	go func() {
		zl.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	<-ctx.Done()
	zl.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error().Err(err).Msg("error during shutdown")
	}
}

func locatorOptions(cfg *config.AppConfig, zl zerolog.Logger) ([]location.Option, error) {
	var opts []location.Option

	switch cfg.DeviceLocator {
	case config.DeviceGPS:
		gps := location.NewGPSLocator(cfg.GPSDevicePort, cfg.GPSBaudRate, component(zl, "gps"))
		opts = append(opts, location.WithDevice(gps, cfg.DeviceLocationTimeout))
	case config.DeviceGoogle:
		geo, err := location.NewGeolocationLocator(cfg.GoogleAPIKey, cfg.DeviceLocationTimeout, component(zl, "geolocation"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, location.WithDevice(geo, cfg.DeviceLocationTimeout))
	}

	if cfg.ReverseGeocoding {
		opts = append(opts, location.WithReverseGeocoder(location.NewGoogleReverseGeocoder(cfg.GoogleAPIKey)))
	}
	return opts, nil
}

func warnMissingKeys(zl zerolog.Logger, cfg *config.AppConfig) {
	if cfg.OpenWeatherAPIKey == "" {
		zl.Warn().Msg("OPENWEATHER_API_KEY not set; pollutants and city search will be unavailable")
	}
	if cfg.IQAirAPIKey == "" {
		zl.Warn().Msg("IQAIR_API_KEY not set; AQI will be unavailable")
	}
}

func component(zl zerolog.Logger, name string) zerolog.Logger {
	return zl.With().Str("component", name).Logger()
}
