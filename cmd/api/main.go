package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearmind-health/booking-platform/internal/api/router"
	"github.com/clearmind-health/booking-platform/internal/app/bootstrap"
	"github.com/clearmind-health/booking-platform/internal/availability"
	appconfig "github.com/clearmind-health/booking-platform/internal/config"
	"github.com/clearmind-health/booking-platform/internal/eligibility"
	"github.com/clearmind-health/booking-platform/internal/network"
	"github.com/clearmind-health/booking-platform/internal/observability/metrics"
	"github.com/clearmind-health/booking-platform/internal/resilience"
	"github.com/clearmind-health/booking-platform/internal/scheduling"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

func main() {
	// Load .env in development; ignore absence in deployed environments.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	location, err := time.LoadLocation(cfg.PracticeTimezone)
	if err != nil {
		logger.Error("invalid practice timezone", "tz", cfg.PracticeTimezone, "error", err)
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPgxPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	var cache availability.CacheReader
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		cache = availability.NewRedisCacheReader(redisClient, "availability")
	}

	// Metrics
	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)
	eligibilityMetrics := metrics.NewEligibilityMetrics(prometheus.DefaultRegisterer)

	// Core services
	resolver := network.NewResolver(network.NewPostgresStore(pool), logger)
	reader := availability.NewReader(cache, availability.NewPostgresStore(pool), logger)
	bookingStore := scheduling.NewBookingStore(pool)

	schedulingService := scheduling.NewService(resolver, reader, bookingStore, scheduling.Settings{
		DefaultSlotMinutes: cfg.DefaultSlotMinutes,
		MaxRangeDays:       cfg.MaxRangeDays,
	}, schedulingMetrics, logger)

	breakers := resilience.NewRegistry(resilience.Settings{
		FailureThreshold: cfg.BreakerFailureThreshold,
		Window:           cfg.BreakerWindow,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}, logger)

	var checker eligibility.Checker
	if cfg.EligibilityBaseURL != "" {
		client := eligibility.NewClient(
			cfg.EligibilityBaseURL,
			cfg.EligibilityAPIKey,
			cfg.EligibilityProvider,
			cfg.EligibilityNPI,
			breakers,
			logger,
		)
		client.SetTimeout(cfg.EligibilityTimeout)
		checker = client
	} else {
		logger.Warn("ELIGIBILITY_BASE_URL not set; live eligibility checks disabled")
	}

	// Handlers and router
	routerCfg := &router.Config{
		Logger:             logger,
		SchedulingHandler:  scheduling.NewHandler(schedulingService, location, logger),
		EligibilityHandler: eligibility.NewHandler(checker, eligibilityMetrics, logger),
		MetricsHandler:     promhttp.Handler(),
		RateLimitPerSecond: float64(cfg.RateLimitPerSecond),
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	if cfg.CORSAllowedOrigins != "" {
		routerCfg.CORSAllowedOrigins = splitOrigins(cfg.CORSAllowedOrigins)
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
