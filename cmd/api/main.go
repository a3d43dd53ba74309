package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelbooking/internal/api"
	"hotelbooking/internal/catalog"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/integration"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/mq"
	"hotelbooking/internal/pricing"
	"hotelbooking/internal/repository"
	"hotelbooking/internal/service"
	"hotelbooking/internal/uow"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	rooms, err := loadCatalog(logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, rooms, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var dispatcher uow.Dispatcher
	if cfg.Broker.Enabled {
		publisher, err := mq.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			logger.Error().Err(err).Msg("connect broker")
			return err
		}
		defer publisher.Close()
		dispatcher = integration.NewDispatcher(publisher, logger)
		logger.Info().Str("exchange", cfg.Broker.Exchange).Msg("broker connected")
	} else {
		logger.Warn().Msg("broker disabled, integration events will not be published")
	}

	rates, err := pricing.NewRateCard(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("init pricing: %w", err)
	}

	runner := uow.NewRunner(db, dispatcher, logger)
	bookingService := service.NewBookingService(
		db, runner, rates, initSearchCache(cfg, redisClient, logger),
		cfg.Booking, time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		logging.Component(logger, "booking_service"),
	)

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, cfg.App, bookingService, logger)
	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App, "api")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func loadCatalog(logger *zerolog.Logger) (*catalog.Catalog, error) {
	path := os.Getenv("ROOMS_PATH")
	if path == "" {
		path = "configs/rooms.yaml"
	}
	c, err := catalog.Load(path)
	if err != nil {
		logger.Error().Err(err).Str("rooms_path", path).Msg("load catalog")
		return nil, err
	}
	return c, nil
}

// initDatabase opens the store and upserts the seeded catalogue. Live room
// status survives a reseed.
func initDatabase(cfg *config.Config, c *catalog.Catalog, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database.Path, database.Options{
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := c.Apply(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info().Int("rooms", len(c.Rooms)).Int("guests", len(c.Guests)).Msg("catalogue seeded")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSearchCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SearchCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	memory := repository.NewMemorySearchCache()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSearchCache(repository.NewRedisSearchCache(redisClient), memory, logging.Component(logger, "search_cache"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server stopped")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
