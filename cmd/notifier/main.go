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

	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/integration"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/mq"
	"hotelbooking/internal/notification"
	"hotelbooking/internal/repository"
	"hotelbooking/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	if !cfg.Broker.Enabled {
		return errors.New("broker is disabled in config; the notifier has nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := notification.New(cfg.Notifier, logging.Component(logger, "notifier"))
	if err != nil {
		return err
	}

	deduper := initDeduper(ctx, cfg, logger)
	handler := notification.NewHandler(notifier, deduper, time.Duration(cfg.Notifier.DedupeTTLSeconds)*time.Second, logging.Component(logger, "notification_handler"))

	publisher, err := mq.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
	if err != nil {
		logger.Error().Err(err).Msg("connect broker publisher")
		return err
	}
	defer publisher.Close()
	publisher.RetryTo(cfg.Broker.Queue)

	consumer := mq.NewConsumer(mq.ConsumerConfig{
		URL:         cfg.Broker.URL,
		Exchange:    cfg.Broker.Exchange,
		DLXExchange: cfg.Broker.DLXExchange,
		Queue:       cfg.Broker.Queue,
		DLQueue:     cfg.Broker.DLQueue,
		Bindings:    integration.RoutingKeys(),
		Prefetch:    cfg.Broker.Prefetch,
		Tag:         cfg.App.Name + "-notifier",
	})
	if err := consumer.Connect(); err != nil {
		logger.Error().Err(err).Msg("connect broker consumer")
		return err
	}
	defer consumer.Close()

	msgs, err := consumer.Messages(ctx)
	if err != nil {
		return err
	}

	startMetrics(ctx, cfg, logger)

	w := worker.NewNotificationWorker(handler, publisher, worker.PolicyFromConfig(cfg.Notifier.Retry), logger)
	logger.Info().
		Str("queue", cfg.Broker.Queue).
		Str("channel", cfg.Notifier.Channel).
		Msg("notifier started")

	w.Start(ctx, msgs)

	logger.Info().Msg("notifier stopped")
	return nil
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

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App, "notifier")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "notifier-main"), closer, nil
}

// initDeduper prefers Redis so redeliveries are recognised across restarts;
// without it, dedupe only holds for the life of the process.
func initDeduper(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.Deduper {
	memory := repository.NewMemoryDeduper()
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis not configured, notification dedupe is in-memory only")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, dedupe starts on memory fallback")
	}
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()
	return repository.NewFailoverDeduper(repository.NewRedisDeduper(client), memory, logging.Component(logger, "deduper"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
