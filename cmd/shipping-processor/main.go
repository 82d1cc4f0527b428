package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/eshop/internal/pkg/config"
	"github.com/jcmexdev/eshop/internal/pkg/telemetry"
	"github.com/jcmexdev/eshop/internal/shipping"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/kafka"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/memory"
	shipsqlite "github.com/jcmexdev/eshop/internal/shipping/adapters/sqlite"
	"github.com/jcmexdev/eshop/internal/shipping/processor"
)

func main() {
	cfg, err := config.Load("shipping-processor")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("shipping processor stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	brokers := kafka.SplitBrokers(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required for the standalone processor")
	}

	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	repo, err := shipsqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	consumer := kafka.NewConsumer(brokers, cfg.ShippingTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	// The processor never creates shipments, so nothing is published.
	svc := shipping.NewService(repo, memory.NewQueue(), shipping.WithLogger(logger))

	logger.Info("consuming shipments", "brokers", brokers, "topic", cfg.ShippingTopic, "group", cfg.KafkaGroupID)
	return processor.New(consumer, svc, cfg.PollInterval, logger).Run(ctx)
}
