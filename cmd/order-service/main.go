package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jcmexdev/eshop/internal/catalog"
	sagasqlite "github.com/jcmexdev/eshop/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/eshop/internal/httpapi"
	"github.com/jcmexdev/eshop/internal/pkg/cache"
	"github.com/jcmexdev/eshop/internal/pkg/config"
	"github.com/jcmexdev/eshop/internal/pkg/metrics"
	"github.com/jcmexdev/eshop/internal/pkg/telemetry"
	"github.com/jcmexdev/eshop/internal/shipping"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/kafka"
	"github.com/jcmexdev/eshop/internal/shipping/adapters/memory"
	shipsqlite "github.com/jcmexdev/eshop/internal/shipping/adapters/sqlite"
	"github.com/jcmexdev/eshop/internal/shipping/processor"
)

func main() {
	cfg, err := config.Load("order-service")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("order service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
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

	cat, err := catalog.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "products", len(cat.List()))

	for _, p := range []string{cfg.DBPath, cfg.PlacementLogPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
	}
	repo, err := shipsqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	placementLog, err := sagasqlite.Open(cfg.PlacementLogPath)
	if err != nil {
		return err
	}
	defer placementLog.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []httpapi.Option{
		httpapi.WithPlacementLog(placementLog),
		httpapi.WithOrderMetrics(m),
		httpapi.WithLogger(logger),
		httpapi.WithHealthCheck("shipments_db", repo.Ping),
	}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, "order")
		defer redisCache.Close()
		opts = append(opts, httpapi.WithCache(redisCache), httpapi.WithHealthCheck("redis", redisCache.Ping))
	}

	var publisher shipping.Publisher
	var localQueue *memory.Queue
	if brokers := kafka.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := kafka.NewPublisher(brokers, cfg.ShippingTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing shipments to kafka", "brokers", brokers, "topic", cfg.ShippingTopic)
	} else {
		localQueue = memory.NewQueue()
		publisher = localQueue
		logger.Info("no kafka brokers configured, processing shipments in-process")
	}

	svc := shipping.NewService(repo, publisher, shipping.WithLogger(logger), shipping.WithMetrics(m))

	if localQueue != nil {
		proc := processor.New(localQueue, svc, cfg.PollInterval, logger)
		go func() {
			if err := proc.Run(ctx); err != nil {
				logger.Error("in-process shipment processor stopped", "error", err)
			}
		}()
	}

	handler := httpapi.NewHandler(cat, svc, opts...)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.NewRouter(handler, m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("order service HTTP running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
