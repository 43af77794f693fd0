package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edulab/turnqueue/config"
	"github.com/edulab/turnqueue/internal/delivery/kafka/producer"
	infraRedis "github.com/edulab/turnqueue/internal/infra/redis"
	"github.com/edulab/turnqueue/internal/queue"
	"github.com/edulab/turnqueue/internal/service"
	"github.com/edulab/turnqueue/internal/store"
	pkgKafka "github.com/edulab/turnqueue/pkg/kafka"
	pkgLog "github.com/edulab/turnqueue/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	// Pick the record store backend.
	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		redisCli, err := infraRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
		}
		defer infraRedis.Disconnect(redisCli)
		st = store.NewRedisStore(redisCli, l)
	default:
		st = store.NewFileStore(cfg.Store.DataDir, l)
	}

	// Lifecycle event producer, optional.
	var prod producer.Producer
	if cfg.Kafka.Enabled {
		kafkaSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = producer.NewProducer(kafkaSyncProd, l)
		defer func() {
			if err := prod.Close(); err != nil {
				l.Errorf(ctx, "Failed to close Kafka producer: %v", err)
			}
		}()
	}

	reg := queue.NewRegistry(st, l)
	qSvc := service.NewQueueService(reg, cfg.Queue, prod, l)

	report, err := qSvc.LoadAll(ctx)
	if err != nil {
		l.Fatalf(ctx, "Failed to load queues: %v", err)
	}
	l.Infof(ctx, "queue engine ready: %d queues loaded, %d skipped",
		len(report.Loaded), len(report.Skipped))

	// The chat dispatcher drives qSvc from here; this process owns the
	// queue lifecycle and flushes every queue on the way out.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info(ctx, "Queue engine shutting down...")

	if err := qSvc.SaveAll(ctx); err != nil {
		l.Errorf(ctx, "Failed to save queues on shutdown: %v", err)
	}

	cancel()
	l.Info(ctx, "Queue engine exited")
}
