package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zawadicraft/storefront/internal/notification"
	"github.com/zawadicraft/storefront/pkg/idempotency"
	"github.com/zawadicraft/storefront/pkg/logging"
	"github.com/zawadicraft/storefront/pkg/shutdown"
	"github.com/zawadicraft/storefront/pkg/tracing"
)

func main() {
	log := logging.New()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	redisAddr := env("REDIS_ADDR", "localhost:6379")
	kafkaBrokers := []string{env("KAFKA_ADDR", "localhost:9092")}
	otlpURL := env("OTLP_URL", "http://localhost:4318")
	eventsTopic := env("EVENTS_TOPIC", "storefront.events")
	group := env("CONSUMER_GROUP", "receipt-worker")

	tp, err := tracing.Init(ctx, "receipt-worker", otlpURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, 7*24*time.Hour)

	consumer := notification.NewConsumer(log, kafkaBrokers, eventsTopic, group,
		idem, notification.LogSender{Log: log})

	log.Info("receipt worker starting", "topic", eventsTopic, "group", group)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("receipt worker shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
