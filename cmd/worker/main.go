package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ariefcatur/go-suitcase-market.git/internal/config"
	kafkax "github.com/ariefcatur/go-suitcase-market.git/internal/kafka"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/projector"
	"github.com/ariefcatur/go-suitcase-market.git/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	group := getenv("WORKER_GROUP", "market-projector")
	workers := getenvInt("WORKER_COUNT", 4)
	topics := []string{market.TopicOrderPlaced, market.TopicOrderStatus, market.TopicProductSoldOut}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topics, workers)

	logger.Info("projector started", "group", group, "topics", topics, "workers", workers)
	if err := cons.Start(ctx, svc.Handle); err != nil {
		log.Fatalf("consumer exit: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
