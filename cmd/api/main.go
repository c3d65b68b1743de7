package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-suitcase-market.git/internal/config"
	"github.com/ariefcatur/go-suitcase-market.git/internal/httpx"
	"github.com/ariefcatur/go-suitcase-market.git/internal/inventory"
	kafkax "github.com/ariefcatur/go-suitcase-market.git/internal/kafka"
	"github.com/ariefcatur/go-suitcase-market.git/internal/ledger"
	"github.com/ariefcatur/go-suitcase-market.git/internal/logging"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/ariefcatur/go-suitcase-market.git/internal/orders"
	"github.com/ariefcatur/go-suitcase-market.git/internal/postgres"
	"github.com/ariefcatur/go-suitcase-market.git/internal/products"
	"github.com/ariefcatur/go-suitcase-market.git/internal/redisx"
	"github.com/ariefcatur/go-suitcase-market.git/internal/stats"
	"github.com/ariefcatur/go-suitcase-market.git/internal/users"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	store := ledger.NewPostgres(db)

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicOrderStatus, 1024)
	pStatus.Start(ctx)
	pSoldOut := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicProductSoldOut, 1024)
	pSoldOut.Start(ctx)

	// Services
	engine := &inventory.Engine{Store: store, MaxAttempts: cfg.ReserveMaxAttempts}
	orderSvc := &orders.Service{
		Store:       store,
		Inventory:   engine,
		Placed:      pPlaced,
		Status:      pStatus,
		SoldOut:     pSoldOut,
		ServiceName: cfg.ServiceName,
	}
	productSvc := &products.Service{
		Store:       store,
		Inventory:   engine,
		SoldOut:     pSoldOut,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter(logger)
	h := &httpx.Handlers{
		Products:  productSvc,
		Orders:    orderSvc,
		Users:     &users.Service{Store: store},
		Stats:     &stats.Service{Store: store, Redis: rdb},
		Redis:     rdb,
		DB:        db,
		JWTSecret: []byte(cfg.JWTSecret),
		StartedAt: time.Now(),
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", "error", err)
	}

	cancel() // stop producer loops; they flush and close
	pPlaced.WaitClosed()
	pStatus.WaitClosed()
	pSoldOut.WaitClosed()
}
