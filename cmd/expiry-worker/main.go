package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"

	"github.com/transitlab/bus-reservations/internal/adapters/crdb"
	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	redisadapter "github.com/transitlab/bus-reservations/internal/adapters/redis"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/config"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/reservation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger("expiry-worker")

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	inv := inventory.New(repo, redisCache, cfg.HoldTTL)
	manager := reservation.NewManager(repo, inv, clock.System(), logger,
		reservation.WithHoldTTL(cfg.HoldTTL),
		reservation.WithEvents(rabbitPub),
	)
	sweeper := reservation.NewSweeper(manager, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown expiry worker ...")
		cancel()
	}()

	logger.WithField("interval", cfg.SweepInterval.String()).Info("expiry worker started")
	sweeper.Run(ctx, cfg.SweepInterval)
	logger.Info("expiry worker exiting")
}
