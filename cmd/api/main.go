package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"

	"github.com/transitlab/bus-reservations/internal/account"
	"github.com/transitlab/bus-reservations/internal/adapters/crdb"
	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	redisadapter "github.com/transitlab/bus-reservations/internal/adapters/redis"
	"github.com/transitlab/bus-reservations/internal/booking"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/config"
	"github.com/transitlab/bus-reservations/internal/fleet"
	httphandler "github.com/transitlab/bus-reservations/internal/http"
	"github.com/transitlab/bus-reservations/internal/inventory"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/rateLimit"
	"github.com/transitlab/bus-reservations/internal/reservation"
	"github.com/transitlab/bus-reservations/internal/topup"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger("api")
	clk := clock.System()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	idemp := redisadapter.NewIdempotency(redisClient)
	rl := rateLimit.NewRateLimiter(redisCache)

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
	ledger := wallet.NewLedger(repo, clk, cfg.SignupBonus)
	accounts := account.NewService(repo, ledger, clk, cfg.JWTSecret)
	fleetSvc := fleet.NewService(repo, inv, clk)
	reservations := reservation.NewManager(repo, inv, clk, logger,
		reservation.WithHoldTTL(cfg.HoldTTL),
		reservation.WithEvents(rabbitPub),
	)
	bookings := booking.NewConfirmer(repo, inv, ledger, clk, logger, rabbitPub)
	topups := topup.NewQueue(repo, ledger, clk, logger, rabbitPub)

	handlers := httphandler.NewHandlers(accounts, fleetSvc, reservations, bookings, ledger, topups, idemp)
	r := httphandler.SetupRouter(handlers, accounts, cfg.JWTSecret, clk, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	logger.WithField("addr", cfg.HTTPAddr).Info("api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
