package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/transitlab/bus-reservations/internal/adapters/mongo"
	"github.com/transitlab/bus-reservations/internal/adapters/rabbit"
	"github.com/transitlab/bus-reservations/internal/config"
	"github.com/transitlab/bus-reservations/internal/observability"
)

const auditQueue = "busres.audit.q"

// The audit worker drains every event from the topic exchange into the
// Mongo audit trail.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger("audit-worker")

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("busres"), logger)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()

	consumer, err := rabbit.NewConsumer(rabbitConn, auditQueue, "#")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown audit worker ...")
		cancel()
	}()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	logger.Info("audit worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("audit worker exiting")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Error("delivery channel closed")
				return
			}
			var data map[string]interface{}
			if err := json.Unmarshal(d.Body, &data); err != nil {
				logger.WithField("message_id", d.MessageId).Error("malformed event payload", err)
				d.Nack(false, false)
				continue
			}
			if err := audit.LogEvent(ctx, d.RoutingKey, data); err != nil {
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}
