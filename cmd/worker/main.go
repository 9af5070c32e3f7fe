package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/config"
	"github.com/unclebandit/campaigner/internal/logging"
	"github.com/unclebandit/campaigner/internal/queue"
)

// The worker consumes recipient outcome events that campaigner processes
// publish to RabbitMQ and writes them to its log.
func main() {
	configPath := flag.String("config", "campaigner.yaml", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is not set, nothing to consume")
	}

	q, err := queue.DialAMQP(cfg.AMQPURL, logger.Named("amqp"))
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer q.Close()
	q.QueueNames = map[string]string{queue.TopicRecipientOutcomes: cfg.AMQPQueue}

	if err := queue.StartOutcomeLogger(q, logger.Named("outcomes")); err != nil {
		logger.Fatal("failed to consume outcomes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker running, waiting for outcomes", zap.String("queue", cfg.AMQPQueue))
	<-ctx.Done()
}
