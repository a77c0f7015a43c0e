package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/erain9/otcbook/config"
	"github.com/erain9/otcbook/pkg/backend/memory"
	"github.com/erain9/otcbook/pkg/backend/pebble"
	"github.com/erain9/otcbook/pkg/backend/redis"
	"github.com/erain9/otcbook/pkg/core"
	"github.com/erain9/otcbook/pkg/db/queue"
	"github.com/erain9/otcbook/pkg/logging"
	"github.com/erain9/otcbook/pkg/messaging"
	"github.com/erain9/otcbook/pkg/messaging/kafka"
	"github.com/erain9/otcbook/pkg/otel"
	"github.com/erain9/otcbook/pkg/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
	})
	logger := zlog.Logger

	// Create default context with logger
	ctx := logger.WithContext(context.Background())

	// Open the storage backend
	backend, err := openBackend(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Backend.Kind).Msg("Failed to open backend")
	}
	defer backend.Close()

	logger.Info().Str("backend", cfg.Backend.Kind).Msg("Opened storage backend")

	book := core.NewOrderBook(backend)
	registry := core.NewRegistry(backend)

	if cfg.Kafka.Enabled {
		// The kafka-go producer is an alternative to the default
		// sarama-backed sender pool
		if cfg.Kafka.Producer == "kafka-go" {
			queue.SetSenderFactory(func() (messaging.MessageSender, error) {
				return kafka.NewKafkaMessageSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
			})
			logger.Info().Str("producer", cfg.Kafka.Producer).Msg("Using kafka-go fill publisher")
		}

		// The consumer is for developer purpose which helps pretty print
		// the fill messages in the queue.
		kafkaConsumer, err := kafka.SetupConsumer(ctx, logger)
		if err == nil && kafkaConsumer != nil {
			defer kafkaConsumer.Close()
		}
	}

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:    otel.ServiceName,
		ServiceVersion: "1.0.0",
		Endpoint:       "localhost:4317", // Change this to your collector endpoint
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	// Start the API server
	apiServer := server.NewServer(book, registry)
	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("Starting HTTP server")
		if err := apiServer.Start(cfg.Server.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Server shutdown complete")
}

// openBackend selects the storage backend named in the config
func openBackend(cfg *config.Config) (core.Backend, error) {
	switch cfg.Backend.Kind {
	case "memory", "":
		return memory.NewMemoryBackend(), nil
	case "pebble":
		return pebble.NewPebbleBackend(cfg.Backend.PebblePath)
	case "redis":
		redis.SetDefaultRedisOptions(&redis.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		zapLogger, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return redis.NewRedisBackend(redis.GetRedisClient(), "otcbook", zapLogger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
	}
}
