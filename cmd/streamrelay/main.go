package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/blogrelay/config"
	"github.com/spacesedan/blogrelay/internal/clients"
	"github.com/spacesedan/blogrelay/internal/clients/kafka_client"
	"github.com/spacesedan/blogrelay/internal/logging"
	"github.com/spacesedan/blogrelay/internal/streams"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
		<-stopChan
		slog.Info("Shutting down streamrelay gracefully...")
		cancel()
	}()

	awsCfg, err := clients.LoadAWSConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	producer, err := kafka_client.NewProducer(kafka_client.GetKafkaConfig())
	if err != nil {
		slog.Error("Failed to initialize Kafka producer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer producer.Close()

	relay := streams.NewRelay(
		clients.NewDynamoDBClient(awsCfg),
		clients.NewDynamoDBStreamsClient(awsCfg),
		producer,
		os.Getenv("BLOGS_TABLE"),
		kafka_client.KAFKA_TOPIC_NEW_BLOG_POSTS,
	)

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Stream relay stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
