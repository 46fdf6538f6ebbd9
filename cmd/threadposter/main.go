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
	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/logging"
	"github.com/spacesedan/blogrelay/internal/publish"
	"github.com/spacesedan/blogrelay/internal/queue"
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
		slog.Info("Shutting down threadposter gracefully...")
		cancel()
	}()

	awsCfg, err := clients.LoadAWSConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	creds, err := clients.FetchTwitterCredentials(ctx,
		clients.NewSecretsManagerClient(awsCfg), os.Getenv("TWITTER_SECRET"))
	if err != nil {
		slog.Error("Failed to fetch Twitter credentials", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := db.NewBlogStore(clients.NewDynamoDBClient(awsCfg), os.Getenv("BLOGS_TABLE"))
	threadQueue := queue.NewFIFOQueue(clients.NewSQSClient(awsCfg), os.Getenv("TWITTER_THREAD_QUEUE"))

	publisher := publish.NewThreadPublisher(store, clients.NewTwitterClient(creds))

	if err := threadQueue.Consume(ctx, publisher.HandleMessage); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Error("Consumer stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
