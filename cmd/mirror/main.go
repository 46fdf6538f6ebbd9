package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/blogrelay/config"
	"github.com/spacesedan/blogrelay/internal/clients"
	"github.com/spacesedan/blogrelay/internal/clients/kafka_client"
	"github.com/spacesedan/blogrelay/internal/logging"
	"github.com/spacesedan/blogrelay/internal/models"
	"github.com/spacesedan/blogrelay/internal/publish"
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
		slog.Info("Shutting down mirror gracefully...")
		cancel()
	}()

	awsCfg, err := clients.LoadAWSConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	token, err := clients.FetchMastodonToken(ctx,
		clients.NewSSMClient(awsCfg), os.Getenv("MASTODON_TOKEN_PARAMETER"))
	if err != nil {
		slog.Error("Failed to fetch Mastodon token", slog.String("error", err.Error()))
		os.Exit(1)
	}

	baseURL := os.Getenv("MASTODON_BASE_URL")
	if baseURL == "" {
		baseURL = "https://awscommunity.social/"
	}
	publisher := publish.NewMirrorPublisher(clients.NewMastodonClient(baseURL, token))

	consumer, err := kafka_client.NewConsumer(kafka_client.GetKafkaConfig())
	if err != nil {
		slog.Error("Failed to initialize Kafka consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	iterator := kafka_client.NewMessageIterator(ctx, consumer)
	for {
		msg, err := iterator.Next()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("Failed to read message", slog.String("error", err.Error()))
			os.Exit(1)
		}

		var event models.BlogPostEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// A poison message would block the partition forever; log it,
			// commit, move on.
			slog.Error("Dropping undecodable event",
				slog.String("error", err.Error()))
			_ = iterator.Commit(msg)
			continue
		}

		if err := publisher.HandleEvent(ctx, event); err != nil {
			// No commit: the message is redelivered and eventually lands in
			// the dead-letter topic via the consumer group's retry policy.
			slog.Error("Failed to mirror post",
				slog.String("blog_url", event.Data.BlogURL),
				slog.String("error", err.Error()))
			continue
		}

		if err := iterator.Commit(msg); err != nil {
			slog.Warn("Failed to commit offset", slog.String("error", err.Error()))
		}
	}
}
