package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spacesedan/blogrelay/config"
	"github.com/spacesedan/blogrelay/internal/clients"
	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/ingest"
	"github.com/spacesedan/blogrelay/internal/logging"
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

	awsCfg, err := clients.LoadAWSConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := db.NewBlogStore(clients.NewDynamoDBClient(awsCfg), os.Getenv("BLOGS_TABLE"))
	postQueue := queue.NewFIFOQueue(clients.NewSQSClient(awsCfg), os.Getenv("TWITTER_POST_QUEUE"))

	pageSize, _ := strconv.Atoi(os.Getenv("FEED_PAGE_SIZE"))
	feed := clients.NewFeedClient(pageSize)

	// The seen cache is optional; without it the store's conditional insert
	// carries dedup on its own.
	var seen ingest.SeenCache
	if os.Getenv("VALKEY_INIT_ADDRESS") != "" {
		valkeyClient, err := clients.NewValkeyClient()
		if err != nil {
			slog.Warn("Valkey unavailable, running without seen cache",
				slog.String("error", err.Error()))
		} else {
			defer valkeyClient.Close()
			seen = valkeyClient
		}
	}

	ingestor := ingest.New(feed, store, postQueue, seen, ingest.ConfigFromEnv())

	fetchInterval, err := strconv.Atoi(os.Getenv("FETCH_INTERVAL"))
	if err != nil || fetchInterval <= 0 {
		fetchInterval = 900 // seconds
	}

	ticker := time.NewTicker(time.Duration(fetchInterval) * time.Second)
	defer ticker.Stop()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	runOnce := func() {
		if _, err := ingestor.Run(ctx); err != nil {
			slog.Error("Ingestion run failed", slog.String("error", err.Error()))
		}
	}

	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-stopChan:
			slog.Info("Shutting down fetcher gracefully...")
			cancel()
			return
		}
	}
}
