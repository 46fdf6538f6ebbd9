// Package ingest harvests the upstream blog feed incrementally: it walks
// pages newest-first until the previously stored high-water mark shows up,
// then writes everything newer, oldest first, exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/models"
)

const DEFAULT_MAX_PAGES = 6

// Feed fetches one page of the remote feed, newest first.
type Feed interface {
	FetchPage(ctx context.Context, page int) (*models.FeedSearchResponse, error)
}

// Store is the slice of BlogStore the ingestor needs.
type Store interface {
	LatestSortKey(ctx context.Context) (string, error)
	PutBlogPost(ctx context.Context, post models.BlogPost) error
	PutAuthor(ctx context.Context, name string) error
}

// Enqueuer hands accepted posts to the publishing pipeline.
type Enqueuer interface {
	Send(ctx context.Context, body string, delay time.Duration) error
}

// SeenCache is a best-effort front for the store's conditional insert.
type SeenCache interface {
	IsBlogSeen(ctx context.Context, sortKey string) bool
	MarkBlogSeen(ctx context.Context, sortKey string) error
}

type Config struct {
	// MaxPages bounds one run's worth of feed pages. When the high-water
	// mark is older than the cap covers, the overflow is silently dropped.
	MaxPages int
}

// ConfigFromEnv reads the tunables; the page cap is deliberately a knob, not
// a constant.
func ConfigFromEnv() Config {
	maxPages, err := strconv.Atoi(os.Getenv("FEED_MAX_PAGES"))
	if err != nil || maxPages <= 0 {
		maxPages = DEFAULT_MAX_PAGES
	}
	return Config{MaxPages: maxPages}
}

type Ingestor struct {
	feed  Feed
	store Store
	queue Enqueuer
	seen  SeenCache // optional
	cfg   Config
}

func New(feed Feed, store Store, queue Enqueuer, seen SeenCache, cfg Config) *Ingestor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DEFAULT_MAX_PAGES
	}
	return &Ingestor{feed: feed, store: store, queue: queue, seen: seen, cfg: cfg}
}

// Summary aggregates per-item outcomes of one run.
type Summary struct {
	Parsed     int
	Malformed  int
	Stored     int
	Duplicates int
	Failed     int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("parsed", s.Parsed),
		slog.Int("malformed", s.Malformed),
		slog.Int("stored", s.Stored),
		slog.Int("duplicates", s.Duplicates),
		slog.Int("failed", s.Failed),
	)
}

// Run performs one bounded ingestion pass and returns how many posts were
// newly stored.
func (ing *Ingestor) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	mark, err := ing.store.LatestSortKey(ctx)
	if err != nil {
		return summary, fmt.Errorf("[Ingestor] Failed to read high-water mark: %w", err)
	}
	if mark == "" {
		slog.Info("[Ingestor] Store is empty, latest pages become the initial backfill")
	}

	posts, err := ing.collectNewPosts(ctx, mark, &summary)
	if err != nil {
		return summary, err
	}

	// Oldest first, so the publishing order follows the creation order.
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}

	slog.Info("[Ingestor] Storing new posts", slog.Int("count", len(posts)))
	for _, post := range posts {
		ing.storeAndEnqueue(ctx, post, &summary)
	}

	slog.Info("[Ingestor] Run complete", slog.Any("summary", summary))
	return summary, nil
}

// collectNewPosts pages through the feed until the high-water mark appears,
// the feed runs dry, or the page cap is hit. The returned slice is
// newest-first and contains only posts strictly newer than the mark.
func (ing *Ingestor) collectNewPosts(ctx context.Context, mark string, summary *Summary) ([]models.BlogPost, error) {
	var accumulated []models.BlogPost

	for page := 0; page < ing.cfg.MaxPages; page++ {
		response, err := ing.feed.FetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("[Ingestor] Feed fetch failed on page %d: %w", page, err)
		}
		if len(response.Items) == 0 {
			slog.Info("[Ingestor] Feed page empty, stopping", slog.Int("page", page))
			return accumulated, nil
		}

		markIndex := -1
		for _, entry := range response.Items {
			post, err := parseEntry(entry)
			if err != nil {
				summary.Malformed++
				slog.Warn("[Ingestor] Dropping malformed feed item",
					slog.Int("page", page),
					slog.String("reason", err.Error()))
				continue
			}
			summary.Parsed++

			if mark != "" && post.SortKey() == mark && markIndex == -1 {
				markIndex = len(accumulated)
			}
			accumulated = append(accumulated, post)
		}

		if markIndex != -1 {
			slog.Info("[Ingestor] High-water mark found, stopping",
				slog.Int("page", page),
				slog.Int("new_items", markIndex))
			return accumulated[:markIndex], nil
		}
	}

	slog.Warn("[Ingestor] Page cap reached before finding high-water mark",
		slog.Int("max_pages", ing.cfg.MaxPages))
	return accumulated, nil
}

// storeAndEnqueue writes one post and its authors, then hands the key to the
// post queue. Each failure is isolated to its item.
func (ing *Ingestor) storeAndEnqueue(ctx context.Context, post models.BlogPost, summary *Summary) {
	sortKey := post.SortKey()

	if ing.seen != nil && ing.seen.IsBlogSeen(ctx, sortKey) {
		summary.Duplicates++
		return
	}

	if err := ing.store.PutBlogPost(ctx, post); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// Two overlapping runs racing; expected and harmless.
			summary.Duplicates++
			slog.Info("[Ingestor] Post already stored, skipping",
				slog.String("blog_url", post.BlogURL))
		} else {
			summary.Failed++
			slog.Error("[Ingestor] Failed to store post, continuing",
				slog.String("blog_url", post.BlogURL),
				slog.String("error", err.Error()))
		}
		return
	}

	for _, name := range post.Authors {
		if err := ing.store.PutAuthor(ctx, name); err != nil && !errors.Is(err, db.ErrAlreadyExists) {
			slog.Warn("[Ingestor] Failed to store author",
				slog.String("author", name),
				slog.String("error", err.Error()))
		}
	}

	if err := ing.queue.Send(ctx, sortKey, 0); err != nil {
		summary.Failed++
		slog.Error("[Ingestor] Failed to enqueue post",
			slog.String("blog_url", post.BlogURL),
			slog.String("error", err.Error()))
		return
	}

	if ing.seen != nil {
		if err := ing.seen.MarkBlogSeen(ctx, sortKey); err != nil {
			slog.Warn("[Ingestor] Failed to mark post as seen",
				slog.String("error", err.Error()))
		}
	}

	summary.Stored++
}
