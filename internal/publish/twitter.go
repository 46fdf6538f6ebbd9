package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/models"
	"github.com/spacesedan/blogrelay/internal/textfit"
)

const (
	// TWEET_MAX_LEN is the platform budget per tweet.
	TWEET_MAX_LEN = 280
	// TWEET_URL_CHARS is what the platform charges for any URL after link
	// shortening.
	TWEET_URL_CHARS = 23
	// DEFAULT_THREAD_DELAY postpones the thread continuation so the primary
	// tweet is visible before a reply references it. Soft ordering only; the
	// thread publisher's parent check is the real gate.
	DEFAULT_THREAD_DELAY = 30 * time.Second
)

var tweetFit = textfit.FitSpec{MaxLen: TWEET_MAX_LEN, URLChars: TWEET_URL_CHARS, Sep: "\n"}

// TweetPublisher posts the primary tweet for a stored blog post and forwards
// the key to the thread queue.
type TweetPublisher struct {
	store       PostStore
	twitter     StatusPoster
	threadQueue Enqueuer
	threadDelay time.Duration
}

func NewTweetPublisher(store PostStore, twitter StatusPoster, threadQueue Enqueuer) *TweetPublisher {
	return &TweetPublisher{
		store:       store,
		twitter:     twitter,
		threadQueue: threadQueue,
		threadDelay: DEFAULT_THREAD_DELAY,
	}
}

// HandleMessage processes one queued post key.
func (p *TweetPublisher) HandleMessage(ctx context.Context, sortKey string) error {
	post, err := p.store.GetBlogPost(ctx, sortKey)
	if err != nil {
		return fmt.Errorf("[TweetPublisher] Failed to load post %s: %w", sortKey, err)
	}

	if post.TweetID != "" {
		return fmt.Errorf("[TweetPublisher] A tweet with ID %s was found for blog %s: %w",
			post.TweetID, post.BlogURL, ErrDuplicateDelivery)
	}

	status := p.composeTweet(ctx, post)
	tweetID, err := p.twitter.PostStatus(ctx, status)
	if err != nil {
		return err
	}

	// A failure past this point is the known inconsistency window: the tweet
	// exists but the record does not say so. The duplicate check above is
	// what surfaces it on redelivery.
	if err := p.store.SetTweetID(ctx, sortKey, tweetID); err != nil {
		return fmt.Errorf("[TweetPublisher] Tweet %s posted but not recorded for %s: %w",
			tweetID, post.BlogURL, err)
	}

	if err := p.threadQueue.Send(ctx, sortKey, p.threadDelay); err != nil {
		return fmt.Errorf("[TweetPublisher] Failed to enqueue thread continuation for %s: %w",
			post.BlogURL, err)
	}

	slog.Info("[TweetPublisher] Blog post tweeted",
		slog.String("blog_url", post.BlogURL),
		slog.String("tweet_id", tweetID))
	return nil
}

func (p *TweetPublisher) composeTweet(ctx context.Context, post *models.BlogPost) string {
	authors := textfit.JoinAuthors(p.mapAuthorHandles(ctx, post.Authors))
	base := fmt.Sprintf("New %s post by %s:\n\n", post.MainCategory, authors)
	return tweetFit.Fit(base, post.Title, post.BlogURL)
}

// mapAuthorHandles swaps display names for Twitter handles where one is
// recorded; unknown authors keep their literal name.
func (p *TweetPublisher) mapAuthorHandles(ctx context.Context, names []string) []string {
	mapped := make([]string, 0, len(names))
	for _, name := range names {
		author, err := p.store.GetAuthor(ctx, name)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				slog.Warn("[TweetPublisher] Author lookup failed, using display name",
					slog.String("author", name),
					slog.String("error", err.Error()))
			}
			mapped = append(mapped, name)
			continue
		}
		if author.TwitterHandle == "" {
			mapped = append(mapped, name)
			continue
		}
		handle := author.TwitterHandle
		if handle[0] != '@' {
			handle = "@" + handle
		}
		mapped = append(mapped, handle)
	}
	return mapped
}
