package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/blogrelay/internal/textfit"
)

// ThreadPublisher posts the full excerpt as a chain of replies under the
// primary tweet.
type ThreadPublisher struct {
	store   PostStore
	twitter StatusPoster
}

func NewThreadPublisher(store PostStore, twitter StatusPoster) *ThreadPublisher {
	return &ThreadPublisher{store: store, twitter: twitter}
}

// HandleMessage processes one queued post key from the thread queue.
func (p *ThreadPublisher) HandleMessage(ctx context.Context, sortKey string) error {
	post, err := p.store.GetBlogPost(ctx, sortKey)
	if err != nil {
		return fmt.Errorf("[ThreadPublisher] Failed to load post %s: %w", sortKey, err)
	}

	if post.ExcerptTweetID != "" {
		return fmt.Errorf("[ThreadPublisher] An excerpt tweet with ID %s was found for blog %s: %w",
			post.ExcerptTweetID, post.BlogURL, ErrDuplicateDelivery)
	}
	if post.TweetID == "" {
		return fmt.Errorf("[ThreadPublisher] The item for blog %s has no tweet to reply to: %w",
			post.BlogURL, ErrMissingParent)
	}

	if post.PostExcerpt == "" {
		// Legitimate terminal state; nothing to thread.
		slog.Info("[ThreadPublisher] Post has no excerpt, nothing to do",
			slog.String("blog_url", post.BlogURL))
		return nil
	}

	texts := textfit.Split("Excerpt: "+post.PostExcerpt, TWEET_MAX_LEN)

	// Each reply chains on the previous one so the thread stays linear.
	replyTo := post.TweetID
	firstID := ""
	for i, text := range texts {
		tweetID, err := p.twitter.PostReply(ctx, text, replyTo)
		if err != nil {
			return fmt.Errorf("[ThreadPublisher] Failed to post excerpt part %d/%d for %s: %w",
				i+1, len(texts), post.BlogURL, err)
		}
		replyTo = tweetID
		if firstID == "" {
			firstID = tweetID
		}
	}

	if err := p.store.SetExcerptTweetID(ctx, sortKey, firstID); err != nil {
		return fmt.Errorf("[ThreadPublisher] Excerpt thread posted but not recorded for %s: %w",
			post.BlogURL, err)
	}

	slog.Info("[ThreadPublisher] Excerpt thread posted",
		slog.String("blog_url", post.BlogURL),
		slog.String("excerpt_id", firstID),
		slog.Int("parts", len(texts)))
	return nil
}
