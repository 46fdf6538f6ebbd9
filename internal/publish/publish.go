// Package publish contains the per-post publishing state machine:
// unpublished -> primary-posted -> thread-posted, plus the independent
// Mastodon mirror. Consistency violations are raised, never skipped; a
// duplicate delivery reaching a publisher means the queue's dedup window was
// outlived or something is broken, and it must trip alerting.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/spacesedan/blogrelay/internal/models"
)

var (
	// ErrDuplicateDelivery marks a post that already carries the identifier
	// the current step would produce.
	ErrDuplicateDelivery = errors.New("post already published for this step")
	// ErrMissingParent marks a thread attempt on a post with no primary
	// tweet to reply to.
	ErrMissingParent = errors.New("post has no primary tweet")
)

// PostStore is the slice of BlogStore the publishers need.
type PostStore interface {
	GetBlogPost(ctx context.Context, sortKey string) (*models.BlogPost, error)
	GetAuthor(ctx context.Context, name string) (*models.Author, error)
	SetTweetID(ctx context.Context, sortKey, tweetID string) error
	SetExcerptTweetID(ctx context.Context, sortKey, tweetID string) error
}

// StatusPoster sends statuses to the primary platform.
type StatusPoster interface {
	PostStatus(ctx context.Context, status string) (string, error)
	PostReply(ctx context.Context, status, inReplyToID string) (string, error)
}

// Enqueuer forwards a post key to a follow-up queue.
type Enqueuer interface {
	Send(ctx context.Context, body string, delay time.Duration) error
}
