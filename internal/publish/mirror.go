package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/blogrelay/internal/models"
	"github.com/spacesedan/blogrelay/internal/textfit"
)

// MASTODON_MAX_LEN is the default per-post budget on the mirror platform,
// which counts URLs at their natural length.
const MASTODON_MAX_LEN = 500

// MirrorPoster sends a single status to the mirror platform.
type MirrorPoster interface {
	PostStatus(ctx context.Context, status string) (string, error)
}

// MirrorPublisher republishes new posts to Mastodon from change
// notifications. It is stateless: no store reads, no store writes, no
// coupling to the Twitter state machine.
type MirrorPublisher struct {
	mastodon MirrorPoster
	fit      textfit.FitSpec
}

func NewMirrorPublisher(mastodon MirrorPoster) *MirrorPublisher {
	return &MirrorPublisher{
		mastodon: mastodon,
		fit:      textfit.FitSpec{MaxLen: MASTODON_MAX_LEN, Sep: "\n\n"},
	}
}

// HandleEvent composes and posts the mirror status for one new-post event.
func (p *MirrorPublisher) HandleEvent(ctx context.Context, event models.BlogPostEvent) error {
	data := event.Data

	// Display names only; handle mapping belongs to the Twitter path.
	authors := textfit.JoinAuthors(data.Authors)
	base := fmt.Sprintf("New %s post by %s:\n\n%s\n\n", data.MainCategory, authors, data.Title)
	status := p.fit.Fit(base, data.PostExcerpt, data.BlogURL)

	statusID, err := p.mastodon.PostStatus(ctx, status)
	if err != nil {
		return err
	}

	slog.Info("[MirrorPublisher] Blog post mirrored",
		slog.String("blog_url", data.BlogURL),
		slog.String("status_id", statusID),
		slog.String("event_id", event.Metadata.EventID))
	return nil
}
