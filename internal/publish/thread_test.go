package publish

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPublisherChainsReplies(t *testing.T) {
	t.Parallel()

	post := testPost()
	post.TweetID = "tweet-parent"
	post.PostExcerpt = strings.Repeat("lorem ipsum dolor sit amet ", 30)
	store := newPublishStore(post)
	twitter := &fakeTwitter{}

	p := NewThreadPublisher(store, twitter)
	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	require.GreaterOrEqual(t, len(twitter.replies), 2)
	for _, reply := range twitter.replies {
		assert.LessOrEqual(t, utf8.RuneCountInString(reply), TWEET_MAX_LEN)
	}
	assert.True(t, strings.HasPrefix(twitter.replies[0], "Excerpt: "))

	// First reply answers the primary tweet, each later one the reply before.
	assert.Equal(t, "tweet-parent", twitter.replyTos[0])
	for i := 1; i < len(twitter.replyTos); i++ {
		assert.Equal(t, fmt.Sprintf("tweet-%d", i), twitter.replyTos[i])
	}

	// The first reply's id is what the record keeps.
	assert.Equal(t, "tweet-1", store.excerptIDs[post.SortKey()])
}

func TestThreadPublisherShortExcerptSingleReply(t *testing.T) {
	t.Parallel()

	post := testPost()
	post.TweetID = "tweet-parent"
	store := newPublishStore(post)
	twitter := &fakeTwitter{}

	p := NewThreadPublisher(store, twitter)
	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	require.Len(t, twitter.replies, 1)
	assert.Equal(t, "Excerpt: "+post.PostExcerpt, twitter.replies[0])
	assert.NotContains(t, twitter.replies[0], "[1/1]")
}

func TestThreadPublisherNoExcerptIsTerminal(t *testing.T) {
	t.Parallel()

	post := testPost()
	post.TweetID = "tweet-parent"
	post.PostExcerpt = ""
	store := newPublishStore(post)
	twitter := &fakeTwitter{}

	p := NewThreadPublisher(store, twitter)
	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	assert.Empty(t, twitter.replies)
	assert.Empty(t, store.excerptIDs)
}

func TestThreadPublisherMissingParentRaises(t *testing.T) {
	t.Parallel()

	post := testPost()
	store := newPublishStore(post)
	twitter := &fakeTwitter{}

	p := NewThreadPublisher(store, twitter)
	err := p.HandleMessage(context.Background(), post.SortKey())

	require.ErrorIs(t, err, ErrMissingParent)
	assert.Empty(t, twitter.replies)
}

func TestThreadPublisherSecondDeliveryRaises(t *testing.T) {
	t.Parallel()

	post := testPost()
	post.TweetID = "tweet-parent"
	post.ExcerptTweetID = "tweet-2"
	store := newPublishStore(post)
	twitter := &fakeTwitter{}

	p := NewThreadPublisher(store, twitter)
	err := p.HandleMessage(context.Background(), post.SortKey())

	require.ErrorIs(t, err, ErrDuplicateDelivery)
	assert.Empty(t, twitter.replies)
}
