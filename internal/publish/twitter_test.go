package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/models"
)

type fakeStore struct {
	posts         map[string]*models.BlogPost
	authors       map[string]*models.Author
	tweetIDs      map[string]string
	excerptIDs    map[string]string
	setTweetIDErr error
}

func newPublishStore(posts ...*models.BlogPost) *fakeStore {
	s := &fakeStore{
		posts:      make(map[string]*models.BlogPost),
		authors:    make(map[string]*models.Author),
		tweetIDs:   make(map[string]string),
		excerptIDs: make(map[string]string),
	}
	for _, p := range posts {
		s.posts[p.SortKey()] = p
	}
	return s
}

func (s *fakeStore) GetBlogPost(_ context.Context, sortKey string) (*models.BlogPost, error) {
	post, ok := s.posts[sortKey]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (s *fakeStore) GetAuthor(_ context.Context, name string) (*models.Author, error) {
	author, ok := s.authors[name]
	if !ok {
		return nil, db.ErrNotFound
	}
	return author, nil
}

func (s *fakeStore) SetTweetID(_ context.Context, sortKey, tweetID string) error {
	if s.setTweetIDErr != nil {
		return s.setTweetIDErr
	}
	s.tweetIDs[sortKey] = tweetID
	s.posts[sortKey].TweetID = tweetID
	return nil
}

func (s *fakeStore) SetExcerptTweetID(_ context.Context, sortKey, tweetID string) error {
	s.excerptIDs[sortKey] = tweetID
	s.posts[sortKey].ExcerptTweetID = tweetID
	return nil
}

type fakeTwitter struct {
	statuses  []string
	replies   []string
	replyTos  []string
	statusErr error
	nextID    int
}

func (t *fakeTwitter) PostStatus(_ context.Context, status string) (string, error) {
	if t.statusErr != nil {
		return "", t.statusErr
	}
	t.statuses = append(t.statuses, status)
	t.nextID++
	return fmt.Sprintf("tweet-%d", t.nextID), nil
}

func (t *fakeTwitter) PostReply(_ context.Context, status, inReplyToID string) (string, error) {
	if t.statusErr != nil {
		return "", t.statusErr
	}
	t.replies = append(t.replies, status)
	t.replyTos = append(t.replyTos, inReplyToID)
	t.nextID++
	return fmt.Sprintf("tweet-%d", t.nextID), nil
}

type fakeEnqueuer struct {
	bodies []string
	delays []time.Duration
}

func (q *fakeEnqueuer) Send(_ context.Context, body string, delay time.Duration) error {
	q.bodies = append(q.bodies, body)
	q.delays = append(q.delays, delay)
	return nil
}

func testPost() *models.BlogPost {
	return &models.BlogPost{
		BlogURL:      "https://aws.amazon.com/blogs/compute/new-thing/",
		DateCreated:  "2023-02-20T14:46:42+0000",
		Title:        "Announcing a new thing",
		MainCategory: "Compute",
		Authors:      []string{"Jane Doe", "John Smith"},
		PostExcerpt:  "A short excerpt about the new thing.",
	}
}

func TestTweetPublisherPostsAndChains(t *testing.T) {
	t.Parallel()

	post := testPost()
	store := newPublishStore(post)
	store.authors["Jane Doe"] = &models.Author{Name: "Jane Doe", TwitterHandle: "janedoe"}
	twitter := &fakeTwitter{}
	threadQueue := &fakeEnqueuer{}

	p := NewTweetPublisher(store, twitter, threadQueue)
	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	require.Len(t, twitter.statuses, 1)
	status := twitter.statuses[0]
	assert.True(t, strings.HasPrefix(status, "New Compute post by @janedoe and John Smith:\n\n"))
	assert.Contains(t, status, post.Title)
	assert.Contains(t, status, post.BlogURL)

	assert.Equal(t, "tweet-1", store.tweetIDs[post.SortKey()])
	assert.Equal(t, []string{post.SortKey()}, threadQueue.bodies)
	assert.Equal(t, []time.Duration{DEFAULT_THREAD_DELAY}, threadQueue.delays)
}

func TestTweetPublisherSecondDeliveryRaisesAndPostsNothing(t *testing.T) {
	t.Parallel()

	post := testPost()
	store := newPublishStore(post)
	twitter := &fakeTwitter{}
	threadQueue := &fakeEnqueuer{}
	p := NewTweetPublisher(store, twitter, threadQueue)

	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	err := p.HandleMessage(context.Background(), post.SortKey())
	require.ErrorIs(t, err, ErrDuplicateDelivery)
	assert.Len(t, twitter.statuses, 1)
	assert.Len(t, threadQueue.bodies, 1)
}

func TestTweetPublisherAPIFailureLeavesRecordUntouched(t *testing.T) {
	t.Parallel()

	post := testPost()
	store := newPublishStore(post)
	twitter := &fakeTwitter{statusErr: errors.New("rate limited")}
	p := NewTweetPublisher(store, twitter, &fakeEnqueuer{})

	err := p.HandleMessage(context.Background(), post.SortKey())
	require.Error(t, err)
	assert.Empty(t, store.tweetIDs)
}

func TestTweetPublisherRecordFailureSurfacesTweetID(t *testing.T) {
	t.Parallel()

	post := testPost()
	store := newPublishStore(post)
	store.setTweetIDErr = errors.New("throttled")
	twitter := &fakeTwitter{}
	threadQueue := &fakeEnqueuer{}
	p := NewTweetPublisher(store, twitter, threadQueue)

	err := p.HandleMessage(context.Background(), post.SortKey())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tweet-1")
	// The continuation is not enqueued when the record write fails.
	assert.Empty(t, threadQueue.bodies)
}

func TestTweetPublisherLongTitleStaysWithinBudget(t *testing.T) {
	t.Parallel()

	post := testPost()
	post.Title = strings.Repeat("word ", 80)
	store := newPublishStore(post)
	twitter := &fakeTwitter{}
	p := NewTweetPublisher(store, twitter, &fakeEnqueuer{})

	require.NoError(t, p.HandleMessage(context.Background(), post.SortKey()))

	require.Len(t, twitter.statuses, 1)
	status := twitter.statuses[0]
	counted := utf8.RuneCountInString(status) - utf8.RuneCountInString(post.BlogURL) + TWEET_URL_CHARS
	assert.LessOrEqual(t, counted, TWEET_MAX_LEN)
	assert.True(t, strings.HasSuffix(status, post.BlogURL))
}
