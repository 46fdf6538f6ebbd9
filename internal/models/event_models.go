package models

import "time"

const BlogPostEventVersion = 1

// BlogPostEvent is the change notification published to Kafka whenever a new
// blog post lands in the table. The schema is versioned and evolves
// additively; consumers must tolerate unknown fields.
type BlogPostEvent struct {
	Metadata EventMetadata     `json:"metadata"`
	Data     BlogPostEventData `json:"data"`
}

type EventMetadata struct {
	EventID      string `json:"event_id"`
	EventTime    string `json:"event_time"`
	EventVersion int    `json:"event_version"`
}

// BlogPostEventData mirrors the public fields of BlogPost. Tweet identifiers
// are deliberately absent: the mirror path must not depend on the Twitter
// state machine.
type BlogPostEventData struct {
	BlogURL      string   `json:"blog_url"`
	DateCreated  string   `json:"date_created"`
	DateUpdated  string   `json:"date_updated"`
	Title        string   `json:"title"`
	MainCategory string   `json:"main_category"`
	Categories   []string `json:"categories"`
	Authors      []string `json:"authors"`
	PostExcerpt  string   `json:"post_excerpt,omitempty"`
}

// NewBlogPostEvent wraps a stored post in a versioned envelope.
func NewBlogPostEvent(post BlogPost, now time.Time) BlogPostEvent {
	eventTime := now.UTC().Format(time.RFC3339Nano)
	return BlogPostEvent{
		Metadata: EventMetadata{
			EventID:      HashKey(post.BlogURL + "#" + eventTime),
			EventTime:    eventTime,
			EventVersion: BlogPostEventVersion,
		},
		Data: BlogPostEventData{
			BlogURL:      post.BlogURL,
			DateCreated:  post.DateCreated,
			DateUpdated:  post.DateUpdated,
			Title:        post.Title,
			MainCategory: post.MainCategory,
			Categories:   post.Categories,
			Authors:      post.Authors,
			PostExcerpt:  post.PostExcerpt,
		},
	}
}
