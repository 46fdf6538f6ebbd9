package models

import (
	"crypto/md5"
	"encoding/hex"
)

// BlogPost is the authoritative record for a harvested blog post. It is
// stored in DynamoDB under PK "BlogPost" with SortKey() as the sort key and
// collects the tweet identifiers as the post moves through publishing.
type BlogPost struct {
	BlogURL          string   `json:"blog_url" dynamodbav:"blog_url"`
	DateCreated      string   `json:"date_created" dynamodbav:"date_created"`
	DateUpdated      string   `json:"date_updated" dynamodbav:"date_updated"`
	Title            string   `json:"title" dynamodbav:"title"`
	MainCategory     string   `json:"main_category" dynamodbav:"main_category"`
	Categories       []string `json:"categories" dynamodbav:"categories,stringset,omitempty"`
	Authors          []string `json:"authors" dynamodbav:"authors,stringset"`
	PostExcerpt      string   `json:"post_excerpt,omitempty" dynamodbav:"post_excerpt,omitempty"`
	FeaturedImageURL string   `json:"featured_image_url,omitempty" dynamodbav:"featured_image_url,omitempty"`
	TweetID          string   `json:"tweet_id,omitempty" dynamodbav:"tweet_id,omitempty"`
	ExcerptTweetID   string   `json:"excerpt_id,omitempty" dynamodbav:"excerpt_id,omitempty"`
}

// SortKey returns the composite sort key: creation timestamp first so a
// descending range query yields the most recent post, URL hash appended for
// uniqueness when two posts share a timestamp.
func (b BlogPost) SortKey() string {
	return b.DateCreated + "#" + HashKey(b.BlogURL)
}

// HashKey returns the md5 hex digest used for sort keys and queue
// deduplication/group ids.
func HashKey(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Author is the denormalized author record, stored under PK "Author" with the
// display name as the sort key. TwitterHandle and HasTwitter are filled in
// manually and never touched by ingestion.
type Author struct {
	Name          string `json:"name" dynamodbav:"-"`
	TwitterHandle string `json:"twitter_handle,omitempty" dynamodbav:"twitter_handle,omitempty"`
	HasTwitter    *bool  `json:"has_twitter,omitempty" dynamodbav:"has_twitter,omitempty"`
}
