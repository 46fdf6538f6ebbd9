package kafka_client

import "time"

const (
	// KAFKA_TOPIC_NEW_BLOG_POSTS carries one schema-versioned envelope per
	// newly ingested blog post, keyed by blog URL.
	KAFKA_TOPIC_NEW_BLOG_POSTS = "new-blog-posts"
)

const (
	MAX_RETRIES = 5
	RETRY_DELAY = 2 * time.Second
)
