package streams

import (
	"testing"

	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/blogrelay/internal/models"
)

func TestUnmarshalStreamImageBlogPost(t *testing.T) {
	t.Parallel()

	image := map[string]streamtypes.AttributeValue{
		"PK":            &streamtypes.AttributeValueMemberS{Value: "BlogPost"},
		"SK":            &streamtypes.AttributeValueMemberS{Value: "2023-02-20T14:46:42+0000#abc"},
		"blog_url":      &streamtypes.AttributeValueMemberS{Value: "https://aws.amazon.com/blogs/compute/new-thing/"},
		"date_created":  &streamtypes.AttributeValueMemberS{Value: "2023-02-20T14:46:42+0000"},
		"date_updated":  &streamtypes.AttributeValueMemberS{Value: "2023-02-20T15:00:00+0000"},
		"title":         &streamtypes.AttributeValueMemberS{Value: "Announcing a new thing"},
		"main_category": &streamtypes.AttributeValueMemberS{Value: "Compute"},
		"authors":       &streamtypes.AttributeValueMemberSS{Value: []string{"Jane Doe", "John Smith"}},
		"post_excerpt":  &streamtypes.AttributeValueMemberS{Value: "A short excerpt."},
	}

	var post models.BlogPost
	require.NoError(t, UnmarshalStreamImage(image, &post))

	assert.Equal(t, "https://aws.amazon.com/blogs/compute/new-thing/", post.BlogURL)
	assert.Equal(t, "Announcing a new thing", post.Title)
	assert.Equal(t, "Compute", post.MainCategory)
	assert.ElementsMatch(t, []string{"Jane Doe", "John Smith"}, post.Authors)
	assert.Equal(t, "A short excerpt.", post.PostExcerpt)
	assert.Empty(t, post.TweetID)
}

func TestUnmarshalStreamImageNestedTypes(t *testing.T) {
	t.Parallel()

	type record struct {
		Counts []int             `dynamodbav:"counts"`
		Labels map[string]string `dynamodbav:"labels"`
		Live   bool              `dynamodbav:"live"`
	}

	image := map[string]streamtypes.AttributeValue{
		"counts": &streamtypes.AttributeValueMemberL{Value: []streamtypes.AttributeValue{
			&streamtypes.AttributeValueMemberN{Value: "1"},
			&streamtypes.AttributeValueMemberN{Value: "2"},
		}},
		"labels": &streamtypes.AttributeValueMemberM{Value: map[string]streamtypes.AttributeValue{
			"env": &streamtypes.AttributeValueMemberS{Value: "prod"},
		}},
		"live": &streamtypes.AttributeValueMemberBOOL{Value: true},
	}

	var out record
	require.NoError(t, UnmarshalStreamImage(image, &out))

	assert.Equal(t, []int{1, 2}, out.Counts)
	assert.Equal(t, map[string]string{"env": "prod"}, out.Labels)
	assert.True(t, out.Live)
}

func TestUnmarshalStreamImageNilImage(t *testing.T) {
	t.Parallel()

	var post models.BlogPost
	assert.Error(t, UnmarshalStreamImage(nil, &post))
}
