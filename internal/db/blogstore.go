package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/blogrelay/internal/models"
)

const (
	PK_BLOG_POST = "BlogPost"
	PK_AUTHOR    = "Author"
)

var (
	// ErrAlreadyExists is returned when a conditional insert hits an existing
	// record. Expected under overlapping runs; callers swallow it.
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record not found")
)

// BlogStore is the single source of truth for blog posts and authors. All
// mutations go through conditional writes; nothing is read-modified-written.
type BlogStore struct {
	client *dynamodb.Client
	table  string
}

func NewBlogStore(client *dynamodb.Client, table string) *BlogStore {
	return &BlogStore{client: client, table: table}
}

// PutBlogPost inserts a post if and only if no record exists at its sort key.
func (s *BlogStore) PutBlogPost(ctx context.Context, post models.BlogPost) error {
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("[BlogStore] Failed to marshal blog post: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: PK_BLOG_POST}
	item["SK"] = &types.AttributeValueMemberS{Value: post.SortKey()}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("[BlogStore] Failed to store blog post: %w", err)
	}
	return nil
}

// LatestSortKey returns the sort key of the most recently stored post via a
// strongly consistent descending query, or "" when the table holds none.
func (s *BlogStore) LatestSortKey(ctx context.Context) (string, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: PK_BLOG_POST},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("[BlogStore] Failed to query latest blog post: %w", err)
	}
	if len(out.Items) == 0 {
		return "", nil
	}

	sk, ok := out.Items[0]["SK"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("[BlogStore] Latest blog post has no string sort key")
	}
	return sk.Value, nil
}

// GetBlogPost re-reads the authoritative record with a consistent read.
func (s *BlogStore) GetBlogPost(ctx context.Context, sortKey string) (*models.BlogPost, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            blogPostKey(sortKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("[BlogStore] Failed to get blog post: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var post models.BlogPost
	if err := attributevalue.UnmarshalMap(out.Item, &post); err != nil {
		return nil, fmt.Errorf("[BlogStore] Failed to unmarshal blog post: %w", err)
	}
	return &post, nil
}

// SetTweetID records the primary tweet identifier on a stored post.
func (s *BlogStore) SetTweetID(ctx context.Context, sortKey, tweetID string) error {
	return s.setAttribute(ctx, sortKey, "tweet_id", tweetID)
}

// SetExcerptTweetID records the identifier of the first excerpt reply.
func (s *BlogStore) SetExcerptTweetID(ctx context.Context, sortKey, tweetID string) error {
	return s.setAttribute(ctx, sortKey, "excerpt_id", tweetID)
}

func (s *BlogStore) setAttribute(ctx context.Context, sortKey, attr, value string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 blogPostKey(sortKey),
		UpdateExpression:    aws.String("SET #attr = :val"),
		ConditionExpression: aws.String("attribute_exists(SK)"),
		ExpressionAttributeNames: map[string]string{
			"#attr": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":val": &types.AttributeValueMemberS{Value: value},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrNotFound
		}
		return fmt.Errorf("[BlogStore] Failed to update %s: %w", attr, err)
	}
	return nil
}

// PutAuthor lazily creates an author record on first sighting; an existing
// record (possibly carrying a handle) is never touched.
func (s *BlogStore) PutAuthor(ctx context.Context, name string) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: PK_AUTHOR},
			"SK": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("[BlogStore] Failed to store author: %w", err)
	}
	return nil
}

// GetAuthor looks up an author by exact display name.
func (s *BlogStore) GetAuthor(ctx context.Context, name string) (*models.Author, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: PK_AUTHOR},
			"SK": &types.AttributeValueMemberS{Value: name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[BlogStore] Failed to get author: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var author models.Author
	if err := attributevalue.UnmarshalMap(out.Item, &author); err != nil {
		return nil, fmt.Errorf("[BlogStore] Failed to unmarshal author: %w", err)
	}
	author.Name = name
	return &author, nil
}

// UpdateAuthor overwrites an author record with handle details. Only the
// authorfill tool calls this.
func (s *BlogStore) UpdateAuthor(ctx context.Context, author models.Author) error {
	item, err := attributevalue.MarshalMap(author)
	if err != nil {
		return fmt.Errorf("[BlogStore] Failed to marshal author: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: PK_AUTHOR}
	item["SK"] = &types.AttributeValueMemberS{Value: author.Name}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[BlogStore] Failed to update author: %w", err)
	}
	return nil
}

// NextAuthorWithoutDetails pages through author records until one without a
// handle or has_twitter flag is found. With name set, only that author is
// considered.
func (s *BlogStore) NextAuthorWithoutDetails(ctx context.Context, name string) (*models.Author, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		FilterExpression:       aws.String("attribute_not_exists(twitter_handle) AND attribute_not_exists(has_twitter)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: PK_AUTHOR},
		},
	}
	if name != "" {
		input.KeyConditionExpression = aws.String("PK = :pk AND SK = :sk")
		input.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: name}
	}

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[BlogStore] Failed to query authors: %w", err)
		}
		if len(out.Items) == 0 {
			continue
		}

		sk, ok := out.Items[0]["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		var author models.Author
		if err := attributevalue.UnmarshalMap(out.Items[0], &author); err != nil {
			slog.Warn("[BlogStore] Skipping unreadable author record",
				slog.String("error", err.Error()))
			continue
		}
		author.Name = sk.Value
		return &author, nil
	}

	return nil, ErrNotFound
}

func blogPostKey(sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: PK_BLOG_POST},
		"SK": &types.AttributeValueMemberS{Value: sortKey},
	}
}
