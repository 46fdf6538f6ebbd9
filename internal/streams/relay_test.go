package streams

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/models"
)

type recordsResult struct {
	out *dynamodbstreams.GetRecordsOutput
	err error
}

// fakeStreams scripts the streams API: DescribeStream always lists shardIDs,
// GetShardIterator hands out iterTokens in order, GetRecords answers from
// results keyed by iterator token.
type fakeStreams struct {
	shardIDs   []string
	iterTokens []string
	results    map[string]recordsResult

	iterCalls []*dynamodbstreams.GetShardIteratorInput
}

func (f *fakeStreams) DescribeStream(_ context.Context, _ *dynamodbstreams.DescribeStreamInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error) {
	shards := make([]streamtypes.Shard, 0, len(f.shardIDs))
	for _, id := range f.shardIDs {
		shards = append(shards, streamtypes.Shard{ShardId: aws.String(id)})
	}
	return &dynamodbstreams.DescribeStreamOutput{
		StreamDescription: &streamtypes.StreamDescription{Shards: shards},
	}, nil
}

func (f *fakeStreams) GetShardIterator(_ context.Context, params *dynamodbstreams.GetShardIteratorInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error) {
	f.iterCalls = append(f.iterCalls, params)
	if len(f.iterTokens) == 0 {
		return nil, errors.New("no scripted iterator left")
	}
	token := f.iterTokens[0]
	f.iterTokens = f.iterTokens[1:]
	return &dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String(token)}, nil
}

func (f *fakeStreams) GetRecords(_ context.Context, params *dynamodbstreams.GetRecordsInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error) {
	res, ok := f.results[aws.ToString(params.ShardIterator)]
	if !ok {
		return &dynamodbstreams.GetRecordsOutput{}, nil
	}
	return res.out, res.err
}

type publishedEvent struct {
	topic string
	key   string
	event models.BlogPostEvent
}

type fakeEventPublisher struct {
	events []publishedEvent
}

func (p *fakeEventPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: payload.(models.BlogPostEvent)})
	return nil
}

func insertRecord(blogURL, seq string) streamtypes.Record {
	return streamtypes.Record{
		EventID:   aws.String("evt-" + seq),
		EventName: streamtypes.OperationTypeInsert,
		Dynamodb: &streamtypes.StreamRecord{
			SequenceNumber: aws.String(seq),
			NewImage: map[string]streamtypes.AttributeValue{
				"PK":            &streamtypes.AttributeValueMemberS{Value: db.PK_BLOG_POST},
				"SK":            &streamtypes.AttributeValueMemberS{Value: "2023-02-20T14:46:42+0000#" + seq},
				"blog_url":      &streamtypes.AttributeValueMemberS{Value: blogURL},
				"date_created":  &streamtypes.AttributeValueMemberS{Value: "2023-02-20T14:46:42+0000"},
				"date_updated":  &streamtypes.AttributeValueMemberS{Value: "2023-02-20T15:00:00+0000"},
				"title":         &streamtypes.AttributeValueMemberS{Value: "A post"},
				"main_category": &streamtypes.AttributeValueMemberS{Value: "Compute"},
				"authors":       &streamtypes.AttributeValueMemberSS{Value: []string{"Jane Doe"}},
			},
		},
	}
}

func newTestRelay(fs *fakeStreams, pub *fakeEventPublisher) *Relay {
	r := NewRelay(nil, fs, pub, "blogs", "new-blog-posts")
	r.streamArn = "arn:aws:dynamodb:us-east-1:000000000000:table/blogs/stream/1"
	return r
}

func TestRelayClosedShardIsNotReopened(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := &fakeStreams{
		shardIDs:   []string{"shard-1"},
		iterTokens: []string{"iter-1"},
		results: map[string]recordsResult{
			// The shard yields one insert and then closes.
			"iter-1": {out: &dynamodbstreams.GetRecordsOutput{
				Records: []streamtypes.Record{insertRecord("https://aws.amazon.com/blogs/compute/p1/", "100")},
			}},
		},
	}
	pub := &fakeEventPublisher{}
	r := newTestRelay(fs, pub)

	require.NoError(t, r.refreshShards(ctx, streamtypes.ShardIteratorTypeLatest))
	r.pollShards(ctx)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "new-blog-posts", pub.events[0].topic)
	assert.Equal(t, "https://aws.amazon.com/blogs/compute/p1/", pub.events[0].key)

	// DescribeStream keeps listing the closed shard; later refreshes and polls
	// must neither reopen it nor republish its records.
	require.NoError(t, r.refreshShards(ctx, streamtypes.ShardIteratorTypeTrimHorizon))
	r.pollShards(ctx)
	require.NoError(t, r.refreshShards(ctx, streamtypes.ShardIteratorTypeTrimHorizon))
	r.pollShards(ctx)

	assert.Len(t, pub.events, 1)
	assert.Len(t, fs.iterCalls, 1)
}

func TestRelayExpiredIteratorResumesAfterLastSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := &fakeStreams{
		shardIDs:   []string{"shard-1"},
		iterTokens: []string{"iter-1", "iter-2"},
		results: map[string]recordsResult{
			"iter-1": {out: &dynamodbstreams.GetRecordsOutput{
				Records:           []streamtypes.Record{insertRecord("https://aws.amazon.com/blogs/compute/p1/", "100")},
				NextShardIterator: aws.String("iter-stale"),
			}},
			"iter-stale": {err: errors.New("TrimmedDataAccessException: iterator expired")},
			"iter-2": {out: &dynamodbstreams.GetRecordsOutput{
				NextShardIterator: aws.String("iter-2"),
			}},
		},
	}
	pub := &fakeEventPublisher{}
	r := newTestRelay(fs, pub)

	require.NoError(t, r.refreshShards(ctx, streamtypes.ShardIteratorTypeLatest))
	r.pollShards(ctx) // relays seq 100, advances to the stale iterator
	r.pollShards(ctx) // stale iterator errors, shard resumes in place
	r.pollShards(ctx) // fresh iterator, no new records

	// The resume asks for the position right after the last relayed record,
	// never the trim horizon.
	require.Len(t, fs.iterCalls, 2)
	resume := fs.iterCalls[1]
	assert.Equal(t, streamtypes.ShardIteratorTypeAfterSequenceNumber, resume.ShardIteratorType)
	assert.Equal(t, "100", aws.ToString(resume.SequenceNumber))
	assert.Equal(t, "shard-1", aws.ToString(resume.ShardId))

	assert.Len(t, pub.events, 1)
}

func TestRelayIgnoresNonInsertAndNonPostRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	update := insertRecord("https://aws.amazon.com/blogs/compute/p1/", "101")
	update.EventName = streamtypes.OperationTypeModify

	author := insertRecord("", "102")
	author.Dynamodb.NewImage["PK"] = &streamtypes.AttributeValueMemberS{Value: db.PK_AUTHOR}

	fs := &fakeStreams{
		shardIDs:   []string{"shard-1"},
		iterTokens: []string{"iter-1"},
		results: map[string]recordsResult{
			"iter-1": {out: &dynamodbstreams.GetRecordsOutput{
				Records: []streamtypes.Record{
					update,
					author,
					insertRecord("https://aws.amazon.com/blogs/compute/p2/", "103"),
				},
			}},
		},
	}
	pub := &fakeEventPublisher{}
	r := newTestRelay(fs, pub)

	require.NoError(t, r.refreshShards(ctx, streamtypes.ShardIteratorTypeLatest))
	r.pollShards(ctx)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "https://aws.amazon.com/blogs/compute/p2/", pub.events[0].event.Data.BlogURL)
}
