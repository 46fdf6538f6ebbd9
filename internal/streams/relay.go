// Package streams turns the blogs table's DynamoDB stream into versioned
// change events on Kafka. Only INSERT records for blog posts are relayed;
// state-transition updates (tweet ids) stay internal.
package streams

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"

	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/models"
)

const (
	POLL_INTERVAL        = 5 * time.Second
	SHARD_REFRESH_PERIOD = 5 * time.Minute
)

// EventPublisher publishes one envelope to the change topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// TableDescriber is the slice of the DynamoDB API the relay needs to locate
// the table's stream.
type TableDescriber interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// StreamTailer is the slice of the DynamoDB Streams API the relay polls.
type StreamTailer interface {
	DescribeStream(ctx context.Context, params *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

// shardCursor is the relay's position within one shard: the current iterator
// plus the sequence number of the last record relayed through it, so the
// shard can be resumed in place after an iterator expires.
type shardCursor struct {
	iterator *string
	lastSeq  string
}

// Relay tails the table's latest stream and publishes a BlogPostEvent for
// every newly inserted post.
type Relay struct {
	dynamo   TableDescriber
	streams  StreamTailer
	producer EventPublisher
	table    string
	topic    string

	streamArn string
	shards    map[string]*shardCursor
	// finished holds shards whose iterator chain has ended. DescribeStream
	// keeps listing closed shards for about a day; without this set every
	// refresh would reopen them at TRIM_HORIZON and replay their records.
	finished map[string]struct{}
}

func NewRelay(dynamo TableDescriber, streams StreamTailer, producer EventPublisher, table, topic string) *Relay {
	return &Relay{
		dynamo:   dynamo,
		streams:  streams,
		producer: producer,
		table:    table,
		topic:    topic,
		shards:   make(map[string]*shardCursor),
		finished: make(map[string]struct{}),
	}
}

// Run polls the stream until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	streamArn, err := r.latestStreamArn(ctx)
	if err != nil {
		return err
	}
	r.streamArn = streamArn
	slog.Info("[StreamRelay] Tailing stream", slog.String("stream_arn", streamArn))

	if err := r.refreshShards(ctx, streamtypes.ShardIteratorTypeLatest); err != nil {
		return err
	}

	pollTicker := time.NewTicker(POLL_INTERVAL)
	refreshTicker := time.NewTicker(SHARD_REFRESH_PERIOD)
	defer pollTicker.Stop()
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[StreamRelay] Shutting down")
			return ctx.Err()
		case <-refreshTicker.C:
			// New shards appear as DynamoDB rotates them; start those at
			// TRIM_HORIZON so no records are dropped.
			if err := r.refreshShards(ctx, streamtypes.ShardIteratorTypeTrimHorizon); err != nil {
				slog.Warn("[StreamRelay] Shard refresh failed",
					slog.String("error", err.Error()))
			}
		case <-pollTicker.C:
			r.pollShards(ctx)
		}
	}
}

func (r *Relay) latestStreamArn(ctx context.Context) (string, error) {
	out, err := r.dynamo.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return "", fmt.Errorf("[StreamRelay] Failed to describe table %s: %w", r.table, err)
	}
	arn := aws.ToString(out.Table.LatestStreamArn)
	if arn == "" {
		return "", fmt.Errorf("[StreamRelay] Table %s has no stream enabled", r.table)
	}
	return arn, nil
}

// refreshShards lists the stream's shards and opens an iterator for any shard
// neither tracked nor already finished.
func (r *Relay) refreshShards(ctx context.Context, iterType streamtypes.ShardIteratorType) error {
	out, err := r.streams.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
		StreamArn: aws.String(r.streamArn),
	})
	if err != nil {
		return fmt.Errorf("[StreamRelay] Failed to describe stream: %w", err)
	}

	for _, shard := range out.StreamDescription.Shards {
		shardID := aws.ToString(shard.ShardId)
		if _, tracked := r.shards[shardID]; tracked {
			continue
		}
		if _, done := r.finished[shardID]; done {
			continue
		}

		iterOut, err := r.streams.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
			StreamArn:         aws.String(r.streamArn),
			ShardId:           shard.ShardId,
			ShardIteratorType: iterType,
		})
		if err != nil {
			slog.Warn("[StreamRelay] Failed to open shard iterator",
				slog.String("shard_id", shardID),
				slog.String("error", err.Error()))
			continue
		}
		r.shards[shardID] = &shardCursor{iterator: iterOut.ShardIterator}
		slog.Info("[StreamRelay] Tracking shard", slog.String("shard_id", shardID))
	}
	return nil
}

func (r *Relay) pollShards(ctx context.Context) {
	for shardID, cursor := range r.shards {
		if cursor.iterator == nil {
			r.retireShard(shardID)
			continue
		}

		out, err := r.streams.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
			ShardIterator: cursor.iterator,
		})
		if err != nil {
			// Iterators expire after 15 minutes; resume in place rather than
			// reopening the shard at TRIM_HORIZON, which would replay records
			// already published.
			slog.Warn("[StreamRelay] GetRecords failed, resuming shard after last sequence",
				slog.String("shard_id", shardID),
				slog.String("error", err.Error()))
			r.resumeShard(ctx, shardID, cursor)
			continue
		}

		for _, record := range out.Records {
			if err := r.relayRecord(ctx, record); err != nil {
				slog.Error("[StreamRelay] Failed to relay record",
					slog.String("event_id", aws.ToString(record.EventID)),
					slog.String("error", err.Error()))
			}
			if record.Dynamodb != nil {
				cursor.lastSeq = aws.ToString(record.Dynamodb.SequenceNumber)
			}
		}

		// A nil NextShardIterator means the shard is closed for good.
		if out.NextShardIterator == nil {
			r.retireShard(shardID)
			continue
		}
		cursor.iterator = out.NextShardIterator
	}
}

// retireShard moves a shard from the active map into the finished set so no
// later refresh reopens it.
func (r *Relay) retireShard(shardID string) {
	r.finished[shardID] = struct{}{}
	delete(r.shards, shardID)
	slog.Info("[StreamRelay] Shard closed", slog.String("shard_id", shardID))
}

// resumeShard requests a fresh iterator positioned after the last relayed
// record. A shard nothing was relayed from yet restarts at TRIM_HORIZON.
func (r *Relay) resumeShard(ctx context.Context, shardID string, cursor *shardCursor) {
	in := &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         aws.String(r.streamArn),
		ShardId:           aws.String(shardID),
		ShardIteratorType: streamtypes.ShardIteratorTypeTrimHorizon,
	}
	if cursor.lastSeq != "" {
		in.ShardIteratorType = streamtypes.ShardIteratorTypeAfterSequenceNumber
		in.SequenceNumber = aws.String(cursor.lastSeq)
	}

	iterOut, err := r.streams.GetShardIterator(ctx, in)
	if err != nil {
		// Keep the cursor; the next poll retries the resume.
		slog.Warn("[StreamRelay] Failed to resume shard",
			slog.String("shard_id", shardID),
			slog.String("error", err.Error()))
		return
	}
	cursor.iterator = iterOut.ShardIterator
}

// relayRecord publishes one stream record if it is a blog post insert.
func (r *Relay) relayRecord(ctx context.Context, record streamtypes.Record) error {
	if record.EventName != streamtypes.OperationTypeInsert {
		return nil
	}
	image := record.Dynamodb.NewImage
	if pk, ok := image["PK"].(*streamtypes.AttributeValueMemberS); !ok || pk.Value != db.PK_BLOG_POST {
		return nil
	}

	var post models.BlogPost
	if err := UnmarshalStreamImage(image, &post); err != nil {
		return fmt.Errorf("[StreamRelay] Failed to unmarshal blog post image: %w", err)
	}

	event := models.NewBlogPostEvent(post, time.Now())
	if err := r.producer.Publish(ctx, r.topic, post.BlogURL, event); err != nil {
		return err
	}

	slog.Info("[StreamRelay] New blog post event published",
		slog.String("blog_url", post.BlogURL),
		slog.String("event_id", event.Metadata.EventID))
	return nil
}
