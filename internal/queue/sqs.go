// Package queue relays blog post keys through SQS FIFO queues. A message
// carries only the post's sort key; consumers re-read the authoritative
// record before acting.
package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/spacesedan/blogrelay/internal/models"
)

const (
	// WAIT_TIME_SECONDS enables long polling on the consumer side.
	WAIT_TIME_SECONDS = 20
	// MAX_MESSAGES is fixed at 1 so one bad item never takes healthy ones
	// down with it.
	MAX_MESSAGES = 1
)

// FIFOQueue wraps one SQS FIFO queue. Deduplication id and group id are both
// derived from the message body, so a redelivered key collapses while
// different posts process concurrently.
type FIFOQueue struct {
	client *sqs.Client
	url    string
}

func NewFIFOQueue(client *sqs.Client, url string) *FIFOQueue {
	return &FIFOQueue{client: client, url: url}
}

// Send enqueues a post key. A non-zero delay postpones visibility, used on
// the thread queue so the primary tweet lands before its reply.
func (q *FIFOQueue) Send(ctx context.Context, body string, delay time.Duration) error {
	keyHash := models.HashKey(body)

	input := &sqs.SendMessageInput{
		QueueUrl:               aws.String(q.url),
		MessageBody:            aws.String(body),
		MessageGroupId:         aws.String(keyHash),
		MessageDeduplicationId: aws.String(keyHash),
	}
	if delay > 0 {
		input.DelaySeconds = int32(delay / time.Second)
	}

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return err
	}

	slog.Debug("[Queue] Message sent",
		slog.String("queue", q.url),
		slog.String("dedup_id", keyHash))
	return nil
}

// Handler processes one message body. A returned error leaves the message on
// the queue; SQS redelivery and the redrive policy own retries and
// dead-lettering.
type Handler func(ctx context.Context, body string) error

// Consume long-polls the queue until the context is cancelled, handling one
// message at a time and deleting it only after the handler succeeds.
func (q *FIFOQueue) Consume(ctx context.Context, handler Handler) error {
	slog.Info("[Queue] Starting consumer", slog.String("queue", q.url))

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Queue] Consumer stopped", slog.String("queue", q.url))
			return ctx.Err()
		default:
		}

		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.url),
			MaxNumberOfMessages: MAX_MESSAGES,
			WaitTimeSeconds:     WAIT_TIME_SECONDS,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("[Queue] Receive failed, backing off...",
				slog.String("error", err.Error()))
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			body := aws.ToString(msg.Body)
			if err := handler(ctx, body); err != nil {
				// No delete: the message becomes visible again and is
				// eventually dead-lettered by the queue's redrive policy.
				slog.Error("[Queue] Handler failed, leaving message for redelivery",
					slog.String("body", body),
					slog.String("error", err.Error()))
				continue
			}

			if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(q.url),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				slog.Warn("[Queue] Failed to delete message",
					slog.String("body", body),
					slog.String("error", err.Error()))
			}
		}
	}
}
