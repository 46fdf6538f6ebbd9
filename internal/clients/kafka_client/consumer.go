package kafka_client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func NewConsumer(cfg KafkaConfig) (*kafka.Consumer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Consumer...",
		slog.String("broker", cfg.Broker),
		slog.String("group_id", cfg.GroupID),
		slog.String("topic", cfg.Topic))

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Broker,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create consumer: %w", err)
	}

	if err := c.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to subscribe to topic: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Consumer initialized successfully")
	return c, nil
}

// MessageIterator reads messages one at a time with bounded retries; commit
// is explicit so a failed handler leaves the offset unmoved and the message
// is redelivered.
type MessageIterator struct {
	consumer *kafka.Consumer
	ctx      context.Context
}

func NewMessageIterator(ctx context.Context, consumer *kafka.Consumer) *MessageIterator {
	return &MessageIterator{consumer: consumer, ctx: ctx}
}

func (it *MessageIterator) Next() (*kafka.Message, error) {
	for i := 0; i < MAX_RETRIES; i++ {
		select {
		case <-it.ctx.Done():
			slog.Warn("[KafkaIterator] Context cancelled, stopping iterator")
			return nil, it.ctx.Err()
		default:
			msg, err := it.consumer.ReadMessage(time.Second)
			if err != nil {
				if kafkaErr, ok := err.(kafka.Error); ok {
					if kafkaErr.Code() == kafka.ErrTimedOut {
						i = 0
						continue
					}
					if kafkaErr.Code() == kafka.ErrAllBrokersDown {
						slog.Error("[KafkaIterator] All Kafka brokers are down. Aborting")
						return nil, err
					}
				}

				slog.Warn("[KafkaIterator] Failed to read message, retrying...",
					slog.Int("attempt", i+1),
					slog.Int("max_retries", MAX_RETRIES),
					slog.String("error", err.Error()))

				time.Sleep(RETRY_DELAY)
				continue
			}
			return msg, nil
		}
	}
	return nil, errors.New("[KafkaIterator] Failed to read message after retries")
}

func (it *MessageIterator) Commit(msg *kafka.Message) error {
	var lastErr error
	for i := 0; i < MAX_RETRIES; i++ {
		_, err := it.consumer.CommitMessage(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		slog.Warn("[KafkaCommit] Failed to commit offset, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
			slog.String("partition", fmt.Sprintf("%d", msg.TopicPartition.Partition)),
			slog.String("offset", fmt.Sprintf("%d", msg.TopicPartition.Offset)))

		if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.Code() == kafka.ErrAllBrokersDown {
			slog.Error("[KafkaCommit] All Kafka brokers are down. Aborting commit")
			return err
		}
		time.Sleep(RETRY_DELAY)
	}
	return fmt.Errorf("[KafkaCommit] Failed to commit offset after retries: %w", lastErr)
}
