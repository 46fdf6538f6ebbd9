package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Producer wraps a confluent producer configured for idempotent, in-order
// delivery.
type Producer struct {
	producer *kafka.Producer
}

func NewProducer(cfg KafkaConfig) (*Producer, error) {
	slog.Info("[KafkaClient] Initializing Kafka Producer...",
		slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":                     cfg.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	slog.Info("[KafkaClient] Kafka Producer initialized successfully")
	return &Producer{producer: p}, nil
}

func (p *Producer) Close() {
	slog.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(5000); remaining > 0 {
		slog.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
}

// Publish JSON-encodes payload and sends it to topic, blocking until the
// broker confirms delivery or the context is cancelled.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("[KafkaClient] Failed to marshal payload: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          jsonData,
	}

	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("[KafkaClient] Failed to produce message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("[KafkaClient] Unexpected delivery event: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("[KafkaClient] Delivery failed: %w", m.TopicPartition.Error)
		}
	}

	slog.Info("[KafkaClient] Published message",
		slog.String("topic", topic),
		slog.String("key", key))
	return nil
}
