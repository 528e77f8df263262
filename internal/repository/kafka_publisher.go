package repository

import (
	"context"
	"fmt"

	"SectorScope/internal/domain/models"
	pkgkafka "SectorScope/pkg/kafka"
)

// KafkaEventPublisher sends run events to one topic and doubles as the
// logger collector's publisher.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(p *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, topic: topic}
}

// PublishRun keys the message by view so runs of one view stay ordered.
func (k *KafkaEventPublisher) PublishRun(ctx context.Context, ev *models.RunEvent) error {
	if ev == nil {
		return nil
	}
	if err := k.producer.Publish(ctx, k.topic, []byte(ev.View), ev); err != nil {
		return fmt.Errorf("publish run %s: %w", ev.RunID, err)
	}
	return nil
}

// PublishMessage implements logger.Publisher.
func (k *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	if topic == "" {
		topic = k.topic
	}
	return k.producer.Publish(ctx, topic, nil, payload)
}

func (k *KafkaEventPublisher) Close() error {
	return k.producer.Close()
}

// NoopEventPublisher drops events; used when Kafka is disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishRun(context.Context, *models.RunEvent) error { return nil }
func (NoopEventPublisher) Close() error                                      { return nil }
