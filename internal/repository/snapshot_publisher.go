package repository

import (
	"context"
	"fmt"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	pkgkafka "RateHub/pkg/kafka"
)

// KafkaSnapshotPublisher pushes normalized batch results to a Kafka topic,
// one message per asset keyed by asset id.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates a snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) drepo.Publisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) PublishSnapshot(ctx context.Context, assets []models.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(assets))
	for _, a := range assets {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(a.ID), Value: a})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}
