// Package events forwards committed activity entries to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"garagehub/internal/domain"
)

// Publisher receives activity entries after the mutation that produced them
// has been committed.
type Publisher interface {
	Publish(ctx context.Context, e domain.ActivityLogEntry) error
}

// Noop drops every entry. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.ActivityLogEntry) error { return nil }

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(p sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: p, topic: topic, logger: logger}
}

// Publish sends the entry as JSON keyed by resource id, so every event about
// one request or quote lands on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, e domain.ActivityLogEntry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events.Publish: encode: %w", err)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.ResourceID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("action"), Value: []byte(e.Action)},
			{Key: []byte("resource_type"), Value: []byte(e.ResourceType)},
		},
	})
	if err != nil {
		p.logger.Error("activity.publish_failed", zap.String("topic", p.topic), zap.String("entry_id", e.ID), zap.Error(err))
		return fmt.Errorf("events.Publish: %w", err)
	}
	p.logger.Debug("activity.published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("entry_id", e.ID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }
