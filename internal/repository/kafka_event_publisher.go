package repository

import (
	"context"
	"time"

	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"
	pkgkafka "FxCockpit/pkg/kafka"
	"FxCockpit/pkg/logger"
)

const (
	EventSnapshotUpdated = "snapshot.updated"
	EventAlertTriggered  = "alert.triggered"
)

// kafkaPublisher is the subset of *pkgkafka.Producer used here.
type kafkaPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// Event is the envelope of everything written to the events topic.
type Event struct {
	Type    string      `json:"type"`
	Symbol  string      `json:"symbol"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// KafkaEventPublisher writes domain events to the events topic and log digests to the logs topic.
type KafkaEventPublisher struct {
	producer kafkaPublisher
	topic    string
}

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ logger.Publisher       = (*KafkaEventPublisher)(nil)
)

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishSnapshot(ctx context.Context, s *models.Snapshot) error {
	if s == nil {
		return nil
	}
	return p.publish(ctx, p.topic, s.Symbol, EventSnapshotUpdated, Event{
		Type:    EventSnapshotUpdated,
		Symbol:  s.Symbol,
		At:      s.UpdatedAt,
		Payload: s,
	})
}

func (p *KafkaEventPublisher) PublishAlert(ctx context.Context, e models.AlertEvent) error {
	return p.publish(ctx, p.topic, e.Symbol, EventAlertTriggered, Event{
		Type:    EventAlertTriggered,
		Symbol:  e.Symbol,
		At:      e.At,
		Payload: e,
	})
}

// PublishMessage sends a raw payload; used by the error-log collector.
func (p *KafkaEventPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.PublishBatch(ctx, topic, []pkgkafka.Message{{Value: payload}})
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, key, eventType string, ev Event) error {
	return p.producer.PublishBatch(ctx, topic, []pkgkafka.Message{{
		Key:     []byte(key),
		Value:   ev,
		Headers: map[string]string{"type": eventType},
	}})
}
