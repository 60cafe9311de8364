// Package events publishes domain events to Kafka
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/straye-as/success-api/internal/config"
	"go.uber.org/zap"
)

// Event types
const (
	TypeAlertRaised    = "alert.raised"
	TypeStageChanged   = "stage.changed"
	TypeHealthRecorded = "health.recorded"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Event is a domain event. Data is encoded as JSON.
type Event struct {
	Type       string      `json:"type"`
	TenantID   uuid.UUID   `json:"tenantId"`
	AccountID  uuid.UUID   `json:"accountId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

// Publisher sends domain events somewhere durable
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event type to its own topic, keyed by account
type KafkaPublisher struct {
	writers map[string]messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaPublisher creates one writer per configured topic
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka enabled but no brokers configured")
	}

	newWriter := func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: cfg.WriteTimeoutDuration(),
			Async:        false,
		}
	}

	writers := map[string]messageWriter{
		TypeAlertRaised:    newWriter(cfg.AlertsTopic),
		TypeStageChanged:   newWriter(cfg.StageChangesTopic),
		TypeHealthRecorded: newWriter(cfg.HealthScoresTopic),
	}

	logger.Info("Kafka event publisher configured",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("alerts_topic", cfg.AlertsTopic),
		zap.String("stage_changes_topic", cfg.StageChangesTopic),
		zap.String("health_scores_topic", cfg.HealthScoresTopic),
	)

	return newKafkaPublisher(writers, cfg.WriteTimeoutDuration(), logger), nil
}

func newKafkaPublisher(writers map[string]messageWriter, timeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writers: writers, timeout: timeout, logger: logger}
}

// Publish writes the event synchronously
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	writer, ok := p.writers[event.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, event.Type)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "tenant-id", Value: []byte(event.TenantID.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes every writer
func (p *KafkaPublisher) Close() error {
	var errs []error
	for eventType, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", eventType, err))
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// New returns a Kafka publisher when enabled and a NopPublisher otherwise
func New(cfg *config.KafkaConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		logger.Info("Kafka disabled, domain events will not be published")
		return NopPublisher{}, nil
	}
	p, err := NewKafkaPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}
