package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

const (
	HeaderEvent      = "event"
	HeaderOccurredAt = "occurred_at"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher writes domain events to Kafka. The message value is the JSON
// encoded entity, keyed by its id so one entity's events stay ordered.
// Delivery failures are logged and counted, never returned.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// NewKafkaWriter builds the writer shared by every emitter. Topic is set per
// message.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, entity any) {
	value, err := json.Marshal(entity)
	if err != nil {
		telemetry.Logger.Error("Failed to encode event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
		telemetry.EventsPublishedTotal.WithLabelValues(topic, "encode_error").Inc()
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderEvent, Value: []byte(topic)},
			{Key: HeaderOccurredAt, Value: []byte(p.now().UTC().Format(time.RFC3339Nano))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		telemetry.Logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
		telemetry.EventsPublishedTotal.WithLabelValues(topic, "error").Inc()
		return
	}

	telemetry.EventsPublishedTotal.WithLabelValues(topic, "ok").Inc()
	telemetry.Logger.Debug("Event published", zap.String("topic", topic), zap.String("key", key))
}
