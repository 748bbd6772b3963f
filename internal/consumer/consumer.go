package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/models"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

// Handler processes one message value.
type Handler func(ctx context.Context, value []byte) error

// Route binds a topic to the use case that handles it. OnFailure, when set,
// runs for a message still failing with a non-permanent error after
// MaxAttempts; the message is committed only once OnFailure returns nil.
type Route struct {
	Topic     string
	Handle    Handler
	OnFailure func(ctx context.Context, value []byte, err error) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config tunes redelivery. A message failing with a non-permanent error is
// retried in place, waiting Backoff*attempt capped at MaxBackoff, until it
// succeeds; MaxAttempts only marks when the failure is escalated.
type Config struct {
	Brokers     []string
	GroupID     string
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Consumer reads every routed topic with its own reader and commits a
// message only after it was handled or failed permanently, so neither a
// crash nor a gateway outage loses it.
type Consumer struct {
	cfg       Config
	routes    []Route
	newReader func(topic string) messageReader
}

func New(cfg Config, routes ...Route) *Consumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	c := &Consumer{cfg: cfg, routes: routes}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		})
	}
	return c
}

func (c *Consumer) Topics() []string {
	topics := make([]string, 0, len(c.routes))
	for _, route := range c.routes {
		topics = append(topics, route.Topic)
	}
	return topics
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, route := range c.routes {
		wg.Add(1)
		go func(route Route) {
			defer wg.Done()
			reader := c.newReader(route.Topic)
			defer reader.Close()
			c.consume(ctx, route, reader)
		}(route)
	}

	telemetry.Logger.Info("Started consuming transition events", zap.Strings("topics", c.Topics()))
	wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, route Route, reader messageReader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			telemetry.Logger.Error("Error reading message from Kafka", zap.String("topic", route.Topic), zap.Error(err))
			continue
		}

		if !c.handle(ctx, route, msg) {
			return
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			telemetry.Logger.Error("Error committing message",
				zap.String("topic", route.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handle reports whether msg may be committed. It returns false only when
// ctx is done before the message was settled.
func (c *Consumer) handle(ctx context.Context, route Route, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := route.Handle(ctx, msg.Value)
		if err == nil {
			return true
		}
		if permanent(err) {
			telemetry.Logger.Warn("Dropping message",
				zap.String("topic", route.Topic),
				zap.ByteString("key", msg.Key),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return true
		}

		if attempt < c.cfg.MaxAttempts {
			telemetry.Logger.Warn("Retrying message",
				zap.String("topic", route.Topic),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else {
			telemetry.Logger.Error("Error processing message",
				zap.String("topic", route.Topic),
				zap.ByteString("key", msg.Key),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if route.OnFailure != nil {
				ferr := route.OnFailure(ctx, msg.Value, err)
				if ferr == nil {
					return true
				}
				telemetry.Logger.Error("Error settling failed message",
					zap.String("topic", route.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Error(ferr),
				)
			}
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff(attempt)):
		}
	}
}

func (c *Consumer) backoff(attempt int) time.Duration {
	d := c.cfg.Backoff * time.Duration(attempt)
	if d > c.cfg.MaxBackoff {
		return c.cfg.MaxBackoff
	}
	return d
}

// permanent errors fail the same way on every attempt.
func permanent(err error) bool {
	return errors.Is(err, errDecode) ||
		errors.Is(err, models.ErrMissingData) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrInvalidState)
}
