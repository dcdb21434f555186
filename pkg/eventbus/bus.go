// Package eventbus wraps the Watermill NATS JetStream transport behind small
// publisher/consumer types. The channel is at-least-once: consumers must be
// idempotent, and a named queue group delivers each event to exactly one
// instance of a service.
package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Topic names are part of the wire contract shared by all services.
const (
	TopicUserDeleted    = "user.deleted"
	TopicProductDeleted = "product.deleted"
)

// Publisher sends raw payloads to a topic. Implementations must not block
// forever: a publish failure is reported, never retried here.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close() error
}

// watermillPublisher adapts a watermill message.Publisher to Publisher
type watermillPublisher struct {
	pub message.Publisher
}

// NewPublisher wraps any watermill publisher (NATS in production, the
// in-memory gochannel Pub/Sub in tests)
func NewPublisher(pub message.Publisher) Publisher {
	return &watermillPublisher{pub: pub}
}

func (p *watermillPublisher) Publish(topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.pub.Publish(topic, msg)
}

func (p *watermillPublisher) Close() error {
	return p.pub.Close()
}

// zapLoggerAdapter adapts zap to watermill's LoggerAdapter interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter returns a watermill logger backed by zap
func NewLoggerAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *zapLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapLoggerAdapter{logger: a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
