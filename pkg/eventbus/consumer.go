package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// HandlerFunc processes one event payload. Returning an error triggers a
// bounded local retry; it must therefore be safe to run more than once.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Consumer runs a handler against every message on one topic. A message that
// still fails after MaxRetries additional attempts is acked and dropped: there
// is no dead-letter queue in this design, residual entities are repaired by
// reconciliation.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
	handler    HandlerFunc
	maxRetries int
	retryWait  time.Duration
	logger     *zap.Logger
}

// NewConsumer creates a consumer for the given topic
func NewConsumer(subscriber message.Subscriber, topic string, handler HandlerFunc, maxRetries int, retryWait time.Duration, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		maxRetries: maxRetries,
		retryWait:  retryWait,
		logger:     logger,
	}
}

// Run processes messages until the context is canceled or the subscription
// channel closes
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	c.logger.Info("Event consumer started", zap.String("topic", c.topic))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				msg.Nack()
				return
			case <-time.After(c.retryWait):
			}
		}

		if err = c.handler(ctx, msg.Payload); err == nil {
			msg.Ack()
			return
		}

		c.logger.Warn("Event handler failed",
			zap.String("topic", c.topic),
			zap.String("message_uuid", msg.UUID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	// Retries exhausted: drop the event rather than requeue it forever
	c.logger.Error("Dropping event after retries exhausted",
		zap.String("topic", c.topic),
		zap.String("message_uuid", msg.UUID),
		zap.Error(err))
	msg.Ack()
}
