package eventbus

import (
	"fmt"
	"time"

	"buy01/pkg/config"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// natsOptions builds connection options with reconnection handling
func natsOptions(cfg *config.NATSConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

// NewNATSPublisher creates a JetStream publisher for deletion events.
// Publish attempts are retried a few times at the transport level; a failure
// after that is returned to the caller, which logs and moves on.
func NewNATSPublisher(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	wmConfig := wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmnats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return NewPublisher(pub), nil
}

// NewNATSSubscriber creates a durable JetStream subscriber. All instances of a
// service share the same queue group, so each event is delivered to exactly
// one of them; redelivery after restart or rebalance is expected.
func NewNATSSubscriber(cfg *config.NATSConfig, group string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	wmConfig := wmnats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: group,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: group,
		},
	}

	sub, err := wmnats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return sub, nil
}
