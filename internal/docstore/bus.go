// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/projecteax/concepto-sub007/internal/logging"
)

// BusConfig configures the NATS-backed change bus.
type BusConfig struct {
	// URL is the NATS server address.
	URL string

	// MaxReconnects bounds reconnection attempts after a lost connection.
	MaxReconnects int

	// ReconnectWait is the delay between reconnection attempts.
	ReconnectWait time.Duration

	// CloseTimeout bounds graceful subscriber shutdown.
	CloseTimeout time.Duration
}

// DefaultBusConfig returns production defaults for the change bus.
func DefaultBusConfig(url string) BusConfig {
	return BusConfig{
		URL:           url,
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
		CloseTimeout:  10 * time.Second,
	}
}

// natsBus pairs a Watermill NATS publisher and subscriber into one Bus.
// Change notifications are fan-out pushes to live subscribers, so plain
// core NATS subjects are used; JetStream persistence is not needed --
// the document itself is durable in Badger and a reconnecting subscriber
// re-reads the current snapshot anyway.
type natsBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewNATSBus connects a Watermill publisher and subscriber to the NATS
// server at cfg.URL.
func NewNATSBus(cfg BusConfig) (Bus, error) {
	logger := newBusLogger()

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("change bus disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("change bus reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create change bus publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:          cfg.URL,
		NatsOptions:  natsOpts,
		Unmarshaler:  &wmNats.NATSMarshaler{},
		CloseTimeout: cfg.CloseTimeout,
		JetStream:    wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create change bus subscriber: %w", err)
	}

	return &natsBus{publisher: pub, subscriber: sub}, nil
}

func (b *natsBus) Publish(topic string, messages ...*message.Message) error {
	return b.publisher.Publish(topic, messages...)
}

func (b *natsBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close shuts down both halves of the bus.
func (b *natsBus) Close() error {
	pubErr := b.publisher.Close()
	subErr := b.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

// busLogger adapts the global zerolog logger to Watermill's LoggerAdapter.
type busLogger struct {
	fields watermill.LogFields
}

func newBusLogger() watermill.LoggerAdapter {
	return &busLogger{}
}

func (l *busLogger) Error(msg string, err error, fields watermill.LogFields) {
	event := logging.Error().Err(err)
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *busLogger) Info(msg string, fields watermill.LogFields) {
	event := logging.Info()
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *busLogger) Debug(msg string, fields watermill.LogFields) {
	event := logging.Debug()
	for k, v := range l.fields.Add(fields) {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (l *busLogger) Trace(msg string, fields watermill.LogFields) {
	l.Debug(msg, fields)
}

func (l *busLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &busLogger{fields: l.fields.Add(fields)}
}
