// Package pubsub publishes session status messages to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/JakeFAU/keyspace-status/internal/publisher"
)

// Publisher wraps a Pub/Sub topic publisher. The topic argument of Publish is
// carried as a message attribute; routing is fixed by the wrapped publisher.
type Publisher struct {
	publisher *pubsub.Publisher
}

var _ publisher.Publisher = (*Publisher)(nil)

// New wraps a topic publisher obtained from pubsub.Client.Publisher.
func New(p *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: p}
}

// Publish marshals payload to JSON and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error) {
	if p == nil || p.publisher == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := &pubsub.Message{
		Data:       data,
		Attributes: make(map[string]string, len(attrs)+1),
	}
	maps.Copy(msg.Attributes, attrs)
	if topic != "" {
		msg.Attributes["topic"] = topic
	}

	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and releases the publisher.
func (p *Publisher) Stop() {
	if p == nil || p.publisher == nil {
		return
	}
	p.publisher.Stop()
}
