// Package publisher defines the message-bus contract used to fan session
// status out to other services.
package publisher

import "context"

// Publisher sends one JSON-encodable payload to topic with string attributes
// and returns the broker-assigned message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error)
}
