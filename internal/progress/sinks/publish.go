package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/publisher"
	"github.com/JakeFAU/keyspace-status/internal/session"
)

// StatusMessage is the payload published for each forwarded event.
type StatusMessage struct {
	SessionID string            `json:"session_id"`
	Name      string            `json:"name"`
	Stage     string            `json:"stage"`
	Status    string            `json:"status"`
	Previous  string            `json:"previous,omitempty"`
	TS        time.Time         `json:"ts"`
	Snapshot  *session.Snapshot `json:"snapshot,omitempty"`
}

// PublishSink forwards lifecycle events to a message bus topic.
type PublishSink struct {
	pub   publisher.Publisher
	topic string
	// snapshots enables forwarding of periodic StageSnapshot events.
	snapshots bool
}

// NewPublishSink constructs a PublishSink. Periodic snapshots are only
// published when withSnapshots is set.
func NewPublishSink(pub publisher.Publisher, topic string, withSnapshots bool) *PublishSink {
	return &PublishSink{pub: pub, topic: topic, snapshots: withSnapshots}
}

// Consume publishes each eligible event and stops at the first failure.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.pub == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage == progress.StageSnapshot && !s.snapshots {
			continue
		}
		msg := StatusMessage{
			SessionID: evt.SessionUUID().String(),
			Name:      evt.Name,
			Stage:     string(evt.Stage),
			Status:    evt.Status.String(),
			TS:        evt.TS,
			Snapshot:  evt.Snapshot,
		}
		if evt.Stage == progress.StageStatus {
			msg.Previous = evt.Previous.String()
		}
		attrs := map[string]string{
			"session_id": msg.SessionID,
			"stage":      msg.Stage,
			"status":     msg.Status,
		}
		if _, err := s.pub.Publish(ctx, s.topic, msg, attrs); err != nil {
			return fmt.Errorf("publish %s: %w", evt.Stage, err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
