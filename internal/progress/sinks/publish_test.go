package sinks

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/publisher"
	publishermemory "github.com/JakeFAU/keyspace-status/internal/publisher/memory"
)

// TestPublishSinkSkipsSnapshotsByDefault forwards lifecycle events only.
func TestPublishSinkSkipsSnapshotsByDefault(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	sink := NewPublishSink(pub, "session-status", false)
	id := uuid.New()

	require.NoError(t, sink.Consume(context.Background(), sampleEvents(id)))

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		require.Equal(t, "session-status", m.Topic)
		require.Equal(t, id.String(), m.Attributes["session_id"])
		require.NotEqual(t, string(progress.StageSnapshot), m.Attributes["stage"])
	}

	status, ok := msgs[1].Payload.(StatusMessage)
	require.True(t, ok)
	require.Equal(t, "Running", status.Status)
	require.Equal(t, "Autotuning", status.Previous)

	done, ok := msgs[2].Payload.(StatusMessage)
	require.True(t, ok)
	require.NotNil(t, done.Snapshot)
	require.Equal(t, "Exhausted", msgs[2].Attributes["status"])
}

// TestPublishSinkWithSnapshots forwards every event.
func TestPublishSinkWithSnapshots(t *testing.T) {
	t.Parallel()

	pub := publishermemory.New()
	sink := NewPublishSink(pub, "session-status", true)
	require.NoError(t, sink.Consume(context.Background(), sampleEvents(uuid.New())))
	require.Len(t, pub.Messages(), 4)
}

// TestPublishSinkStopsOnError returns the first publish failure.
func TestPublishSinkStopsOnError(t *testing.T) {
	t.Parallel()

	pub := new(publisher.MockPublisher)
	pub.On("Publish", mock.Anything, "session-status", mock.AnythingOfType("sinks.StatusMessage"), mock.Anything).
		Return("", errors.New("broker down")).Once()

	sink := NewPublishSink(pub, "session-status", false)
	err := sink.Consume(context.Background(), sampleEvents(uuid.New()))
	require.ErrorContains(t, err, "broker down")
	require.ErrorContains(t, err, string(progress.StageStart))
	pub.AssertNumberOfCalls(t, "Publish", 1)
	pub.AssertExpectations(t)
}
