package sinks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/storage/memory"
)

// TestArchiveSinkWritesFinalReport stores JSON and text on completion only.
func TestArchiveSinkWritesFinalReport(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	sink := NewArchiveSink(blobs, nil)
	id := uuid.New()

	events := sampleEvents(id)
	require.NoError(t, sink.Consume(context.Background(), events[:3]))
	require.Equal(t, 0, blobs.Len())

	require.NoError(t, sink.Consume(context.Background(), events[3:]))
	require.Equal(t, 2, blobs.Len())

	jsonPath, textPath := ArchivePaths(id.String())
	body, ok := blobs.GetObject(jsonPath)
	require.True(t, ok)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Equal(t, "Exhausted", snap.Status.String())

	text, ok := blobs.GetObject(textPath)
	require.True(t, ok)
	require.Contains(t, string(text), "Status...........: Exhausted")
}
