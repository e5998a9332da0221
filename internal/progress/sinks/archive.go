package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/store"
)

// ArchiveSink writes the final snapshot of every finished session to a blob
// store, once as JSON and once as the text status report.
type ArchiveSink struct {
	blobs  store.BlobStore
	logger *zap.Logger
}

// NewArchiveSink constructs an ArchiveSink.
func NewArchiveSink(blobs store.BlobStore, logger *zap.Logger) *ArchiveSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveSink{blobs: blobs, logger: logger}
}

// ArchivePaths returns the JSON and text object paths for a session.
func ArchivePaths(sessionID string) (jsonPath, textPath string) {
	return path.Join(sessionID, "final.json"), path.Join(sessionID, "final.txt")
}

// Consume archives StageDone events and ignores the rest.
func (s *ArchiveSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.blobs == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageDone || evt.Snapshot == nil {
			continue
		}
		id := evt.SessionUUID().String()
		jsonPath, textPath := ArchivePaths(id)

		body, err := json.MarshalIndent(evt.Snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal final snapshot: %w", err)
		}
		uri, err := s.blobs.PutObject(ctx, jsonPath, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("archive final snapshot: %w", err)
		}
		textURI, err := s.blobs.PutObject(ctx, textPath, "text/plain; charset=utf-8",
			bytes.NewReader([]byte(evt.Snapshot.Text())))
		if err != nil {
			return fmt.Errorf("archive final report: %w", err)
		}
		s.logger.Info("session archived",
			zap.String("session_id", id),
			zap.String("snapshot_uri", uri),
			zap.String("report_uri", textURI),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *ArchiveSink) Close(context.Context) error {
	return nil
}
