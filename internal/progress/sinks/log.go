package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/progress"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("status")}
}

// Consume logs each event. Snapshots log their headline figures only.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("session_id", evt.SessionUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Stringer("status", evt.Status),
		}
		if evt.Stage == progress.StageStatus {
			fields = append(fields, zap.Stringer("previous", evt.Previous))
		}
		if snap := evt.Snapshot; snap != nil {
			fields = append(fields,
				zap.String("speed", snap.Speed+"H/s"),
				zap.Float64("progress_percent", snap.Progress.FinishedPercent),
				zap.Uint64("current", snap.Progress.CurrentRelativeToSkip),
				zap.Uint64("end", snap.Progress.EndRelativeToSkip),
				zap.String("eta", snap.ETA.Relative),
				zap.String("recovered_per_time", snap.CracksSummary),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("session status", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
