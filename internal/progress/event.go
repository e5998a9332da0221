package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

// Stage denotes what an Event reports.
type Stage string

// Supported stages.
const (
	// StageStart opens a session run.
	StageStart Stage = "SESSION_START"
	// StageSnapshot carries a periodic status snapshot.
	StageSnapshot Stage = "SESSION_SNAPSHOT"
	// StageStatus reports a lifecycle transition.
	StageStatus Stage = "SESSION_STATUS"
	// StageDone carries the final snapshot once the session is terminal.
	StageDone Stage = "SESSION_DONE"
)

// Event is one status report about a session.
type Event struct {
	// SessionID identifies the run using the 16-byte UUID form.
	SessionID [16]byte
	// TS is the UTC time the report was taken.
	TS time.Time
	Stage Stage
	// Name is the human session name.
	Name string
	// Status is the lifecycle status at TS.
	Status state.Status
	// Previous is the status before a StageStatus transition.
	Previous state.Status
	// Snapshot is required for StageSnapshot and StageDone.
	Snapshot *session.Snapshot
	// Note lets emitters attach low-volume context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SessionID == [16]byte{} {
		return errors.New("session id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageStart, StageStatus:
	case StageSnapshot, StageDone:
		if e.Snapshot == nil {
			return fmt.Errorf("%s requires snapshot", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	return nil
}

// SessionUUID converts the binary session ID to uuid.UUID for repositories.
func (e Event) SessionUUID() uuid.UUID {
	return uuid.UUID(e.SessionID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
