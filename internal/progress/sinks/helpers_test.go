package sinks

import (
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/ratewindow"
	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

var baseTS = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSnapshot(st state.Status) *session.Snapshot {
	temp := 71
	return &session.Snapshot{
		Name:        "wordlist-run",
		TakenAt:     baseTS.Add(time.Minute),
		Status:      st,
		StatusCode:  int(st),
		StartedAt:   baseTS,
		RealSeconds: 60,
		ETA: session.ETAView{
			Kind:             "known",
			RemainingSeconds: 1000,
			Relative:         "16 mins, 40 secs",
		},
		Progress: session.Progress{
			FinishedPercent:       25,
			CurrentRelativeToSkip: 250,
			EndRelativeToSkip:     1000,
			Targets:               4,
			TargetsDone:           1,
		},
		SpeedPerSec:   1000,
		Speed:         "1000 ",
		DevicesTotal:  2,
		DevicesActive: 2,
		Devices: []session.DeviceView{
			{ID: 0, SpeedPerSec: 400, Speed: "400 ", ExecMs: 12.5, Hardware: &hwmon.Snapshot{Device: 0, Temperature: &temp}},
			{ID: 1, SpeedPerSec: 600, Speed: "600 ", ExecMs: 10},
		},
		Cracks:        ratewindow.Report{CurrentMinute: 1, CurrentHour: 1, CurrentDay: 1},
		CracksSummary: "CUR:1,1,1 AVG:1.00,60.00,1440.00 (Min,Hour,Day)",
	}
}

func sampleEvents(id uuid.UUID) []progress.Event {
	sid := progress.UUIDToBytes(id)
	return []progress.Event{
		{SessionID: sid, TS: baseTS, Stage: progress.StageStart, Name: "wordlist-run", Status: state.Initializing},
		{
			SessionID: sid, TS: baseTS.Add(time.Second), Stage: progress.StageStatus, Name: "wordlist-run",
			Status: state.Running, Previous: state.Autotuning,
		},
		{
			SessionID: sid, TS: baseTS.Add(time.Minute), Stage: progress.StageSnapshot, Name: "wordlist-run",
			Status: state.Running, Snapshot: sampleSnapshot(state.Running),
		},
		{
			SessionID: sid, TS: baseTS.Add(2 * time.Minute), Stage: progress.StageDone, Name: "wordlist-run",
			Status: state.Exhausted, Snapshot: sampleSnapshot(state.Exhausted),
		},
	}
}
