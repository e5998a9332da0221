package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, n int, b Bounds) *Ledger {
	t.Helper()
	l, err := New(n, b)
	require.NoError(t, err)
	return l
}

func TestNewRejectsEmptyGroup(t *testing.T) {
	t.Parallel()

	_, err := New(0, Bounds{Base: 10})
	require.Error(t, err)
}

func TestCurrentIsSumOfCounters(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 3, Bounds{Base: 1000})
	l.RecordDone(0, 10)
	l.RecordDone(2, 5)
	l.RecordRejected(1, 7)
	l.RecordRestored(0, 3)

	require.Equal(t, uint64(15), l.Done())
	require.Equal(t, uint64(7), l.Rejected())
	require.Equal(t, uint64(3), l.Restored())
	require.Equal(t, l.Done()+l.Rejected()+l.Restored(), l.Current())
}

func TestOutOfRangeTargetsIgnored(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 2, Bounds{Base: 10})
	l.RecordDone(-1, 5)
	l.RecordDone(2, 5)
	l.SetVisible(9, true)

	require.Zero(t, l.Current())
	require.Zero(t, l.VisibleCount())
	require.False(t, l.Visible(9))
}

func TestEndAndSkip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		targets  int
		bounds   Bounds
		wantEnd  uint64
		wantSkip uint64
	}{
		{"no limit", 4, Bounds{Base: 100, Multiplier: 8}, 400, 0},
		{"limit below base", 3, Bounds{Base: 100, Limit: 40, Multiplier: 5}, 40 * 3 * 5, 0},
		{"limit above base", 2, Bounds{Base: 100, Limit: 400, Multiplier: 2}, 100 * 2 * 2, 0},
		{"zero multiplier", 2, Bounds{Base: 100, Limit: 10}, 20, 0},
		{"skip", 2, Bounds{Base: 100, Skip: 30, Limit: 50, Multiplier: 3}, 300, 180},
		{"skip above base", 1, Bounds{Base: 100, Skip: 500}, 100, 100},
		{"explicit keyspace", 2, Bounds{Base: 10, Keyspace: 70}, 140, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := newLedger(t, tc.targets, tc.bounds)
			require.Equal(t, tc.wantEnd, l.End())
			require.Equal(t, tc.wantSkip, l.Skip())
		})
	}
}

func TestRelativeToSkipClamps(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1, Bounds{Base: 100, Skip: 40})
	require.Zero(t, l.CurrentRelativeToSkip(), "nothing recorded yet")
	require.Equal(t, uint64(60), l.EndRelativeToSkip())

	l.RecordDone(0, 10)
	require.Zero(t, l.CurrentRelativeToSkip(), "still below skip")

	l.RecordDone(0, 40)
	require.Equal(t, uint64(10), l.CurrentRelativeToSkip())

	empty := newLedger(t, 1, Bounds{Skip: 5})
	require.Zero(t, empty.EndRelativeToSkip())
	require.Equal(t, KeyspaceUnknown, empty.Mode())
	require.Equal(t, KeyspaceKnown, l.Mode())
}

func TestIgnoredCoversVisibleTargetsOnly(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 3, Bounds{Base: 100})
	l.RecordDone(0, 30)
	l.RecordRejected(0, 10)
	l.RecordDone(1, 50)
	l.SetVisible(0, true)

	require.Equal(t, uint64(60), l.Ignored())

	l.RecordDone(0, 500)
	require.Zero(t, l.Ignored(), "overshoot clamps to zero")
	require.True(t, l.Visible(0))
	require.Equal(t, 1, l.VisibleCount())
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 2, Bounds{Base: 100})
	l.RecordDone(0, 20)
	l.RecordDone(1, 30)
	l.SetVisible(1, true)

	// end 200, current 50, ignored 70.
	require.Equal(t, uint64(80), l.Remaining())
}

func TestPercentagesDivideGuarded(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 2, Bounds{})
	require.Zero(t, l.FinishedPercent())
	require.Zero(t, l.RejectedPercent())
	require.Zero(t, l.TargetsPercent())
	require.Zero(t, l.RestorePercent())

	l = newLedger(t, 4, Bounds{Base: 100})
	l.RecordDone(0, 75)
	l.RecordRejected(1, 25)
	l.SetVisible(2, true)

	require.InDelta(t, 25.0, l.FinishedPercent(), 1e-9)
	require.InDelta(t, 25.0, l.RejectedPercent(), 1e-9)
	require.InDelta(t, 25.0, l.TargetsPercent(), 1e-9)
}

func TestRestorePointAndReset(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 2, Bounds{Base: 100})
	l.SetRestorePoint(25, 100)
	require.Equal(t, uint64(25), l.RestorePoint())
	require.Equal(t, uint64(100), l.RestoreTotal())
	require.InDelta(t, 25.0, l.RestorePercent(), 1e-9)

	l.Restore(10)
	require.Equal(t, uint64(20), l.Restored())

	l.RecordDone(0, 5)
	l.SetVisible(1, true)
	l.Reset(Bounds{Base: 500})

	require.Zero(t, l.Current())
	require.Zero(t, l.VisibleCount())
	require.Zero(t, l.RestorePoint())
	require.Equal(t, uint64(1000), l.End())
	require.Equal(t, uint64(500), l.Bounds().Base)
}

func TestConcurrentIncrementsAreExact(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perWorker = 10_000
	)
	l := newLedger(t, producers, Bounds{Base: perWorker})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(target int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.RecordDone(target, 1)
			}
		}(p)
	}
	// A concurrent reader must never block producers or see a torn total.
	var overshoot bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if l.Current() > producers*perWorker {
				overshoot = true
			}
		}
	}()
	wg.Wait()
	<-done

	require.False(t, overshoot)

	require.Equal(t, uint64(producers*perWorker), l.Done())
	require.InDelta(t, 100.0, l.FinishedPercent(), 1e-9)
}

func TestModeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Keyspace known", KeyspaceKnown.String())
	require.Equal(t, "Keyspace unknown", KeyspaceUnknown.String())
}
