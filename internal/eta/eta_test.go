package eta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyspace-status/internal/humanize"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

type fakeLedger struct {
	end, remaining uint64
}

func (f fakeLedger) EndRelativeToSkip() uint64 { return f.end }
func (f fakeLedger) Remaining() uint64         { return f.remaining }

type fakeRate float64

func (f fakeRate) SpeedPerMsAll() float64 { return float64(f) }

type fakeElapsed time.Duration

func (f fakeElapsed) Real(time.Time) time.Duration { return time.Duration(f) }

func register(s state.Status) *state.Register {
	r := state.NewRegister()
	r.Set(s)
	return r
}

var now = time.Date(2024, 2, 2, 10, 0, 0, 0, time.Local)

func TestProjectKnown(t *testing.T) {
	t.Parallel()

	p := &Projector{
		Ledger: fakeLedger{end: 1_000_000, remaining: 90_000},
		Rates:  fakeRate(1), // one candidate per ms
		Status: register(state.Running),
	}
	est := p.Project(now)

	require.True(t, est.Valid())
	require.Equal(t, 90*time.Second, est.Remaining)
	require.Equal(t, now.Add(90*time.Second), est.At)
	require.Equal(t, "1 min, 30 secs", est.Relative())
	require.Equal(t, humanize.Timestamp(now.Add(90*time.Second)), est.Absolute())
}

func TestProjectNotApplicable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		p    *Projector
	}{
		{"cracked with nothing remaining", &Projector{Ledger: fakeLedger{end: 10}, Rates: fakeRate(5), Status: register(state.Cracked)}},
		{"unknown keyspace", &Projector{Ledger: fakeLedger{}, Rates: fakeRate(5), Status: register(state.Running)}},
		{"autotuning", &Projector{Ledger: fakeLedger{end: 10, remaining: 10}, Rates: fakeRate(5), Status: register(state.Autotuning)}},
		{"no ledger", &Projector{Rates: fakeRate(5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			est := tc.p.Project(now)
			require.Equal(t, NotApplicable, est.Kind)
			require.False(t, est.Valid())
			require.Zero(t, est.Remaining)
			require.Equal(t, "N/A", est.Relative())
			require.Equal(t, "N/A", est.Absolute())
		})
	}
}

func TestProjectUnknownWithoutThroughput(t *testing.T) {
	t.Parallel()

	p := &Projector{Ledger: fakeLedger{end: 10, remaining: 10}, Rates: fakeRate(0), Status: register(state.Running)}
	est := p.Project(now)
	require.Equal(t, Unknown, est.Kind)
	require.Equal(t, "unknown", est.Relative())
	require.Equal(t, "unknown", est.Absolute())
}

func TestProjectCapsRemaining(t *testing.T) {
	t.Parallel()

	p := &Projector{Ledger: fakeLedger{end: 1 << 62, remaining: 1 << 62}, Rates: fakeRate(1e-9), Status: register(state.Running)}
	est := p.Project(now)
	require.Equal(t, time.Duration(maxRemainingSeconds)*time.Second, est.Remaining)
}

func TestRuntimeLimit(t *testing.T) {
	t.Parallel()

	base := Projector{
		Ledger:       fakeLedger{end: 1_000_000, remaining: 3_600_000},
		Rates:        fakeRate(1),
		Status:       register(state.Running),
		RuntimeLimit: 30 * time.Minute,
	}

	t.Run("binding", func(t *testing.T) {
		t.Parallel()
		p := base
		p.Runtime = fakeElapsed(20 * time.Minute)
		est := p.Project(now)
		require.True(t, est.Binding)
		require.Equal(t, 10*time.Minute, est.RuntimeLeft)
		require.Equal(t, "1 hour; Runtime limited: 10 mins", est.Relative())
		require.Equal(t, humanize.Timestamp(now.Add(10*time.Minute)), est.Absolute())
	})

	t.Run("not binding", func(t *testing.T) {
		t.Parallel()
		p := base
		p.RuntimeLimit = 3 * time.Hour
		p.Runtime = fakeElapsed(0)
		est := p.Project(now)
		require.False(t, est.Binding)
		require.Equal(t, humanize.Timestamp(now.Add(time.Hour)), est.Absolute())
	})

	t.Run("exceeded", func(t *testing.T) {
		t.Parallel()
		p := base
		p.Runtime = fakeElapsed(45 * time.Minute)
		est := p.Project(now)
		require.True(t, est.LimitExceeded)
		require.Zero(t, est.RuntimeLeft)
		require.Equal(t, "1 hour; Runtime limit exceeded", est.Relative())
	})
}
