package hwmon

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSummaryAllMetrics(t *testing.T) {
	t.Parallel()

	backend := &StaticBackend{Devices: map[int]Readings{
		0: {
			Temperature:    Int(65),
			FanPercent:     Int(40),
			Utilization:    Int(99),
			CoreClockMHz:   Int(1800),
			MemoryClockMHz: Int(7000),
			BusLanes:       Int(16),
			Throttle:       Int(1),
		},
	}}
	r := NewReader(backend, nil, nil)

	require.Equal(t,
		"Temp: 65c Fan: 40% Util: 99% Core:1800Mhz Mem:7000Mhz Lanes:16 *Throttled*",
		r.Summary(context.Background(), 0, false))
}

func TestSummaryOmitsUnsupportedMetrics(t *testing.T) {
	t.Parallel()

	backend := &StaticBackend{Devices: map[int]Readings{
		0: {Temperature: Int(5), Utilization: Int(100), Throttle: Int(0)},
	}}
	r := NewReader(backend, nil, nil)

	require.Equal(t, "Temp:  5c Util:100%", r.Summary(context.Background(), 0, false))

	snap := r.Poll(context.Background(), 0, false)
	require.Nil(t, snap.FanPercent)
	require.False(t, snap.Throttled)
	require.Equal(t, 100, *snap.Utilization)
}

func TestSummaryNotApplicable(t *testing.T) {
	t.Parallel()

	backend := &StaticBackend{Devices: map[int]Readings{0: {Temperature: Int(50)}}}
	r := NewReader(backend, nil, nil)

	require.Equal(t, "N/A", r.Summary(context.Background(), 0, true), "skipped device")
	require.Equal(t, "N/A", r.Summary(context.Background(), 3, false), "nothing readable")
	require.Equal(t, "N/A", NewReader(nil, nil, nil).Summary(context.Background(), 0, false))
	require.True(t, r.Poll(context.Background(), 0, true).NotApplicable)
}

type flakyBackend struct {
	StaticBackend
}

func (flakyBackend) Temperature(context.Context, int) (int, error) {
	return 0, errors.New("i2c timeout")
}

func TestFailedSensorBlanksOnlyItsMetric(t *testing.T) {
	t.Parallel()

	b := &flakyBackend{StaticBackend{Devices: map[int]Readings{
		0: {Temperature: Int(70), FanPercent: Int(55)},
	}}}
	r := NewReader(b, nil, zap.NewNop())

	snap := r.Poll(context.Background(), 0, false)
	require.Nil(t, snap.Temperature)
	require.NotNil(t, snap.FanPercent)
	require.Equal(t, "Fan: 55%", snap.String())
}

type countingBackend struct {
	StaticBackend
	mu     sync.Mutex
	active int
	peak   int
}

func (c *countingBackend) Temperature(ctx context.Context, device int) (int, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.peak {
		c.peak = c.active
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	return c.StaticBackend.Temperature(ctx, device)
}

func TestSharedLockSerialisesReaders(t *testing.T) {
	t.Parallel()

	b := &countingBackend{StaticBackend: StaticBackend{Devices: map[int]Readings{0: {Temperature: Int(1)}}}}
	shared := &sync.Mutex{}
	r1 := NewReader(b, shared, nil)
	r2 := NewReader(b, shared, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); r1.Poll(context.Background(), 0, false) }()
		go func() { defer wg.Done(); r2.Summary(context.Background(), 0, false) }()
	}
	wg.Wait()

	require.Equal(t, 1, b.peak)
}

func TestHostBackendUnsupportedMetrics(t *testing.T) {
	t.Parallel()

	var b HostBackend
	for _, fn := range []func(context.Context, int) (int, error){b.FanPercent, b.MemoryClock, b.BusLanes, b.Throttle} {
		_, err := fn(context.Background(), 0)
		require.ErrorIs(t, err, ErrUnsupported)
	}
}
