package hwmon

import (
	"context"
	"fmt"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

// HostBackend reports the host CPU's sensors for every device index. It is
// used when the compute devices share the host package, or as a stand-in
// where no accelerator management library is available.
type HostBackend struct{}

var _ Backend = HostBackend{}

// Temperature returns the hottest reported sensor in degrees Celsius.
func (HostBackend) Temperature(ctx context.Context, _ int) (int, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	// Partial results arrive with a warning error; use them if present.
	if len(temps) == 0 {
		if err != nil {
			return 0, fmt.Errorf("read sensors: %w", err)
		}
		return 0, ErrUnsupported
	}
	hottest := math.Inf(-1)
	for _, t := range temps {
		if t.Temperature > hottest {
			hottest = t.Temperature
		}
	}
	if hottest <= 0 {
		return 0, ErrUnsupported
	}
	return int(math.Round(hottest)), nil
}

// FanPercent is not exposed by the host sensors.
func (HostBackend) FanPercent(context.Context, int) (int, error) {
	return 0, ErrUnsupported
}

// Utilization returns overall CPU utilization since the previous call.
func (HostBackend) Utilization(ctx context.Context, _ int) (int, error) {
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) == 0 {
		return 0, ErrUnsupported
	}
	return int(math.Round(pct[0])), nil
}

// CoreClock returns the nominal clock of the first CPU in MHz.
func (HostBackend) CoreClock(ctx context.Context, _ int) (int, error) {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("cpu info: %w", err)
	}
	if len(info) == 0 || info[0].Mhz <= 0 {
		return 0, ErrUnsupported
	}
	return int(math.Round(info[0].Mhz)), nil
}

// MemoryClock is not exposed by the host sensors.
func (HostBackend) MemoryClock(context.Context, int) (int, error) {
	return 0, ErrUnsupported
}

// BusLanes is not exposed by the host sensors.
func (HostBackend) BusLanes(context.Context, int) (int, error) {
	return 0, ErrUnsupported
}

// Throttle is not exposed by the host sensors.
func (HostBackend) Throttle(context.Context, int) (int, error) {
	return 0, ErrUnsupported
}
