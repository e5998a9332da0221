// Package throughput keeps a short history of per-device batch timings and
// derives throughput and kernel execution time from it.
//
// Speed averages divide by the full window capacity, so a device that has
// only reported a few batches reads low until its window fills. Execution
// time averages divide by populated samples only. The two are deliberately
// kept distinct.
package throughput

import (
	"fmt"
	"sync/atomic"

	"github.com/JakeFAU/keyspace-status/internal/ring"
)

// Default window sizes.
const (
	DefaultSpeedWindow = 128
	DefaultExecWindow  = 128
)

type speedSample struct {
	count uint64
	ms    float64
}

// Device holds the sample windows of one compute device. Only the device's
// own worker writes to it.
type Device struct {
	id      int
	skipped atomic.Bool
	speed   *ring.Ring[speedSample]
	exec    *ring.Ring[float64]
}

func newDevice(id, speedWindow, execWindow int) (*Device, error) {
	speed, err := ring.New[speedSample](speedWindow)
	if err != nil {
		return nil, fmt.Errorf("speed window: %w", err)
	}
	exec, err := ring.New[float64](execWindow)
	if err != nil {
		return nil, fmt.Errorf("exec window: %w", err)
	}
	return &Device{id: id, speed: speed, exec: exec}, nil
}

// ID returns the device index.
func (d *Device) ID() int { return d.id }

// Skipped reports whether the device is excluded from the job.
func (d *Device) Skipped() bool { return d.skipped.Load() }

// RecordSpeedSample stores the candidate count and wall time of one batch.
func (d *Device) RecordSpeedSample(count uint64, ms float64) {
	d.speed.Put(speedSample{count: count, ms: ms})
}

// RecordExecSample stores the kernel execution time of one batch.
func (d *Device) RecordExecSample(ms float64) {
	d.exec.Put(ms)
}

// SpeedPerMs returns candidates per millisecond over the speed window.
func (d *Device) SpeedPerMs() float64 {
	if d.skipped.Load() {
		return 0
	}
	var count, ms float64
	d.speed.Each(func(s speedSample) {
		if s.ms <= 0 {
			return
		}
		count += float64(s.count)
		ms += s.ms
	})
	capacity := float64(d.speed.Cap())
	count /= capacity
	ms /= capacity
	if ms <= 0 {
		return 0
	}
	return count / ms
}

// SpeedPerMsBenchmark returns candidates per millisecond from the first slot
// only, which is the single measurement taken in benchmark runs.
func (d *Device) SpeedPerMsBenchmark() float64 {
	if d.skipped.Load() {
		return 0
	}
	s, ok := d.speed.At(0)
	if !ok || s.ms <= 0 {
		return 0
	}
	return float64(s.count) / s.ms
}

// ExecMs returns the mean execution time over the whole exec window.
func (d *Device) ExecMs() float64 {
	return d.ExecMsLast(d.exec.Cap())
}

// ExecMsLast returns the mean execution time over the last k samples,
// ignoring unpopulated and non-positive entries.
func (d *Device) ExecMsLast(k int) float64 {
	if d.skipped.Load() {
		return 0
	}
	var sum float64
	var n int
	d.exec.Last(k, func(ms float64) {
		if ms <= 0 {
			return
		}
		sum += ms
		n++
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Cache is the set of device records for one job.
type Cache struct {
	devices []*Device
}

// New allocates records for n devices.
func New(n, speedWindow, execWindow int) (*Cache, error) {
	if n <= 0 {
		return nil, fmt.Errorf("device count must be > 0, got %d", n)
	}
	c := &Cache{devices: make([]*Device, n)}
	for i := range c.devices {
		d, err := newDevice(i, speedWindow, execWindow)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
		c.devices[i] = d
	}
	return c, nil
}

// Device returns the record for id, or nil when out of range.
func (c *Cache) Device(id int) *Device {
	if id < 0 || id >= len(c.devices) {
		return nil
	}
	return c.devices[id]
}

// SetSkipped marks device id as excluded.
func (c *Cache) SetSkipped(id int, skipped bool) {
	if d := c.Device(id); d != nil {
		d.skipped.Store(skipped)
	}
}

// Devices returns every device record in index order.
func (c *Cache) Devices() []*Device {
	return c.devices
}

// DeviceCount returns the number of devices.
func (c *Cache) DeviceCount() int { return len(c.devices) }

// ActiveCount returns the number of devices not skipped.
func (c *Cache) ActiveCount() int {
	n := 0
	for _, d := range c.devices {
		if !d.skipped.Load() {
			n++
		}
	}
	return n
}

// SpeedPerMsAll sums throughput across active devices.
func (c *Cache) SpeedPerMsAll() float64 {
	var total float64
	for _, d := range c.devices {
		total += d.SpeedPerMs()
	}
	return total
}

// SpeedPerMsBenchmarkAll sums single-slot throughput across active devices.
func (c *Cache) SpeedPerMsBenchmarkAll() float64 {
	var total float64
	for _, d := range c.devices {
		total += d.SpeedPerMsBenchmark()
	}
	return total
}

// ExecMsAll sums execution time across devices. Skipped devices contribute 0.
func (c *Cache) ExecMsAll() float64 {
	var total float64
	for _, d := range c.devices {
		total += d.ExecMs()
	}
	return total
}

// Reset clears every sample window.
func (c *Cache) Reset() {
	for _, d := range c.devices {
		d.speed.Reset()
		d.exec.Reset()
	}
}
