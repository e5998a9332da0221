package hwmon

import "context"

// Readings are the fixed values a StaticBackend reports for one device. Nil
// fields are unsupported.
type Readings struct {
	Temperature    *int
	FanPercent     *int
	Utilization    *int
	CoreClockMHz   *int
	MemoryClockMHz *int
	BusLanes       *int
	Throttle       *int
}

// StaticBackend serves fixed readings per device.
type StaticBackend struct {
	Devices map[int]Readings
}

var _ Backend = (*StaticBackend)(nil)

// Int returns a pointer to v, for building Readings literals.
func Int(v int) *int { return &v }

func (b *StaticBackend) value(device int, pick func(Readings) *int) (int, error) {
	r, ok := b.Devices[device]
	if !ok {
		return 0, ErrUnsupported
	}
	p := pick(r)
	if p == nil {
		return 0, ErrUnsupported
	}
	return *p, nil
}

// Temperature implements Backend.
func (b *StaticBackend) Temperature(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.Temperature })
}

// FanPercent implements Backend.
func (b *StaticBackend) FanPercent(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.FanPercent })
}

// Utilization implements Backend.
func (b *StaticBackend) Utilization(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.Utilization })
}

// CoreClock implements Backend.
func (b *StaticBackend) CoreClock(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.CoreClockMHz })
}

// MemoryClock implements Backend.
func (b *StaticBackend) MemoryClock(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.MemoryClockMHz })
}

// BusLanes implements Backend.
func (b *StaticBackend) BusLanes(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.BusLanes })
}

// Throttle implements Backend.
func (b *StaticBackend) Throttle(_ context.Context, device int) (int, error) {
	return b.value(device, func(r Readings) *int { return r.Throttle })
}
