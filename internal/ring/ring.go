// Package ring provides the fixed-capacity circular sample store shared by the
// device throughput cache and the rate-window counter.
//
// Every slot is published as a single atomic pointer swap, so a reader that
// races a writer observes either the previous sample or the new one, never a
// torn value. The write cursor is claimed atomically, which also makes Put safe
// for multiple producers.
package ring

import (
	"fmt"
	"sync/atomic"
)

// Ring is a fixed-capacity circular buffer. The zero value is not usable; call New.
type Ring[T any] struct {
	slots  []atomic.Pointer[T]
	cursor atomic.Uint64
}

// New allocates a Ring with the given capacity.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be > 0, got %d", capacity)
	}
	return &Ring[T]{slots: make([]atomic.Pointer[T], capacity)}, nil
}

// Cap returns the number of slots.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Cursor returns the index of the slot the next Put will overwrite.
func (r *Ring[T]) Cursor() int {
	return int(r.cursor.Load() % uint64(len(r.slots)))
}

// Put overwrites the slot under the cursor and advances the cursor.
func (r *Ring[T]) Put(v T) {
	pos := r.cursor.Add(1) - 1
	r.slots[pos%uint64(len(r.slots))].Store(&v)
}

// At returns the value stored in slot i (taken modulo capacity) and whether
// the slot has ever been written.
func (r *Ring[T]) At(i int) (T, bool) {
	n := len(r.slots)
	idx := ((i % n) + n) % n
	p := r.slots[idx].Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Each visits every written slot in storage order.
func (r *Ring[T]) Each(fn func(T)) {
	for i := range r.slots {
		if p := r.slots[i].Load(); p != nil {
			fn(*p)
		}
	}
}

// Last walks backward from the cursor over at most k slots, newest first,
// calling fn for each written slot. k is clamped to the capacity.
func (r *Ring[T]) Last(k int, fn func(T)) {
	n := len(r.slots)
	if k > n {
		k = n
	}
	start := r.Cursor()
	for i := 1; i <= k; i++ {
		idx := (start - i + n) % n
		if p := r.slots[idx].Load(); p != nil {
			fn(*p)
		}
	}
}

// Reset clears every slot and rewinds the cursor.
func (r *Ring[T]) Reset() {
	for i := range r.slots {
		r.slots[i].Store(nil)
	}
	r.cursor.Store(0)
}
