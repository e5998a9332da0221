package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	_, err := New[int](0)
	require.Error(t, err)
	_, err = New[int](-3)
	require.Error(t, err)
}

func TestPutWrapsAroundCapacity(t *testing.T) {
	t.Parallel()

	r, err := New[int](3)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		r.Put(i)
	}
	require.Equal(t, 2, r.Cursor())

	var got []int
	r.Each(func(v int) { got = append(got, v) })
	require.Equal(t, []int{4, 5, 3}, got)
}

func TestLastWalksNewestFirstAndSkipsUnset(t *testing.T) {
	t.Parallel()

	r, err := New[int](4)
	require.NoError(t, err)
	r.Put(10)
	r.Put(20)

	var got []int
	r.Last(4, func(v int) { got = append(got, v) })
	require.Equal(t, []int{20, 10}, got)

	got = got[:0]
	r.Last(1, func(v int) { got = append(got, v) })
	require.Equal(t, []int{20}, got)

	got = got[:0]
	r.Last(100, func(v int) { got = append(got, v) })
	require.Len(t, got, 2)
}

func TestLastAcrossWrap(t *testing.T) {
	t.Parallel()

	r, err := New[int](3)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		r.Put(i)
	}

	var got []int
	r.Last(2, func(v int) { got = append(got, v) })
	require.Equal(t, []int{4, 3}, got)
}

func TestAtAndReset(t *testing.T) {
	t.Parallel()

	r, err := New[string](2)
	require.NoError(t, err)

	_, ok := r.At(0)
	require.False(t, ok)

	r.Put("a")
	v, ok := r.At(0)
	require.True(t, ok)
	require.Equal(t, "a", v)

	v, ok = r.At(2)
	require.True(t, ok)
	require.Equal(t, "a", v)

	r.Reset()
	_, ok = r.At(0)
	require.False(t, ok)
	require.Equal(t, 0, r.Cursor())
}

func TestConcurrentPutAndRead(t *testing.T) {
	t.Parallel()

	r, err := New[int](16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r.Put(i)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Last(8, func(int) {})
		}
	}()
	wg.Wait()

	count := 0
	r.Each(func(int) { count++ })
	require.Equal(t, 16, count)
}
