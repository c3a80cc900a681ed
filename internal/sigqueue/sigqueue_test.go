package sigqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/srg/bluectl/internal/sigqueue"
)

func TestPushPop(t *testing.T) {
	q := sigqueue.New[int](4)

	q.Push(1)
	q.Push(2)
	require.Equal(t, 2, q.Len())

	v, ok := q.PopTimeout(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = q.PopTimeout(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestOverwriteOldestWhenFull(t *testing.T) {
	q := sigqueue.New[int](3)

	for i := 1; i <= 5; i++ {
		q.Push(i)
	}

	require.Equal(t, 3, q.Len())
	require.Equal(t, int64(2), q.Dropped())

	var got []int
	for i := 0; i < 3; i++ {
		v, ok := q.PopTimeout(time.Millisecond)
		require.True(t, ok)
		got = append(got, v)
	}
	// The two oldest were discarded; order of survivors is preserved.
	require.Equal(t, []int{3, 4, 5}, got)
}

func TestPopTimeoutExpires(t *testing.T) {
	q := sigqueue.New[string](1)

	start := time.Now()
	_, ok := q.PopTimeout(10 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	require.False(t, q.Closed())
}

func TestPopAfterClose(t *testing.T) {
	q := sigqueue.New[int](2)
	q.Push(7)

	require.False(t, q.Closed())
	q.Close()
	require.True(t, q.Closed())

	// Buffered elements survive the close.
	v, ok := q.PopTimeout(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, 7, v)

	// Drained and closed: ok is false without waiting out the timeout,
	// and Closed distinguishes this from an ordinary empty poll.
	_, ok = q.PopTimeout(time.Hour)
	require.False(t, ok)
	require.True(t, q.Closed())
}

func TestNewPanicsOnBadCapacity(t *testing.T) {
	require.Panics(t, func() { sigqueue.New[int](0) })
}

func TestConcurrentProducer(t *testing.T) {
	q := sigqueue.New[int](8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Push(i)
		}
	}()

	// The consumer lags; the producer must never block.
	for {
		select {
		case <-done:
			return
		default:
			q.PopTimeout(time.Microsecond)
		}
	}
}
