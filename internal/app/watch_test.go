package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger("exports", func() { calls.Add(1) })
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	d.stop()
	require.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := newDebouncer(time.Hour)
	var calls atomic.Int32
	d.trigger("exports", func() { calls.Add(1) })
	d.stop()

	d.trigger("exports", func() { calls.Add(1) })
	require.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_StopWaitsForRunningCallback(t *testing.T) {
	d := newDebouncer(time.Millisecond)
	started := make(chan struct{})
	var finished atomic.Bool
	d.trigger("exports", func() {
		close(started)
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	d.stop()
	require.True(t, finished.Load(), "stop returned while the callback was still running")
}
