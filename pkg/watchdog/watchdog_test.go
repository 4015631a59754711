package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, MaxTimeout},
		{-time.Second, MaxTimeout},
		{10 * time.Second, MaxTimeout},
		{MaxTimeout, MaxTimeout},
		{time.Second, time.Second},
		{time.Millisecond, time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampTimeout(tt.in), "ClampTimeout(%v)", tt.in)
	}
}

func TestWatchdogInterval(t *testing.T) {
	w := New(NewSoftDeadman(nil), 4*time.Second, nil)
	assert.Equal(t, 4*time.Second, w.Timeout())
	assert.Equal(t, time.Second, w.Interval())
}

func TestWatchdogFeedsKeepDeadmanAlive(t *testing.T) {
	var resets atomic.Int32
	dm := NewSoftDeadman(func() { resets.Add(1) })
	w := New(dm, 40*time.Millisecond, nil)

	require.NoError(t, w.Start(nil))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Zero(t, resets.Load())
	assert.False(t, dm.Expired())
	assert.GreaterOrEqual(t, w.Feeds(), uint64(3))
	assert.False(t, w.LastFeed().IsZero())
}

func TestWatchdogStarvedFeederResets(t *testing.T) {
	reset := make(chan struct{}, 1)
	dm := NewSoftDeadman(func() {
		select {
		case reset <- struct{}{}:
		default:
		}
	})
	w := New(dm, 30*time.Millisecond, nil)

	var calls atomic.Int32
	require.NoError(t, w.Start(func() { calls.Add(1) }))
	defer func() { _ = w.Stop() }()

	select {
	case <-reset:
	case <-time.After(time.Second):
		t.Fatal("deadman did not fire for a feeder that never feeds")
	}
	assert.Positive(t, calls.Load(), "feeder callback runs")
	assert.True(t, dm.Expired())
}

func TestWatchdogFeedIdempotent(t *testing.T) {
	dm := NewSoftDeadman(nil)
	w := New(dm, time.Second, nil)

	assert.ErrorIs(t, w.Feed(), ErrNotArmed)

	require.NoError(t, w.Start(func() {}))
	require.NoError(t, w.Feed())
	require.NoError(t, w.Feed())
	assert.Equal(t, uint64(2), w.Feeds())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatchdogStartTwice(t *testing.T) {
	w := New(NewSoftDeadman(nil), time.Second, nil)
	require.NoError(t, w.Start(func() {}))
	defer func() { _ = w.Stop() }()

	assert.ErrorIs(t, w.Start(func() {}), ErrAlreadyStarted)
}

func TestSoftDeadmanClosed(t *testing.T) {
	dm := NewSoftDeadman(nil)
	require.NoError(t, dm.Arm(time.Second))
	require.NoError(t, dm.Close())

	assert.ErrorIs(t, dm.Kick(), ErrClosed)
	assert.ErrorIs(t, dm.Arm(time.Second), ErrClosed)
}
