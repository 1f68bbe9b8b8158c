package watch

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestLoopRunsImmediatelyAndRepeatedly(t *testing.T) {
	var cycles int32
	l := newLoop("test", func(ctx context.Context) error {
		atomic.AddInt32(&cycles, 1)
		return nil
	}, func() time.Duration { return time.Millisecond }, BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond}, quietLogger())

	require.True(t, l.start(context.Background()))
	assert.False(t, l.start(context.Background()), "already running")
	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) >= 3 }, time.Second, time.Millisecond)

	l.stop()
	assert.False(t, l.running())
	n := atomic.LoadInt32(&cycles)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, atomic.LoadInt32(&cycles))

	l.stop()
}

func TestLoopRereadsInterval(t *testing.T) {
	var interval atomic.Int64
	interval.Store(int64(time.Hour))
	var cycles int32
	l := newLoop("test", func(ctx context.Context) error {
		atomic.AddInt32(&cycles, 1)
		return nil
	}, func() time.Duration { return time.Duration(interval.Load()) }, BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond}, quietLogger())

	l.start(context.Background())
	defer l.stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cycles), "sleeping for the first interval")
}

func TestLoopRecoversPanicsAndErrors(t *testing.T) {
	var cycles int32
	l := newLoop("test", func(ctx context.Context) error {
		switch atomic.AddInt32(&cycles, 1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("listing failed")
		}
		return nil
	}, func() time.Duration { return time.Millisecond }, BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond}, quietLogger())

	l.start(context.Background())
	defer l.stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) >= 4 }, time.Second, time.Millisecond)
	assert.True(t, l.running())
}

func TestLoopStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newLoop("test", func(ctx context.Context) error { return nil },
		func() time.Duration { return time.Millisecond }, BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond}, quietLogger())

	l.start(ctx)
	cancel()
	require.Eventually(t, func() bool { return !l.running() }, time.Second, time.Millisecond)
	assert.False(t, l.start(ctx), "cancelled parent")
}
