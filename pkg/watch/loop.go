package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// BackoffConfig bounds the retry delay applied after failed poll cycles.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
}

// loop runs the poll cycles of one watcher on a dedicated goroutine. Cycles
// are strictly sequential; cancellation is observed between cycles and while
// sleeping.
type loop struct {
	name     string
	cycle    func(ctx context.Context) error
	interval func() time.Duration
	backoff  BackoffConfig
	logger   *logrus.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newLoop(name string, cycle func(context.Context) error, interval func() time.Duration, b BackoffConfig, logger *logrus.Entry) *loop {
	return &loop{
		name:     name,
		cycle:    cycle,
		interval: interval,
		backoff:  b,
		logger:   logger.WithField("watcher", name),
	}
}

// start launches the loop unless it is already running. It reports whether a
// new goroutine was started.
func (l *loop) start(parent context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil && !isClosed(l.done) {
		return false
	}
	if parent.Err() != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	go l.run(ctx, done)
	return true
}

// stop signals the loop and blocks until its goroutine has returned.
func (l *loop) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done

	l.mu.Lock()
	if l.done == done {
		l.cancel, l.done = nil, nil
	}
	l.mu.Unlock()
}

func (l *loop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil && !isClosed(l.done)
}

func (l *loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	l.logger.Debug("Watcher started")
	defer l.logger.Debug("Watcher stopped")

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = l.backoff.Initial
	retry.MaxInterval = l.backoff.Max
	retry.MaxElapsedTime = 0
	retry.Reset()

	// First cycle runs immediately.
	timer := time.NewTimer(0)
	defer timer.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := l.interval()
		if err := l.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			metricPollFailures.WithLabelValues(l.name).Inc()
			if delay := retry.NextBackOff(); delay != backoff.Stop && delay > wait {
				wait = delay
			}
			l.logger.WithError(err).WithFields(logrus.Fields{
				"failures": failures,
				"retry_in": wait,
			}).Warn("Poll cycle failed")
		} else if failures > 0 {
			l.logger.WithField("failures", failures).Info("Poll cycle recovered")
			failures = 0
			retry.Reset()
		}

		timer.Reset(wait)
	}
}

func (l *loop) runCycle(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panicked: %v", r)
		}
		metricPolls.WithLabelValues(l.name).Inc()
		metricPollSeconds.WithLabelValues(l.name).Add(time.Since(start).Seconds())
	}()
	return l.cycle(ctx)
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
