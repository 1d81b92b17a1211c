package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/flatwatch/claw/metrics"
)

// ErrQueueFull is returned when no execution slot frees up within the
// configured queueing delay. It is the backpressure signal of the service.
var ErrQueueFull = errors.New("dispatch queue full")

// Dispatcher bounds the number of concurrently executing request handlers
// and enforces a per-request execution timeout. The semaphore channel is
// the only mutable shared state; blocked submitters are serviced in
// arrival order.
type Dispatcher struct {
	sem            chan struct{}
	queueTimeout   time.Duration
	requestTimeout time.Duration

	executing prometheus.Gauge
	waiting   prometheus.Gauge
	rejected  prometheus.Counter
	timeouts  prometheus.Counter
}

// Option function to configure a Dispatcher
type Option func(*Dispatcher)

// New creates a Dispatcher allowing maxConcurrent units to execute at
// once. Submissions beyond that wait up to queueTimeout for a slot; zero
// means reject immediately.
func New(maxConcurrent int, queueTimeout, requestTimeout time.Duration, opts ...Option) *Dispatcher {
	metrics.DispatchMaxConcurrency.Set(float64(maxConcurrent))

	d := &Dispatcher{
		sem:            make(chan struct{}, maxConcurrent),
		queueTimeout:   queueTimeout,
		requestTimeout: requestTimeout,
		executing:      metrics.DispatchExecuting,
		waiting:        metrics.DispatchWaiting,
		rejected:       metrics.DispatchRejected,
		timeouts:       metrics.DispatchTimeouts,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// RequestTimeout returns the configured per-request execution timeout.
func (d *Dispatcher) RequestTimeout() time.Duration {
	return d.requestTimeout
}

// Submit runs fn under concurrency control. fn receives a context that is
// cancelled when the execution timeout expires or the caller's context is
// done; fn completing is communicated back on a channel, never via a
// shared flag. Returns ErrQueueFull when admission fails,
// context.DeadlineExceeded when the unit timed out, or fn's own error.
func (d *Dispatcher) Submit(ctx context.Context, fn func(context.Context) error) error {
	if !d.acquire(ctx) {
		d.rejected.Inc()
		return ErrQueueFull
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if d.requestTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.requestTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(runCtx)
	}()

	select {
	case err := <-done:
		cancel()
		d.release()
		return err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			d.timeouts.Inc()
		}
		// the unit was cancelled but fn decides when to stop; hold the
		// slot until it returns so the concurrency bound stays honest
		go func() {
			<-done
			cancel()
			d.release()
		}()
		return runCtx.Err()
	}
}

// acquire obtains an execution slot, waiting up to the queue timeout.
func (d *Dispatcher) acquire(ctx context.Context) bool {
	select {
	case d.sem <- struct{}{}:
		d.executing.Inc()
		return true
	default:
	}

	if d.queueTimeout <= 0 {
		return false
	}

	d.waiting.Inc()
	defer d.waiting.Dec()

	timer := time.NewTimer(d.queueTimeout)
	defer timer.Stop()

	select {
	case d.sem <- struct{}{}:
		d.executing.Inc()
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (d *Dispatcher) release() {
	<-d.sem
	d.executing.Dec()
}
