package datapipe

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// Throttle enforces a minimum interval between the items of its inner
// source. Next blocks until the interval since the previously yielded
// item has elapsed, then pulls. Exhaustion and errors are never delayed.
//
// Timing is not position: a restored pipeline starts its interval fresh.
// Record and reload are pure delegation.
//
// Use Throttle to pace a consumer against a rate-limited backing store,
// or to smoke-test consumer back-pressure behavior with a fake clock.
type Throttle[T any] struct {
	inner    Source[T]
	name     Name
	interval time.Duration
	clock    clockz.Clock
	last     time.Time
	started  bool
}

// NewThrottle creates a Throttle over inner. A negative interval is a
// configuration error and fails here, not at the first Next. A zero
// interval passes through unpaced.
func NewThrottle[T any](name Name, inner Source[T], interval time.Duration) (*Throttle[T], error) {
	if interval < 0 {
		return nil, newError(name, fmt.Errorf("throttle interval must not be negative, got %v", interval))
	}
	return &Throttle[T]{name: name, inner: inner, interval: interval}, nil
}

// Next implements the Source interface.
func (th *Throttle[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	clock := th.getClock()

	if th.started && th.interval > 0 {
		if wait := th.interval - clock.Now().Sub(th.last); wait > 0 {
			select {
			case <-clock.After(wait):
			case <-ctx.Done():
				return zero, false, ctx.Err()
			}
		}
	}

	item, ok, err := th.inner.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	th.last = clock.Now()
	th.started = true
	return item, true, nil
}

// Reset implements the Source interface.
func (th *Throttle[T]) Reset() error {
	if err := th.inner.Reset(); err != nil {
		return err
	}
	th.started = false
	return nil
}

// RecordPosition implements the Source interface.
func (th *Throttle[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := th.inner.RecordPosition(ctx, t, mode); err != nil {
		return positionErr(th.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (th *Throttle[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := th.inner.ReloadPosition(ctx, t, mode); err != nil {
		return positionErr(th.name, err)
	}
	th.started = false
	return nil
}

// Infinite implements the Source interface.
func (th *Throttle[T]) Infinite() bool {
	return th.inner.Infinite()
}

// Name returns the name of this source.
func (th *Throttle[T]) Name() Name {
	return th.name
}

// Close shuts down the inner source.
func (th *Throttle[T]) Close() error {
	return th.inner.Close()
}

// WithClock sets a custom clock for testing.
func (th *Throttle[T]) WithClock(clock clockz.Clock) *Throttle[T] {
	th.clock = clock
	return th
}

// getClock returns the clock to use.
func (th *Throttle[T]) getClock() clockz.Clock {
	if th.clock == nil {
		return clockz.RealClock
	}
	return th.clock
}
