package datapipe

import (
	"context"
	"fmt"
)

// Take yields at most n items from its inner source, then exhausts. It is
// the standard way to put a hard ceiling on an infinite stream: wrapping
// any source in Take makes the result finite, and Infinite reports false
// regardless of what the inner source reports.
type Take[T any] struct {
	inner Source[T]
	name  Name
	n     int
	taken int
}

// NewTake creates a Take over inner. A negative n is a configuration
// error and fails here, not at the first Next. n of zero exhausts
// immediately without pulling from the inner source.
func NewTake[T any](name Name, inner Source[T], n int) (*Take[T], error) {
	if n < 0 {
		return nil, newError(name, fmt.Errorf("take count must not be negative, got %d", n))
	}
	return &Take[T]{name: name, inner: inner, n: n}, nil
}

// Next implements the Source interface.
func (t *Take[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if t.taken >= t.n {
		return zero, false, nil
	}
	item, ok, err := t.inner.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	t.taken++
	return item, true, nil
}

// Reset implements the Source interface.
func (t *Take[T]) Reset() error {
	if err := t.inner.Reset(); err != nil {
		return err
	}
	t.taken = 0
	return nil
}

// RecordPosition implements the Source interface.
func (t *Take[T]) RecordPosition(ctx context.Context, tape *Tape, mode Mode) error {
	tape.Append(int64(t.taken))
	if err := t.inner.RecordPosition(ctx, tape, mode); err != nil {
		return positionErr(t.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (t *Take[T]) ReloadPosition(ctx context.Context, tape *Tape, mode Mode) error {
	taken, err := tape.ReadInt()
	if err != nil {
		return positionErr(t.name, err)
	}
	if taken < 0 || taken > int64(t.n) {
		return positionErr(t.name, fmt.Errorf("%w: taken count %d outside bound %d", ErrPositionMismatch, taken, t.n))
	}
	if err := t.inner.ReloadPosition(ctx, tape, mode); err != nil {
		return positionErr(t.name, err)
	}
	t.taken = int(taken)
	return nil
}

// Infinite implements the Source interface. A bounded prefix is never
// infinite.
func (*Take[T]) Infinite() bool {
	return false
}

// Name returns the name of this source.
func (t *Take[T]) Name() Name {
	return t.name
}

// Close shuts down the inner source.
func (t *Take[T]) Close() error {
	return t.inner.Close()
}
