package datapipe

import (
	"context"
	"fmt"
)

// Skip drops the first n items of its inner source and yields the rest.
// The drop happens lazily on the first Next call, so a freshly built Skip
// has performed no work. Skipping past the end of the inner source is not
// an error; the result is simply exhausted.
type Skip[T any] struct {
	inner   Source[T]
	name    Name
	n       int
	skipped int
}

// NewSkip creates a Skip over inner. A negative n is a configuration
// error and fails here, not at the first Next.
func NewSkip[T any](name Name, inner Source[T], n int) (*Skip[T], error) {
	if n < 0 {
		return nil, newError(name, fmt.Errorf("skip count must not be negative, got %d", n))
	}
	return &Skip[T]{name: name, inner: inner, n: n}, nil
}

// Next implements the Source interface.
func (s *Skip[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for s.skipped < s.n {
		_, ok, err := s.inner.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			// Inner ran out before the drop completed. Recording the
			// partial progress keeps reload consistent.
			return zero, false, nil
		}
		s.skipped++
	}
	return s.inner.Next(ctx)
}

// Reset implements the Source interface.
func (s *Skip[T]) Reset() error {
	if err := s.inner.Reset(); err != nil {
		return err
	}
	s.skipped = 0
	return nil
}

// RecordPosition implements the Source interface.
func (s *Skip[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	t.Append(int64(s.skipped))
	if err := s.inner.RecordPosition(ctx, t, mode); err != nil {
		return positionErr(s.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (s *Skip[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	skipped, err := t.ReadInt()
	if err != nil {
		return positionErr(s.name, err)
	}
	if skipped < 0 || skipped > int64(s.n) {
		return positionErr(s.name, fmt.Errorf("%w: skip progress %d outside bound %d", ErrPositionMismatch, skipped, s.n))
	}
	if err := s.inner.ReloadPosition(ctx, t, mode); err != nil {
		return positionErr(s.name, err)
	}
	s.skipped = int(skipped)
	return nil
}

// Infinite implements the Source interface.
func (s *Skip[T]) Infinite() bool {
	return s.inner.Infinite()
}

// Name returns the name of this source.
func (s *Skip[T]) Name() Name {
	return s.name
}

// Close shuts down the inner source.
func (s *Skip[T]) Close() error {
	return s.inner.Close()
}
