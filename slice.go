package datapipe

import (
	"context"
	"fmt"
)

// Slice is a leaf source over an in-memory slice. Items are yielded in
// slice order; the position is the index of the next item.
//
// The backing slice is not copied. Mutating it while iterating, or after
// recording a position, is the caller's problem.
type Slice[T any] struct {
	items []T
	idx   int
	name  Name
}

// NewSlice creates a leaf source over items.
func NewSlice[T any](name Name, items []T) *Slice[T] {
	return &Slice[T]{name: name, items: items}
}

// Next implements the Source interface.
func (s *Slice[T]) Next(_ context.Context) (T, bool, error) {
	if s.idx >= len(s.items) {
		var zero T
		return zero, false, nil
	}
	item := s.items[s.idx]
	s.idx++
	return item, true, nil
}

// Reset implements the Source interface.
func (s *Slice[T]) Reset() error {
	s.idx = 0
	return nil
}

// RecordPosition implements the Source interface.
func (s *Slice[T]) RecordPosition(_ context.Context, t *Tape, _ Mode) error {
	t.Append(int64(s.idx))
	return nil
}

// ReloadPosition implements the Source interface.
func (s *Slice[T]) ReloadPosition(_ context.Context, t *Tape, _ Mode) error {
	idx, err := t.ReadInt()
	if err != nil {
		return positionErr(s.name, err)
	}
	if idx < 0 || idx > int64(len(s.items)) {
		return positionErr(s.name, fmt.Errorf("%w: index %d outside slice of %d items", ErrPositionMismatch, idx, len(s.items)))
	}
	s.idx = int(idx)
	return nil
}

// Infinite implements the Source interface.
func (*Slice[T]) Infinite() bool {
	return false
}

// Name returns the name of this source.
func (s *Slice[T]) Name() Name {
	return s.name
}

// Close implements the Source interface. Slices hold no resources.
func (*Slice[T]) Close() error {
	return nil
}
