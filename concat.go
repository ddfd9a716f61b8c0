package datapipe

import (
	"context"
	"errors"
	"fmt"
)

// Concat yields every item of its first child, then every item of its
// second, and so on. With no children it is permanently exhausted.
//
// The recorded position is the index of the current child followed by the
// position of every child, not just the current one. Recording all
// children keeps the tape structurally identical no matter how far
// iteration has progressed, which is what lets a tape recorded at one
// point reload into the same pipeline at any other.
type Concat[T any] struct {
	children []Source[T]
	name     Name
	cur      int
}

// NewConcat creates a Concat over children, consumed in argument order.
func NewConcat[T any](name Name, children ...Source[T]) *Concat[T] {
	return &Concat[T]{name: name, children: children}
}

// Next implements the Source interface.
func (c *Concat[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for c.cur < len(c.children) {
		item, ok, err := c.children[c.cur].Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return item, true, nil
		}
		c.cur++
	}
	return zero, false, nil
}

// Reset implements the Source interface. Every child is reset, not just
// the current one.
func (c *Concat[T]) Reset() error {
	for _, child := range c.children {
		if err := child.Reset(); err != nil {
			return err
		}
	}
	c.cur = 0
	return nil
}

// RecordPosition implements the Source interface.
func (c *Concat[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	t.Append(int64(c.cur))
	for _, child := range c.children {
		if err := child.RecordPosition(ctx, t, mode); err != nil {
			return positionErr(c.name, err)
		}
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (c *Concat[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	cur, err := t.ReadInt()
	if err != nil {
		return positionErr(c.name, err)
	}
	if cur < 0 || cur > int64(len(c.children)) {
		return positionErr(c.name, fmt.Errorf("%w: child index %d outside %d children", ErrPositionMismatch, cur, len(c.children)))
	}
	for _, child := range c.children {
		if err := child.ReloadPosition(ctx, t, mode); err != nil {
			return positionErr(c.name, err)
		}
	}
	c.cur = int(cur)
	return nil
}

// Infinite implements the Source interface. One infinite child makes the
// concatenation infinite.
func (c *Concat[T]) Infinite() bool {
	for _, child := range c.children {
		if child.Infinite() {
			return true
		}
	}
	return false
}

// Name returns the name of this source.
func (c *Concat[T]) Name() Name {
	return c.name
}

// Close shuts down every child.
func (c *Concat[T]) Close() error {
	var errs []error
	for _, child := range c.children {
		if err := child.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
