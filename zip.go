package datapipe

import (
	"context"
	"errors"
)

// Zip pulls one item from each child per Next call and yields them as a
// slice in child order. The stream stops at the shortest child; once any
// child exhausts, Zip is exhausted and stops advancing the others.
//
// With no children Zip is permanently exhausted rather than infinite.
type Zip[T any] struct {
	children []Source[T]
	name     Name
	done     bool
}

// NewZip creates a Zip over children, combined in argument order.
func NewZip[T any](name Name, children ...Source[T]) *Zip[T] {
	return &Zip[T]{name: name, children: children}
}

// Next implements the Source interface.
func (z *Zip[T]) Next(ctx context.Context) ([]T, bool, error) {
	if z.done || len(z.children) == 0 {
		return nil, false, nil
	}
	out := make([]T, 0, len(z.children))
	for _, child := range z.children {
		item, ok, err := child.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			z.done = true
			return nil, false, nil
		}
		out = append(out, item)
	}
	return out, true, nil
}

// Reset implements the Source interface.
func (z *Zip[T]) Reset() error {
	for _, child := range z.children {
		if err := child.Reset(); err != nil {
			return err
		}
	}
	z.done = false
	return nil
}

// RecordPosition implements the Source interface. The exhaustion flag is
// part of the position: when one child ran out, the earlier children of
// that same Next call already advanced, and only the flag distinguishes
// that state from a live one.
func (z *Zip[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	t.Append(z.done)
	for _, child := range z.children {
		if err := child.RecordPosition(ctx, t, mode); err != nil {
			return positionErr(z.name, err)
		}
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (z *Zip[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	done, err := t.ReadBool()
	if err != nil {
		return positionErr(z.name, err)
	}
	for _, child := range z.children {
		if err := child.ReloadPosition(ctx, t, mode); err != nil {
			return positionErr(z.name, err)
		}
	}
	z.done = done
	return nil
}

// Infinite implements the Source interface. Zip stops at the shortest
// child, so it is infinite only when every child is.
func (z *Zip[T]) Infinite() bool {
	if len(z.children) == 0 {
		return false
	}
	for _, child := range z.children {
		if !child.Infinite() {
			return false
		}
	}
	return true
}

// Name returns the name of this source.
func (z *Zip[T]) Name() Name {
	return z.name
}

// Close shuts down every child.
func (z *Zip[T]) Close() error {
	var errs []error
	for _, child := range z.children {
		if err := child.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
