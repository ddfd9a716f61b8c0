package datapipe

import (
	"context"
	"fmt"
)

// Batch groups consecutive items of its inner source into slices of a
// fixed size. When the inner source exhausts mid-batch, the partial batch
// is yielded unless dropRemainder was set, in which case it is discarded.
//
// Batch buffers nothing between Next calls: a batch is assembled entirely
// within one call, so the position is exactly the inner source's position
// and record/reload is pure delegation. A checkpoint taken between two
// Next calls therefore resumes on a batch boundary.
type Batch[T any] struct {
	inner         Source[T]
	name          Name
	size          int
	dropRemainder bool
}

// NewBatch creates a Batch over inner. A size below one is a
// configuration error and fails here, not at the first Next.
func NewBatch[T any](name Name, inner Source[T], size int, dropRemainder bool) (*Batch[T], error) {
	if size < 1 {
		return nil, newError(name, fmt.Errorf("batch size must be at least 1, got %d", size))
	}
	return &Batch[T]{name: name, inner: inner, size: size, dropRemainder: dropRemainder}, nil
}

// Next implements the Source interface.
func (b *Batch[T]) Next(ctx context.Context) ([]T, bool, error) {
	batch := make([]T, 0, b.size)
	for len(batch) < b.size {
		item, ok, err := b.inner.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		batch = append(batch, item)
	}
	if len(batch) == 0 {
		return nil, false, nil
	}
	if len(batch) < b.size && b.dropRemainder {
		return nil, false, nil
	}
	return batch, true, nil
}

// Reset implements the Source interface.
func (b *Batch[T]) Reset() error {
	return b.inner.Reset()
}

// RecordPosition implements the Source interface.
func (b *Batch[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := b.inner.RecordPosition(ctx, t, mode); err != nil {
		return positionErr(b.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (b *Batch[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := b.inner.ReloadPosition(ctx, t, mode); err != nil {
		return positionErr(b.name, err)
	}
	return nil
}

// Infinite implements the Source interface.
func (b *Batch[T]) Infinite() bool {
	return b.inner.Infinite()
}

// Name returns the name of this source.
func (b *Batch[T]) Name() Name {
	return b.name
}

// Close shuts down the inner source.
func (b *Batch[T]) Close() error {
	return b.inner.Close()
}
