package datapipe

import "context"

// Map transforms each item of its inner source with fn, possibly changing
// the item type. The transform may fail; a failed transform is this
// source's own error and stops the stream, distinct from exhaustion.
//
// Map holds no position of its own: its cursor is exactly the inner
// source's cursor, so record and reload are pure delegation.
//
// Example:
//
//	tokens := datapipe.NewMap("tokenize", lines,
//	    func(_ context.Context, s string) ([]string, error) {
//	        return strings.Fields(s), nil
//	    })
type Map[In, Out any] struct {
	inner Source[In]
	fn    func(context.Context, In) (Out, error)
	name  Name
}

// NewMap creates a Map over inner applying fn to every item.
func NewMap[In, Out any](name Name, inner Source[In], fn func(context.Context, In) (Out, error)) *Map[In, Out] {
	return &Map[In, Out]{name: name, inner: inner, fn: fn}
}

// Next implements the Source interface.
func (m *Map[In, Out]) Next(ctx context.Context) (Out, bool, error) {
	var zero Out
	item, ok, err := m.inner.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := m.fn(ctx, item)
	if err != nil {
		return zero, false, newError(m.name, err)
	}
	return out, true, nil
}

// Reset implements the Source interface.
func (m *Map[In, Out]) Reset() error {
	return m.inner.Reset()
}

// RecordPosition implements the Source interface.
func (m *Map[In, Out]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := m.inner.RecordPosition(ctx, t, mode); err != nil {
		return positionErr(m.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (m *Map[In, Out]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	if err := m.inner.ReloadPosition(ctx, t, mode); err != nil {
		return positionErr(m.name, err)
	}
	return nil
}

// Infinite implements the Source interface.
func (m *Map[In, Out]) Infinite() bool {
	return m.inner.Infinite()
}

// Name returns the name of this source.
func (m *Map[In, Out]) Name() Name {
	return m.name
}

// Close shuts down the inner source.
func (m *Map[In, Out]) Close() error {
	return m.inner.Close()
}
