package datapipe

import (
	"context"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for Where observability.
const (
	WhereEvaluatedTotal = metricz.Key("where.evaluated.total")
	WherePassedTotal    = metricz.Key("where.passed.total")
	WhereDroppedTotal   = metricz.Key("where.dropped.total")
)

// Span names and tags for Where.
const (
	WhereRecordSpan = tracez.Key("where.record_position")
	WhereReloadSpan = tracez.Key("where.reload_position")

	WhereTagSource = tracez.Tag("where.source")
	WhereTagMode   = tracez.Tag("where.mode")
	WhereTagError  = tracez.Tag("where.error")

	// Hook event keys.
	WhereEventDropped = hookz.Key("where.dropped")
)

// WhereEvent describes an item dropped by a Where source.
type WhereEvent struct {
	Name      Name      // Source name
	Dropped   uint64    // Items dropped so far
	Timestamp time.Time // When the event occurred
}

// Where yields only the items of its inner source for which the predicate
// returns true. Dropped items are consumed from the inner source and
// discarded, so the inner cursor keeps advancing; this is what makes
// record and reload pure delegation, the same as Map.
//
// Over an infinite inner source whose items all fail the predicate, Next
// would spin forever; it checks the context between pulls so a deadline
// or cancellation can break the loop.
type Where[T any] struct {
	inner   Source[T]
	pred    func(context.Context, T) bool
	name    Name
	dropped uint64

	// Observability
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[WhereEvent]
}

// NewWhere creates a Where over inner with the given predicate.
func NewWhere[T any](name Name, inner Source[T], pred func(context.Context, T) bool) *Where[T] {
	registry := metricz.New()
	registry.Counter(WhereEvaluatedTotal)
	registry.Counter(WherePassedTotal)
	registry.Counter(WhereDroppedTotal)

	return &Where[T]{
		name:    name,
		inner:   inner,
		pred:    pred,
		metrics: registry,
		tracer:  tracez.New(),
		hooks:   hookz.New[WhereEvent](),
	}
}

// Next implements the Source interface.
func (w *Where[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		item, ok, err := w.inner.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		w.metrics.Counter(WhereEvaluatedTotal).Inc()
		if w.pred(ctx, item) {
			w.metrics.Counter(WherePassedTotal).Inc()
			return item, true, nil
		}
		w.dropped++
		w.metrics.Counter(WhereDroppedTotal).Inc()
		_ = w.hooks.Emit(ctx, WhereEventDropped, WhereEvent{ //nolint:errcheck
			Name:      w.name,
			Dropped:   w.dropped,
			Timestamp: time.Now(),
		})
	}
}

// Reset implements the Source interface.
func (w *Where[T]) Reset() error {
	if err := w.inner.Reset(); err != nil {
		return err
	}
	w.dropped = 0
	return nil
}

// RecordPosition implements the Source interface. Where has no position
// of its own; the drop counter is a statistic, not a cursor.
func (w *Where[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	ctx, span := w.tracer.StartSpan(ctx, WhereRecordSpan)
	defer span.Finish()
	span.SetTag(WhereTagSource, string(w.name))
	span.SetTag(WhereTagMode, mode.String())

	if err := w.inner.RecordPosition(ctx, t, mode); err != nil {
		span.SetTag(WhereTagError, err.Error())
		return positionErr(w.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface. The drop counter
// restarts at zero, the same as after Reset; drops from before the
// checkpoint belong to the recording run.
func (w *Where[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	ctx, span := w.tracer.StartSpan(ctx, WhereReloadSpan)
	defer span.Finish()
	span.SetTag(WhereTagSource, string(w.name))
	span.SetTag(WhereTagMode, mode.String())

	if err := w.inner.ReloadPosition(ctx, t, mode); err != nil {
		span.SetTag(WhereTagError, err.Error())
		return positionErr(w.name, err)
	}
	w.dropped = 0
	return nil
}

// Infinite implements the Source interface. A predicate cannot make an
// infinite source finite in any way Infinite could promise, so the inner
// report stands.
func (w *Where[T]) Infinite() bool {
	return w.inner.Infinite()
}

// Name returns the name of this source.
func (w *Where[T]) Name() Name {
	return w.name
}

// Metrics returns the metrics registry for this source.
func (w *Where[T]) Metrics() *metricz.Registry {
	return w.metrics
}

// Tracer returns the tracer for this source.
func (w *Where[T]) Tracer() *tracez.Tracer {
	return w.tracer
}

// Close shuts down observability components and the inner source.
func (w *Where[T]) Close() error {
	w.tracer.Close()
	w.hooks.Close()
	return w.inner.Close()
}

// OnDropped registers a handler invoked each time an item is dropped.
// The handler is called asynchronously.
func (w *Where[T]) OnDropped(handler func(context.Context, WhereEvent) error) error {
	_, err := w.hooks.Hook(WhereEventDropped, handler)
	return err
}
