package datapipe

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for Repeat observability.
const (
	RepeatItemsTotal  = metricz.Key("repeat.items.total")
	RepeatPassesTotal = metricz.Key("repeat.passes.total")
	RepeatResetsTotal = metricz.Key("repeat.resets.total")
)

// Span names for Repeat.
const (
	RepeatRecordSpan = tracez.Key("repeat.record_position")
	RepeatReloadSpan = tracez.Key("repeat.reload_position")
)

// Span tags for Repeat.
const (
	RepeatTagSource = tracez.Tag("repeat.source")
	RepeatTagMode   = tracez.Tag("repeat.mode")
	RepeatTagPass   = tracez.Tag("repeat.pass")
	RepeatTagError  = tracez.Tag("repeat.error")

	// Hook event keys.
	RepeatEventPassComplete = hookz.Key("repeat.pass_complete")
	RepeatEventExhausted    = hookz.Key("repeat.exhausted")
)

// RepeatEvent describes a pass boundary inside a Repeat source.
// It is emitted via hookz when a pass over the inner source completes and
// when the repeated stream exhausts for good, letting training loops track
// epoch boundaries without threading callbacks through the pipeline.
type RepeatEvent struct {
	Name       Name      // Source name
	Pass       int       // Completed passes so far, 1-based at emission
	NumRepeats int       // Configured bound; meaningful only when Bounded
	Bounded    bool      // Whether a bound was configured
	EmptyPass  bool      // Whether exhaustion was caused by an empty inner source
	Timestamp  time.Time // When the event occurred
}

// Repeat re-iterates its inner source, concatenating passes into one
// logical stream with no external reset required between passes. A bound
// limits the number of passes; without one the stream never exhausts as
// long as the inner source keeps producing.
//
// Repeat is the canonical epoch operator: wrap a dataset source in
// Repeat to feed a training loop several epochs as a single stream.
//
// Two behaviors are worth calling out:
//
//   - A permanently empty inner source (first Next already exhausted)
//     makes repetition inert. Repeat exhausts immediately instead of
//     spinning on reset-and-retry, even when unbounded.
//   - A bound of zero is a valid degenerate configuration. It exhausts
//     immediately and never pulls from the inner source at all.
//
// Position checkpointing records whether the current pass has produced an
// item and how many passes completed, then delegates to the inner source.
// The bound itself is construction state and is not recorded; reloading a
// tape whose pass count exceeds the configured bound fails hard in every
// Mode, since that indicates the tape was recorded by a differently
// configured pipeline.
//
// Example:
//
//	epochs, err := datapipe.NewRepeatCount("epochs", dataset, 3)
//	if err != nil { ... }
//	epochs.OnPassComplete(func(_ context.Context, ev datapipe.RepeatEvent) error {
//	    log.Printf("epoch %d/%d done", ev.Pass, ev.NumRepeats)
//	    return nil
//	})
type Repeat[T any] struct {
	inner      Source[T]
	name       Name
	numRepeats int
	bounded    bool

	hasData  bool
	repeatNr int

	// Observability
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[RepeatEvent]
}

// NewRepeat creates an unbounded Repeat over inner. The resulting source
// is infinite unless the inner source is permanently empty.
func NewRepeat[T any](name Name, inner Source[T]) *Repeat[T] {
	return newRepeat(name, inner, 0, false)
}

// NewRepeatCount creates a Repeat that replays inner numRepeats times.
// A negative count is a configuration error and fails here, not at the
// first Next.
func NewRepeatCount[T any](name Name, inner Source[T], numRepeats int) (*Repeat[T], error) {
	if numRepeats < 0 {
		return nil, newError(name, fmt.Errorf("repeat count must not be negative, got %d", numRepeats))
	}
	return newRepeat(name, inner, numRepeats, true), nil
}

func newRepeat[T any](name Name, inner Source[T], numRepeats int, bounded bool) *Repeat[T] {
	registry := metricz.New()
	registry.Counter(RepeatItemsTotal)
	registry.Counter(RepeatPassesTotal)
	registry.Counter(RepeatResetsTotal)

	return &Repeat[T]{
		name:       name,
		inner:      inner,
		numRepeats: numRepeats,
		bounded:    bounded,
		metrics:    registry,
		tracer:     tracez.New(),
		hooks:      hookz.New[RepeatEvent](),
	}
}

// Next implements the Source interface. When the inner source exhausts
// and another pass is available, the inner source is reset and pulled
// again within the same call; exhaustion is only surfaced once all passes
// are consumed.
func (r *Repeat[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	// Covers the zero-bound configuration and calls after final
	// exhaustion without ever touching the inner source.
	if r.bounded && r.repeatNr >= r.numRepeats {
		return zero, false, nil
	}

	for {
		item, ok, err := r.inner.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			r.hasData = true
			r.metrics.Counter(RepeatItemsTotal).Inc()
			return item, true, nil
		}

		if !r.hasData {
			// The pass produced nothing at all: the inner source is
			// permanently empty and repetition is inert.
			_ = r.hooks.Emit(ctx, RepeatEventExhausted, RepeatEvent{ //nolint:errcheck
				Name:       r.name,
				Pass:       r.repeatNr,
				NumRepeats: r.numRepeats,
				Bounded:    r.bounded,
				EmptyPass:  true,
				Timestamp:  time.Now(),
			})
			return zero, false, nil
		}

		r.repeatNr++
		r.metrics.Counter(RepeatPassesTotal).Inc()
		_ = r.hooks.Emit(ctx, RepeatEventPassComplete, RepeatEvent{ //nolint:errcheck
			Name:       r.name,
			Pass:       r.repeatNr,
			NumRepeats: r.numRepeats,
			Bounded:    r.bounded,
			Timestamp:  time.Now(),
		})

		if r.bounded && r.repeatNr >= r.numRepeats {
			_ = r.hooks.Emit(ctx, RepeatEventExhausted, RepeatEvent{ //nolint:errcheck
				Name:       r.name,
				Pass:       r.repeatNr,
				NumRepeats: r.numRepeats,
				Bounded:    r.bounded,
				Timestamp:  time.Now(),
			})
			return zero, false, nil
		}

		if err := r.inner.Reset(); err != nil {
			return zero, false, err
		}
		r.metrics.Counter(RepeatResetsTotal).Inc()
		r.hasData = false
	}
}

// Reset implements the Source interface.
func (r *Repeat[T]) Reset() error {
	if err := r.inner.Reset(); err != nil {
		return err
	}
	r.hasData = false
	r.repeatNr = 0
	return nil
}

// RecordPosition implements the Source interface. It appends the current
// pass markers and delegates to the inner source.
func (r *Repeat[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	ctx, span := r.tracer.StartSpan(ctx, RepeatRecordSpan)
	defer span.Finish()
	span.SetTag(RepeatTagSource, string(r.name))
	span.SetTag(RepeatTagMode, mode.String())
	span.SetTag(RepeatTagPass, fmt.Sprintf("%d", r.repeatNr))

	t.Append(r.hasData)
	t.Append(int64(r.repeatNr))

	if err := r.inner.RecordPosition(ctx, t, mode); err != nil {
		span.SetTag(RepeatTagError, err.Error())
		return positionErr(r.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface. It reads the markers in
// the order RecordPosition wrote them, validates them against the
// configured bound, and delegates to the inner source.
func (r *Repeat[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	ctx, span := r.tracer.StartSpan(ctx, RepeatReloadSpan)
	defer span.Finish()
	span.SetTag(RepeatTagSource, string(r.name))
	span.SetTag(RepeatTagMode, mode.String())

	hasData, err := t.ReadBool()
	if err != nil {
		span.SetTag(RepeatTagError, err.Error())
		return positionErr(r.name, err)
	}
	repeatNr, err := t.ReadInt()
	if err != nil {
		span.SetTag(RepeatTagError, err.Error())
		return positionErr(r.name, err)
	}
	// A pass count past the bound means the tape was recorded by a
	// differently configured pipeline. Hard failure in every mode.
	if repeatNr < 0 || (r.bounded && repeatNr > int64(r.numRepeats)) {
		err := fmt.Errorf("%w: pass count %d outside bound %d", ErrPositionMismatch, repeatNr, r.numRepeats)
		span.SetTag(RepeatTagError, err.Error())
		return positionErr(r.name, err)
	}

	if err := r.inner.ReloadPosition(ctx, t, mode); err != nil {
		span.SetTag(RepeatTagError, err.Error())
		return positionErr(r.name, err)
	}

	r.hasData = hasData
	r.repeatNr = int(repeatNr)
	return nil
}

// Infinite implements the Source interface. An unbounded Repeat is
// infinite; so is a bounded one over an infinite inner source, since an
// inner source that never exhausts never triggers a pass boundary and the
// bound is never reached.
func (r *Repeat[T]) Infinite() bool {
	return !r.bounded || r.inner.Infinite()
}

// Name returns the name of this source.
func (r *Repeat[T]) Name() Name {
	return r.name
}

// NumRepeats returns the configured bound and whether one was set.
func (r *Repeat[T]) NumRepeats() (int, bool) {
	return r.numRepeats, r.bounded
}

// Metrics returns the metrics registry for this source.
func (r *Repeat[T]) Metrics() *metricz.Registry {
	return r.metrics
}

// Tracer returns the tracer for this source.
func (r *Repeat[T]) Tracer() *tracez.Tracer {
	return r.tracer
}

// Close shuts down observability components and the inner source.
func (r *Repeat[T]) Close() error {
	r.tracer.Close()
	r.hooks.Close()
	return r.inner.Close()
}

// OnPassComplete registers a handler invoked after each completed pass
// over the inner source. The handler is called asynchronously.
func (r *Repeat[T]) OnPassComplete(handler func(context.Context, RepeatEvent) error) error {
	_, err := r.hooks.Hook(RepeatEventPassComplete, handler)
	return err
}

// OnExhausted registers a handler invoked when the repeated stream
// exhausts for good, either because the bound was reached or because the
// inner source turned out to be empty.
func (r *Repeat[T]) OnExhausted(handler func(context.Context, RepeatEvent) error) error {
	_, err := r.hooks.Hook(RepeatEventExhausted, handler)
	return err
}
