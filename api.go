// Package datapipe provides lazily-evaluated, checkpointable data-source
// pipelines for feeding examples to a consumer, typically a training loop.
//
// # Overview
//
// A pipeline is a tree of sources. Leaves (Slice, Count, or the
// backing-store leaves in the sources package) produce items; decorators
// (Repeat, Take, Skip, Map, Where, Batch, Shuffle, Concat, Zip, Throttle)
// wrap exactly one or more inner sources and transform their iteration
// behavior. A consumer pulls from the outermost source one item at a time;
// no work happens until something is pulled.
//
// The distinguishing capability is exact position checkpointing: any source
// can serialize its resumption point onto a Tape and later restore it, so
// that an interrupted consumer resumes without skipping or repeating items.
//
// # Core Concepts
//
// Every pipeline stage implements a single, uniform interface:
//
//	type Source[T any] interface {
//	    Next(ctx context.Context) (T, bool, error)
//	    Reset() error
//	    RecordPosition(ctx context.Context, t *Tape, mode Mode) error
//	    ReloadPosition(ctx context.Context, t *Tape, mode Mode) error
//	    Infinite() bool
//	    Name() Name
//	    Close() error
//	}
//
// Next returns (item, true, nil) while items remain, (zero, false, nil) when
// the current pass is exhausted, and (zero, false, err) on failure.
// Exhaustion and failure are distinct: decorators interpret exhaustion
// (Repeat restarts a pass, Concat moves to the next child) but pass errors
// through untouched.
//
// Checkpointing flows top-down. RecordPosition appends this stage's state
// markers to the tape and then delegates to the inner source; ReloadPosition
// reads them back in the identical order. The tape is an ordered log, not a
// keyed map, which is why record and reload sequences over structurally
// identical pipelines must match in count and type.
//
// # Quick Start
//
//	src := datapipe.NewSlice("examples", []string{"a", "b"})
//	rep, _ := datapipe.NewRepeatCount("epochs", src, 2)
//	pipe := datapipe.NewPipeline(rep)
//
//	items, _ := pipe.Collect(context.Background())
//	// items: ["a", "b", "a", "b"]
//
// Checkpoint and resume:
//
//	tape, _ := pipe.Position(ctx, datapipe.Strict)
//	// ... later, over a structurally identical pipeline:
//	_ = fresh.Restore(ctx, tape, datapipe.Strict)
//
// The Builder offers a fluent way to assemble same-typed stages:
//
//	pipe, err := datapipe.FromSlice("examples", lines).
//	    Shuffle("shuffle", 128, 42).
//	    RepeatForever("epochs").
//	    Build()
//
// # Infinite Sources
//
// Infinite reports whether a source can yield items forever. An unbounded
// Repeat is infinite; so is any decorator over an infinite inner source.
// Collect and Drain refuse infinite pipelines rather than looping forever.
//
// # Concurrency
//
// A Source instance carries exactly one logical cursor and is not safe for
// concurrent Next calls. Drive each pipeline from a single goroutine, or
// arbitrate externally.
package datapipe

import "context"

// Name identifies a pipeline stage in error paths, metrics, and events.
// Using this type encourages storing names as constants rather than
// inline strings throughout your code.
type Name = string

// Mode controls how position serialization treats state that cannot be
// captured exactly.
type Mode int

const (
	// Strict requires the full resumption state to be serialized;
	// anything unrecoverable is a hard failure.
	Strict Mode = iota
	// BestEffort skips state that is expensive or impossible to capture,
	// accepting an approximate resumption point. Malformed tape content
	// is still a hard failure.
	BestEffort
)

// String returns the mode's name for span tags and error messages.
func (m Mode) String() string {
	if m == BestEffort {
		return "best-effort"
	}
	return "strict"
}

// Source is the contract every pipeline stage implements, leaf and
// decorator alike. See the package documentation for the full semantics.
type Source[T any] interface {
	// Next returns the next item. The second result is false when the
	// stream is exhausted for the current pass; calling Next again after
	// exhaustion returns exhausted again, except for operators that
	// explicitly restart (Repeat). Errors are distinct from exhaustion.
	Next(ctx context.Context) (T, bool, error)

	// Reset returns the source to the state it had immediately after
	// construction, discarding buffered progress. Propagates to owned
	// inner sources.
	Reset() error

	// RecordPosition appends enough state to the tape to reconstruct the
	// exact resumption point, then delegates to any inner sources.
	RecordPosition(ctx context.Context, t *Tape, mode Mode) error

	// ReloadPosition reads state written by RecordPosition in the same
	// order and advances the cursor to match without re-emitting the
	// intervening items.
	ReloadPosition(ctx context.Context, t *Tape, mode Mode) error

	// Infinite reports whether this source, absent external interruption,
	// can yield items forever. Pure query, no side effects.
	Infinite() bool

	// Name returns the stage name for debugging and error reporting.
	Name() Name

	// Close releases resources, recursively through owned inner sources.
	Close() error
}
