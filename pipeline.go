package datapipe

import (
	"context"
	"fmt"
	"time"
)

// Pipeline owns the outermost source of a composed chain and is what a
// consumer drives. It adds three things over the raw Source:
//
//   - pull helpers (ForEach, Collect, Drain),
//   - the checkpoint surface (Position, Restore) as thin pass-throughs to
//     the root's record/reload,
//   - a broken-state guard: once the root returns an error from Next, the
//     pipeline refuses further iteration and checkpointing until Reset,
//     so a checkpoint can never capture a half-failed position.
//
// A Pipeline is single-consumer, like every Source.
type Pipeline[T any] struct {
	root   Source[T]
	broken bool
}

// NewPipeline wraps root. Ownership transfers: closing the pipeline
// closes the whole source tree.
func NewPipeline[T any](root Source[T]) *Pipeline[T] {
	return &Pipeline[T]{root: root}
}

// Next pulls the next item from the root source.
func (p *Pipeline[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if p.broken {
		return zero, false, fmt.Errorf("%w: reset before iterating again", ErrBroken)
	}
	item, ok, err := p.root.Next(ctx)
	if err != nil {
		p.broken = true
		return zero, false, err
	}
	return item, ok, nil
}

// ForEach pulls items until exhaustion, calling fn for each. An error
// from fn stops iteration without breaking the pipeline; an error from
// the source breaks it.
func (p *Pipeline[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// Collect pulls every remaining item into a slice. It refuses infinite
// pipelines, which could never return.
func (p *Pipeline[T]) Collect(ctx context.Context) ([]T, error) {
	if p.root.Infinite() {
		return nil, fmt.Errorf("cannot collect from infinite pipeline %q", p.root.Name())
	}
	var out []T
	err := p.ForEach(ctx, func(item T) error {
		out = append(out, item)
		return nil
	})
	return out, err
}

// Drain pulls every remaining item, discarding them, and returns the
// count. Like Collect it refuses infinite pipelines.
func (p *Pipeline[T]) Drain(ctx context.Context) (int, error) {
	if p.root.Infinite() {
		return 0, fmt.Errorf("cannot drain infinite pipeline %q", p.root.Name())
	}
	n := 0
	err := p.ForEach(ctx, func(T) error {
		n++
		return nil
	})
	return n, err
}

// Position records the pipeline's exact resumption point onto a fresh
// tape. The tape reloads into this pipeline or a structurally identical
// one.
func (p *Pipeline[T]) Position(ctx context.Context, mode Mode) (*Tape, error) {
	if p.broken {
		return nil, fmt.Errorf("%w: cannot record position", ErrBroken)
	}
	t := NewTape()
	if err := p.root.RecordPosition(ctx, t, mode); err != nil {
		return nil, err
	}
	return t, nil
}

// Restore advances the pipeline to the position recorded on the tape
// without re-emitting the intervening items. The reload must consume the
// tape exactly: entries left over mean the tape was recorded by a deeper
// pipeline whose writes happened to read back cleanly into this one, and
// the restored cursor would be silently wrong.
func (p *Pipeline[T]) Restore(ctx context.Context, t *Tape, mode Mode) error {
	if p.broken {
		return fmt.Errorf("%w: cannot restore position", ErrBroken)
	}
	if err := p.root.ReloadPosition(ctx, t, mode); err != nil {
		return err
	}
	if t.Pos() != t.Len() {
		return fmt.Errorf("%w: %d of %d tape entries consumed", ErrPositionMismatch, t.Pos(), t.Len())
	}
	return nil
}

// Reset returns the pipeline to its freshly built state and clears the
// broken flag.
func (p *Pipeline[T]) Reset() error {
	if err := p.root.Reset(); err != nil {
		return err
	}
	p.broken = false
	return nil
}

// Infinite reports whether the root source can yield items forever.
func (p *Pipeline[T]) Infinite() bool {
	return p.root.Infinite()
}

// Name returns the root source's name.
func (p *Pipeline[T]) Name() Name {
	return p.root.Name()
}

// Close shuts down the source tree.
func (p *Pipeline[T]) Close() error {
	return p.root.Close()
}

// Builder assembles a chain of same-typed stages fluently. Constructor
// errors are deferred and surfaced by Build, so a chain reads as one
// expression:
//
//	pipe, err := datapipe.FromSlice("examples", lines).
//	    Shuffle("shuffle", 128, 42).
//	    Repeat("epochs", 3).
//	    Build()
//
// Type-changing stages (Map, Batch) do not fit a fluent method in Go's
// generics; wrap the built source with NewMap or NewBatch and continue
// with From.
type Builder[T any] struct {
	src Source[T]
	err error
}

// From starts a builder chain at an existing source.
func From[T any](src Source[T]) *Builder[T] {
	return &Builder[T]{src: src}
}

// FromSlice starts a builder chain at a slice leaf.
func FromSlice[T any](name Name, items []T) *Builder[T] {
	return &Builder[T]{src: NewSlice(name, items)}
}

// Repeat appends a bounded Repeat stage.
func (b *Builder[T]) Repeat(name Name, numRepeats int) *Builder[T] {
	if b.err != nil {
		return b
	}
	src, err := NewRepeatCount(name, b.src, numRepeats)
	return b.chain(src, err)
}

// RepeatForever appends an unbounded Repeat stage.
func (b *Builder[T]) RepeatForever(name Name) *Builder[T] {
	if b.err != nil {
		return b
	}
	b.src = NewRepeat(name, b.src)
	return b
}

// Take appends a Take stage.
func (b *Builder[T]) Take(name Name, n int) *Builder[T] {
	if b.err != nil {
		return b
	}
	src, err := NewTake(name, b.src, n)
	return b.chain(src, err)
}

// Skip appends a Skip stage.
func (b *Builder[T]) Skip(name Name, n int) *Builder[T] {
	if b.err != nil {
		return b
	}
	src, err := NewSkip(name, b.src, n)
	return b.chain(src, err)
}

// Where appends a Where stage.
func (b *Builder[T]) Where(name Name, pred func(context.Context, T) bool) *Builder[T] {
	if b.err != nil {
		return b
	}
	b.src = NewWhere(name, b.src, pred)
	return b
}

// Shuffle appends a Shuffle stage.
func (b *Builder[T]) Shuffle(name Name, window int, seed uint64) *Builder[T] {
	if b.err != nil {
		return b
	}
	src, err := NewShuffle(name, b.src, window, seed)
	return b.chain(src, err)
}

// Throttle appends a Throttle stage.
func (b *Builder[T]) Throttle(name Name, interval time.Duration) *Builder[T] {
	if b.err != nil {
		return b
	}
	src, err := NewThrottle(name, b.src, interval)
	return b.chain(src, err)
}

// Source finalizes the chain and returns the outermost source, for
// callers that want to keep composing (Map, Batch, Concat, Zip).
func (b *Builder[T]) Source() (Source[T], error) {
	return b.src, b.err
}

// Build finalizes the chain into a Pipeline.
func (b *Builder[T]) Build() (*Pipeline[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewPipeline(b.src), nil
}

func (b *Builder[T]) chain(src Source[T], err error) *Builder[T] {
	if err != nil {
		b.err = err
		return b
	}
	b.src = src
	return b
}
