package datapipe

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Shuffle yields the items of its inner source in pseudo-random order
// using a sliding window: up to window items are buffered, each Next
// returns a random buffered item and refills the slot from the inner
// source. A window of one degenerates to the inner order; a window at
// least as large as the inner source is a full shuffle.
//
// The order is fully determined by the seed, which makes runs and
// checkpoint round-trips reproducible. Each draw consumes exactly one RNG
// word, so the generator state is restored on reload by re-seeding and
// discarding the recorded number of draws.
//
// The pending buffer is the expensive part of the position. Under Strict
// the buffer contents are recorded on the tape and restored verbatim.
// Under BestEffort the buffer is skipped: reload restores the inner
// cursor, which already points past the buffered items, so up to
// window-1 items are lost at the resumption point. That is the documented
// tradeoff for sources whose items are too large to checkpoint.
type Shuffle[T any] struct {
	inner  Source[T]
	name   Name
	window int
	seed   uint64

	rng       *rand.Rand
	draws     uint64
	buf       []T
	innerDone bool
}

// NewShuffle creates a Shuffle over inner with the given window and seed.
// A window below one is a configuration error and fails here, not at the
// first Next.
func NewShuffle[T any](name Name, inner Source[T], window int, seed uint64) (*Shuffle[T], error) {
	if window < 1 {
		return nil, newError(name, fmt.Errorf("shuffle window must be at least 1, got %d", window))
	}
	return &Shuffle[T]{
		name:   name,
		inner:  inner,
		window: window,
		seed:   seed,
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}, nil
}

// Next implements the Source interface.
func (s *Shuffle[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for !s.innerDone && len(s.buf) < s.window {
		item, ok, err := s.inner.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			s.innerDone = true
			break
		}
		s.buf = append(s.buf, item)
	}
	if len(s.buf) == 0 {
		return zero, false, nil
	}

	i := s.draw(len(s.buf))
	item := s.buf[i]
	last := len(s.buf) - 1
	s.buf[i] = s.buf[last]
	s.buf[last] = zero // release the reference
	s.buf = s.buf[:last]
	return item, true, nil
}

// draw returns a pseudo-random index below n, consuming exactly one RNG
// word so the draw count alone reconstructs the generator state. The
// modulo bias is irrelevant at shuffle-window sizes.
func (s *Shuffle[T]) draw(n int) int {
	s.draws++
	return int(s.rng.Uint64() % uint64(n))
}

// Reset implements the Source interface. The RNG is re-seeded, so a reset
// source replays the identical shuffled order.
func (s *Shuffle[T]) Reset() error {
	if err := s.inner.Reset(); err != nil {
		return err
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed))
	s.draws = 0
	s.buf = nil
	s.innerDone = false
	return nil
}

// RecordPosition implements the Source interface. See the type comment
// for the Strict/BestEffort split over the pending buffer.
func (s *Shuffle[T]) RecordPosition(ctx context.Context, t *Tape, mode Mode) error {
	t.Append(s.draws)
	t.Append(s.innerDone)

	strict := mode == Strict
	t.Append(strict)
	if strict {
		t.Append(int64(len(s.buf)))
		for _, item := range s.buf {
			t.Append(item)
		}
	}

	if err := s.inner.RecordPosition(ctx, t, mode); err != nil {
		return positionErr(s.name, err)
	}
	return nil
}

// ReloadPosition implements the Source interface.
func (s *Shuffle[T]) ReloadPosition(ctx context.Context, t *Tape, mode Mode) error {
	draws, err := t.ReadUint()
	if err != nil {
		return positionErr(s.name, err)
	}
	innerDone, err := t.ReadBool()
	if err != nil {
		return positionErr(s.name, err)
	}
	recorded, err := t.ReadBool()
	if err != nil {
		return positionErr(s.name, err)
	}

	var buf []T
	if recorded {
		n, err := t.ReadInt()
		if err != nil {
			return positionErr(s.name, err)
		}
		if n < 0 || n > int64(s.window) {
			return positionErr(s.name, fmt.Errorf("%w: buffer length %d outside window %d", ErrPositionMismatch, n, s.window))
		}
		buf = make([]T, 0, n)
		for j := int64(0); j < n; j++ {
			v, err := t.ReadAny()
			if err != nil {
				return positionErr(s.name, err)
			}
			item, ok := v.(T)
			if !ok {
				return positionErr(s.name, fmt.Errorf("%w: buffer entry %d has type %T", ErrTapeType, j, v))
			}
			buf = append(buf, item)
		}
	}

	if err := s.inner.ReloadPosition(ctx, t, mode); err != nil {
		return positionErr(s.name, err)
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed))
	for j := uint64(0); j < draws; j++ {
		rng.Uint64()
	}
	s.rng = rng
	s.draws = draws
	s.innerDone = innerDone
	s.buf = buf
	return nil
}

// Infinite implements the Source interface.
func (s *Shuffle[T]) Infinite() bool {
	return s.inner.Infinite()
}

// Name returns the name of this source.
func (s *Shuffle[T]) Name() Name {
	return s.name
}

// Close shuts down the inner source.
func (s *Shuffle[T]) Close() error {
	return s.inner.Close()
}
