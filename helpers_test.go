package datapipe

import (
	"context"
	"testing"
)

// pullN pulls up to n items, failing the test on error or early
// exhaustion.
func pullN[T any](t *testing.T, src Source[T], n int) []T {
	t.Helper()
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, ok, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error at item %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("source exhausted at item %d, wanted %d items", i, n)
		}
		out = append(out, item)
	}
	return out
}

// pullAll pulls until exhaustion, with a cap to keep a buggy infinite
// source from hanging the test.
func pullAll[T any](t *testing.T, src Source[T]) []T {
	t.Helper()
	var out []T
	for i := 0; i < 10000; i++ {
		item, ok, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error at item %d: %v", len(out), err)
		}
		if !ok {
			return out
		}
		out = append(out, item)
	}
	t.Fatalf("source did not exhaust within 10000 items")
	return nil
}

// expectExhausted asserts the next pull reports exhaustion, not an item
// or an error.
func expectExhausted[T any](t *testing.T, src Source[T]) {
	t.Helper()
	item, ok, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("expected exhaustion, got error: %v", err)
	}
	if ok {
		t.Fatalf("expected exhaustion, got item %v", item)
	}
}

// roundTrip records src's position and reloads it into dst, failing the
// test on either error.
func roundTrip[T any](t *testing.T, src, dst Source[T], mode Mode) {
	t.Helper()
	tape := NewTape()
	if err := src.RecordPosition(context.Background(), tape, mode); err != nil {
		t.Fatalf("record position: %v", err)
	}
	if err := dst.ReloadPosition(context.Background(), tape, mode); err != nil {
		t.Fatalf("reload position: %v", err)
	}
}

// failingSource yields items then fails with err. resets counts resets,
// so tests can assert how often a decorator reset it.
type failingSource struct {
	items  []int
	err    error
	idx    int
	resets int
}

func (f *failingSource) Next(_ context.Context) (int, bool, error) {
	if f.idx >= len(f.items) {
		return 0, false, f.err
	}
	item := f.items[f.idx]
	f.idx++
	return item, true, nil
}

func (f *failingSource) Reset() error {
	f.idx = 0
	f.resets++
	return nil
}

func (f *failingSource) RecordPosition(_ context.Context, t *Tape, _ Mode) error {
	t.Append(int64(f.idx))
	return nil
}

func (f *failingSource) ReloadPosition(_ context.Context, t *Tape, _ Mode) error {
	idx, err := t.ReadInt()
	if err != nil {
		return err
	}
	f.idx = int(idx)
	return nil
}

func (*failingSource) Infinite() bool { return false }

func (*failingSource) Name() Name { return "failing" }

func (*failingSource) Close() error { return nil }

// countingSource wraps Slice and counts resets and closes.
type countingSource struct {
	*Slice[string]
	resets int
	closes int
}

func newCountingSource(items []string) *countingSource {
	return &countingSource{Slice: NewSlice("counting", items)}
}

func (c *countingSource) Reset() error {
	c.resets++
	return c.Slice.Reset()
}

func (c *countingSource) Close() error {
	c.closes++
	return c.Slice.Close()
}
