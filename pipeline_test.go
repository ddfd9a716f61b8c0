package datapipe

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestPipeline_CollectFiniteStream(t *testing.T) {
	pipe, err := FromSlice("items", []string{"a", "b"}).
		Repeat("epochs", 2).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pipe.Close()

	got, err := pipe.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"a", "b", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPipeline_CollectRefusesInfinite(t *testing.T) {
	pipe, err := FromSlice("items", []string{"a"}).
		RepeatForever("forever").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pipe.Close()

	if _, err := pipe.Collect(context.Background()); err == nil {
		t.Fatal("expected collect over infinite pipeline to fail")
	}
	if _, err := pipe.Drain(context.Background()); err == nil {
		t.Fatal("expected drain over infinite pipeline to fail")
	}
}

func TestPipeline_Drain(t *testing.T) {
	pipe, err := FromSlice("items", []int{1, 2, 3}).
		Skip("skip", 1).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := pipe.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 items drained, got %d", n)
	}
}

func TestPipeline_BuilderSurfacesConstructorErrors(t *testing.T) {
	_, err := FromSlice("items", []int{1}).
		Take("take", -5).
		Repeat("epochs", 2).
		Build()
	if err == nil {
		t.Fatal("expected builder to surface the constructor error")
	}
}

func TestPipeline_BuilderMatchesHandComposition(t *testing.T) {
	built, err := FromSlice("items", []int{1, 2, 3, 4, 5, 6}).
		Skip("skip", 1).
		Take("take", 4).
		Where("evens", func(_ context.Context, n int) bool { return n%2 == 0 }).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	skip, err := NewSkip("skip", NewSlice("items", []int{1, 2, 3, 4, 5, 6}), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	take, err := NewTake[int]("take", skip, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hand := NewPipeline[int](NewWhere[int]("evens", take,
		func(_ context.Context, n int) bool { return n%2 == 0 }))

	gotBuilt, err := built.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect built: %v", err)
	}
	gotHand, err := hand.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect hand: %v", err)
	}
	if !reflect.DeepEqual(gotBuilt, gotHand) {
		t.Errorf("builder and hand composition diverged: %v vs %v", gotBuilt, gotHand)
	}
}

func TestPipeline_CheckpointRoundTrip(t *testing.T) {
	build := func() *Pipeline[string] {
		pipe, err := FromSlice("items", []string{"a", "b", "c"}).
			Repeat("epochs", 2).
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return pipe
	}

	original := build()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, _, err := original.Next(ctx); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	tape, err := original.Position(ctx, Strict)
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	restored := build()
	if err := restored.Restore(ctx, tape, Strict); err != nil {
		t.Fatalf("restore: %v", err)
	}

	gotOriginal, err := original.Collect(ctx)
	if err != nil {
		t.Fatalf("collect original: %v", err)
	}
	gotRestored, err := restored.Collect(ctx)
	if err != nil {
		t.Fatalf("collect restored: %v", err)
	}
	want := []string{"b", "c"}
	if !reflect.DeepEqual(gotOriginal, want) {
		t.Errorf("original continuation: expected %v, got %v", want, gotOriginal)
	}
	if !reflect.DeepEqual(gotRestored, want) {
		t.Errorf("restored continuation: expected %v, got %v", want, gotRestored)
	}
}

func TestPipeline_BrokenAfterSourceError(t *testing.T) {
	innerErr := errors.New("storage failure")
	src := &failingSource{items: []int{1}, err: innerErr}
	pipe := NewPipeline[int](src)
	ctx := context.Background()

	if _, _, err := pipe.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, _, err := pipe.Next(ctx); !errors.Is(err, innerErr) {
		t.Fatalf("expected source error, got %v", err)
	}

	if _, _, err := pipe.Next(ctx); !errors.Is(err, ErrBroken) {
		t.Errorf("expected ErrBroken from Next, got %v", err)
	}
	if _, err := pipe.Position(ctx, Strict); !errors.Is(err, ErrBroken) {
		t.Errorf("expected ErrBroken from Position, got %v", err)
	}
	if err := pipe.Restore(ctx, NewTape(), Strict); !errors.Is(err, ErrBroken) {
		t.Errorf("expected ErrBroken from Restore, got %v", err)
	}

	if err := pipe.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := pipe.Next(ctx); err != nil {
		t.Errorf("expected iteration to work after reset, got %v", err)
	}
}

func TestPipeline_RestoreIntoMismatchedPipelineFails(t *testing.T) {
	ctx := context.Background()
	deep, err := FromSlice("items", []int{1, 2}).
		Repeat("epochs", 2).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tape, err := deep.Position(ctx, Strict)
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	shallow := NewPipeline[int](NewSlice("items", []int{1, 2}))
	if err := shallow.Restore(ctx, tape, Strict); err == nil {
		t.Fatal("expected restore into a structurally different pipeline to fail")
	}
}

func TestPipeline_RestoreRejectsSurplusTapeEntries(t *testing.T) {
	// A Take stage writes its counter before the slice's index, so the
	// slice alone reads the counter back as a plausible index and would
	// leave the real index entry unread.
	ctx := context.Background()
	deep, err := FromSlice("items", []int{10, 20, 30, 40}).
		Take("take", 3).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := deep.Next(ctx); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	tape, err := deep.Position(ctx, Strict)
	if err != nil {
		t.Fatalf("position: %v", err)
	}

	shallow := NewPipeline[int](NewSlice("items", []int{10, 20, 30, 40}))
	if err := shallow.Restore(ctx, tape, Strict); !errors.Is(err, ErrPositionMismatch) {
		t.Fatalf("expected ErrPositionMismatch for a partially consumed tape, got %v", err)
	}
}

func TestPipeline_ForEachStopsOnCallbackError(t *testing.T) {
	pipe, err := FromSlice("items", []int{1, 2, 3}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stop := errors.New("enough")
	seen := 0
	err = pipe.ForEach(context.Background(), func(int) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if seen != 2 {
		t.Errorf("expected 2 items seen, got %d", seen)
	}

	// A callback error does not break the pipeline.
	if _, _, err := pipe.Next(context.Background()); err != nil {
		t.Errorf("expected pipeline still usable, got %v", err)
	}
}

func TestPipeline_MapAndBatchComposeWithBuilder(t *testing.T) {
	src, err := FromSlice("items", []string{"a", "bb", "ccc", "dddd"}).
		Skip("skip", 1).
		Source()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lengths := NewMap("lengths", src, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	batched, err := NewBatch[int]("batch", lengths, 2, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pipe := NewPipeline[[]int](batched)

	got, err := pipe.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := [][]int{{2, 3}, {4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
