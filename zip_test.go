package datapipe

import (
	"reflect"
	"testing"
)

func TestZip_CombinesInLockstep(t *testing.T) {
	src := NewZip("zip",
		NewSlice("left", []int{1, 2}),
		NewSlice("right", []int{10, 20}),
	)

	got := pullAll[[]int](t, src)
	want := [][]int{{1, 10}, {2, 20}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestZip_StopsAtShortestChild(t *testing.T) {
	src := NewZip[int64]("zip",
		NewCount("count", 0, 1),
		NewSlice("short", []int64{100}),
	)

	got := pullAll[[]int64](t, src)
	if len(got) != 1 {
		t.Fatalf("expected 1 zipped item, got %d", len(got))
	}
	expectExhausted[[]int64](t, src)
}

func TestZip_NoChildren(t *testing.T) {
	src := NewZip[int]("zip")
	expectExhausted[[]int](t, src)
	if src.Infinite() {
		t.Error("zip without children should not be infinite")
	}
}

func TestZip_InfiniteOnlyWhenAllChildrenAre(t *testing.T) {
	allInfinite := NewZip[int64]("zip",
		NewCount("a", 0, 1),
		NewCount("b", 0, 1),
	)
	if !allInfinite.Infinite() {
		t.Error("zip of infinite children should be infinite")
	}

	mixed := NewZip[int64]("zip",
		NewCount("a", 0, 1),
		NewSlice("finite", []int64{1}),
	)
	if mixed.Infinite() {
		t.Error("zip with a finite child should not be infinite")
	}
}

func TestZip_CheckpointRoundTrip(t *testing.T) {
	build := func() *Zip[int64] {
		return NewZip[int64]("zip",
			NewCount("count", 0, 1),
			NewSlice("letters", []int64{10, 20, 30}),
		)
	}

	original := build()
	pullN[[]int64](t, original, 2)

	restored := build()
	roundTrip[[]int64](t, original, restored, Strict)

	got := pullAll[[]int64](t, restored)
	want := [][]int64{{2, 30}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v after restore, got %v", want, got)
	}
}

func TestZip_ExhaustionSurvivesCheckpoint(t *testing.T) {
	build := func() *Zip[int] {
		return NewZip[int]("zip",
			NewSlice("left", []int{1, 2}),
			NewSlice("right", []int{10}),
		)
	}

	original := build()
	pullAll[[]int](t, original)
	expectExhausted[[]int](t, original)

	restored := build()
	roundTrip[[]int](t, original, restored, Strict)
	expectExhausted[[]int](t, restored)
}
