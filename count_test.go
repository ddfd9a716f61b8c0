package datapipe

import (
	"reflect"
	"testing"
)

func TestCount_YieldsArithmeticSequence(t *testing.T) {
	src := NewCount("count", 10, 5)

	got := pullN[int64](t, src, 3)
	if !reflect.DeepEqual(got, []int64{10, 15, 20}) {
		t.Errorf("expected [10 15 20], got %v", got)
	}
}

func TestCount_Infinite(t *testing.T) {
	if !NewCount("count", 0, 1).Infinite() {
		t.Error("count source should be infinite")
	}
}

func TestCount_ResetRestartsAtStart(t *testing.T) {
	src := NewCount("count", 0, 1)
	pullN[int64](t, src, 100)

	if err := src.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got := pullN[int64](t, src, 2)
	if !reflect.DeepEqual(got, []int64{0, 1}) {
		t.Errorf("expected [0 1] after reset, got %v", got)
	}
}

func TestCount_CheckpointRoundTrip(t *testing.T) {
	src := NewCount("count", 0, 2)
	pullN[int64](t, src, 3) // 0, 2, 4

	restored := NewCount("count", 0, 2)
	roundTrip[int64](t, src, restored, Strict)

	got := pullN[int64](t, restored, 2)
	if !reflect.DeepEqual(got, []int64{6, 8}) {
		t.Errorf("expected [6 8] after restore, got %v", got)
	}
}
