package datapipe

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestError_MessageIncludesPath(t *testing.T) {
	err := &Error{
		Path: []Name{"pipeline", "repeat", "slice"},
		Err:  errors.New("boom"),
	}

	msg := err.Error()
	if !strings.Contains(msg, "pipeline -> repeat -> slice") {
		t.Errorf("expected path in message, got %q", msg)
	}
	if !strings.Contains(msg, "boom") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := newError("stage", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause through Unwrap")
	}
}

func TestError_ContextFlags(t *testing.T) {
	timeout := newError("stage", context.DeadlineExceeded)
	if !timeout.Timeout || !timeout.IsTimeout() {
		t.Error("expected deadline error to set Timeout")
	}

	canceled := newError("stage", context.Canceled)
	if !canceled.Canceled || !canceled.IsCanceled() {
		t.Error("expected canceled error to set Canceled")
	}
}

func TestPositionErr_PrependsPath(t *testing.T) {
	inner := newError("leaf", errors.New("bad tape"))
	outer := positionErr("decorator", inner)

	var pipeErr *Error
	if !errors.As(outer, &pipeErr) {
		t.Fatalf("expected *Error, got %T", outer)
	}
	if len(pipeErr.Path) != 2 || pipeErr.Path[0] != "decorator" || pipeErr.Path[1] != "leaf" {
		t.Errorf("expected path [decorator leaf], got %v", pipeErr.Path)
	}
}

func TestPositionErr_WrapsPlainErrors(t *testing.T) {
	cause := errors.New("plain")
	outer := positionErr("stage", cause)

	var pipeErr *Error
	if !errors.As(outer, &pipeErr) {
		t.Fatalf("expected *Error, got %T", outer)
	}
	if !errors.Is(outer, cause) {
		t.Error("expected cause reachable through wrapping")
	}
}
