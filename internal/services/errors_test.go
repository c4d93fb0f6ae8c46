package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk full")
	err := Wrap(ErrTransient, "copyverify", "copy", "attempt 3", base)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsSkippable(t *testing.T) {
	err := Wrap(ErrContention, "lease", "acquire", "held elsewhere", nil)
	if !IsSkippable(err) {
		t.Fatal("contention errors should be skippable")
	}
	if IsSkippable(Wrap(ErrSafety, "relocation", "delete", "outside root", nil)) {
		t.Fatal("safety errors must never be skippable")
	}
}
