package diffserr

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := New(KindItemNotAvailable, "item not in pantry")
	if e.Error() != "[diff_item_not_available] item not in pantry" {
		t.Fatalf("unexpected message: %s", e.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(KindIOReaderReadFailure, "read failed", cause)
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestIs(t *testing.T) {
	e := New(KindSlicingInvalidState, "not ready")
	if !Is(e, KindSlicingInvalidState) {
		t.Fatal("expected Is to match")
	}
	if Is(e, KindItemNotAvailable) {
		t.Fatal("expected Is to not match a different kind")
	}
	if Is(errors.New("plain"), KindItemNotAvailable) {
		t.Fatal("expected Is to return false for a non-diffserr error")
	}
}
