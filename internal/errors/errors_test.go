package errors

import "testing"

func TestWrap(t *testing.T) {
	err := Wrap(New("exchange down"), "keep alive")
	if err.Error() != "keep alive, err: exchange down" {
		t.Fatalf("error mismatch: %+v", err)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "ignored"); err != nil {
		t.Fatalf("expected nil, got %+v", err)
	}
}

func TestDomain(t *testing.T) {
	err := Domain("unexpected order type: %s", "SPREAD")
	if !Is(err, ErrDomain) {
		t.Fatalf("domain error must match ErrDomain: %+v", err)
	}
	if err.Error() != "unexpected order type: SPREAD, err: domain invariant violated" {
		t.Fatalf("error mismatch: %+v", err)
	}
}
