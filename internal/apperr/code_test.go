package apperr

import (
	"errors"
	"testing"
)

func TestCodeErrorIsMatchesSameDomainAndCode(t *testing.T) {
	a := KV(KeyNotFound, nil)
	b := KV(KeyNotFound, errors.New("underlying"))

	if !errors.Is(a, b) {
		t.Fatal("expected same domain+code CodeErrors to match via errors.Is")
	}
}

func TestCodeErrorIsRejectsDifferentCode(t *testing.T) {
	a := KV(KeyNotFound, nil)
	b := KV(DataCorrupted, nil)

	if errors.Is(a, b) {
		t.Fatal("expected different codes not to match")
	}
}

func TestCodeErrorUnwrapExposesParent(t *testing.T) {
	parent := errors.New("disk full")
	err := Reactor(SocketIo, parent)

	if !errors.Is(err, parent) {
		t.Fatal("expected errors.Is to traverse to the parent error")
	}
}

func TestCodeErrorMessageLookup(t *testing.T) {
	err := KV(Invalid, nil)
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
