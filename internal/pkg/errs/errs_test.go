package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewErrorFormatsReason(t *testing.T) {
	err := Validation("name is too long")
	if err.Code != ErrValidation {
		t.Fatalf("unexpected code: got %d want %d", err.Code, ErrValidation)
	}
	if err.Message != "name is too long" {
		t.Fatalf("unexpected message: %q", err.Message)
	}
	if err.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.Status)
	}
}

func TestNewErrorWithoutDetailsFillsPlaceholder(t *testing.T) {
	err := NewError(ErrForbidden)
	if err.Message != "You are not allowed to that." {
		t.Fatalf("unexpected message: %q", err.Message)
	}
}

func TestNewErrorUnknownCode(t *testing.T) {
	err := NewError(424242)
	if err.Code != ErrUnknown {
		t.Fatalf("unknown code should collapse to ErrUnknown, got %d", err.Code)
	}
}

func TestIsAndFrom(t *testing.T) {
	wrapped := fmt.Errorf("enqueue: %w", NewError(ErrDuplicateMedia))
	if !Is(wrapped, ErrDuplicateMedia) {
		t.Fatal("Is should see through wrapping")
	}
	if Is(wrapped, ErrQueueLimit) {
		t.Fatal("Is matched the wrong code")
	}

	foreign := From(errors.New("disk on fire"))
	if foreign.Code != ErrUnknown {
		t.Fatalf("foreign error should map to ErrUnknown, got %d", foreign.Code)
	}
	if From(nil) != nil {
		t.Fatal("From(nil) should be nil")
	}
}
