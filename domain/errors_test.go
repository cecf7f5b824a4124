package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIsMatchesOnCode(t *testing.T) {
	err := New(CodeAlreadyHeld, "booking %s is held", "b1")
	wrapped := fmt.Errorf("claim: %w", err)

	if !errors.Is(wrapped, ErrAlreadyHeld) {
		t.Fatalf("expected wrapped error to match ErrAlreadyHeld")
	}
	if errors.Is(wrapped, ErrInsufficientFunds) {
		t.Fatalf("did not expect match against ErrInsufficientFunds")
	}
	if CodeOf(wrapped) != CodeAlreadyHeld {
		t.Fatalf("CodeOf = %q", CodeOf(wrapped))
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable(cause, "insert transaction")

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if !IsCode(err, CodeUnavailable) {
		t.Fatalf("expected Unavailable code, got %q", CodeOf(err))
	}
	if CodeOf(cause) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestErrorMessageFormats(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeNotFound}, "NotFound"},
		{New(CodeNotFound, "booking x not found"), "NotFound: booking x not found"},
		{&Error{Code: CodeConflict, Err: errors.New("dup")}, "Conflict: dup"},
		{Wrap(CodeConflict, errors.New("dup"), "negotiation"), "Conflict: negotiation: dup"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error() = %q, want %q", got, tc.want)
		}
	}
}
