package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	t.Run("ValidationError unwraps to ErrValidation", func(t *testing.T) {
		err := fmt.Errorf("add card: %w", NewValidationError("cardNumber", "Card number must be 16 digits"))
		if !errors.Is(err, ErrValidation) {
			t.Error("expected errors.Is(err, ErrValidation)")
		}
	})

	t.Run("RemoteError unwraps to ErrRemoteRejected", func(t *testing.T) {
		err := fmt.Errorf("place order: %w", &RemoteError{Status: 400, Message: "Invalid CVV"})
		if !errors.Is(err, ErrRemoteRejected) {
			t.Error("expected errors.Is(err, ErrRemoteRejected)")
		}
	})
}

func TestUserMessage(t *testing.T) {
	tt := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "fallback"},
		{name: "validation", err: NewValidationError("cvv", "CVV should be 3 digits"), want: "CVV should be 3 digits"},
		{name: "remote with message", err: &RemoteError{Status: 409, Message: "Already in cart"}, want: "Already in cart"},
		{name: "remote without message", err: &RemoteError{Status: 500}, want: "fallback"},
		{name: "remote blank message", err: &RemoteError{Status: 500, Message: "   "}, want: "fallback"},
		{name: "network failure", err: fmt.Errorf("%w: dial tcp", ErrNetworkFailure), want: "fallback"},
		{name: "not authenticated", err: fmt.Errorf("cart: %w", ErrNotAuthenticated), want: "not authenticated"},
		{name: "already owned", err: ErrAlreadyOwned, want: ErrAlreadyOwned.Error()},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err, "fallback"); got != tc.want {
				t.Errorf("UserMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}
