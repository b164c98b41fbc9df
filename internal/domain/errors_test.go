package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"not found", &NotFoundError{Message: "x"}, ErrNotFound, http.StatusNotFound},
		{"validation", &ValidationError{Message: "x"}, ErrValidation, http.StatusBadRequest},
		{"unauthorized", &UnauthorizedError{Message: "x"}, ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", &ForbiddenError{Message: "x"}, ErrForbidden, http.StatusForbidden},
		{"conflict", &ConflictError{Message: "x"}, ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}

			var httpErr HTTPError
			if !errors.As(wrapped, &httpErr) {
				t.Fatalf("expected HTTPError")
			}
			if httpErr.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", httpErr.StatusCode(), tt.status)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("overloaded")
	err := fmt.Errorf("step 2: %w", &ProviderError{Provider: "anthropic", Err: cause})

	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure match")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to unwrap")
	}
	if got := (&ProviderError{Err: cause}).Error(); got != "overloaded" {
		t.Errorf("Error() without provider = %q", got)
	}
	if got := (&ProviderError{Provider: "openai", Err: cause}).Error(); got != "openai: overloaded" {
		t.Errorf("Error() = %q", got)
	}
}
