package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", Validation(map[string]string{"title": "required"}), ErrValidation},
		{"wrapped not found", fmt.Errorf("failed to get event: %w", NotFound("event")), ErrNotFound},
		{"invalid credentials", ErrInvalidCredentials, ErrUnauthenticated},
		{"email taken", ErrEmailTaken, ErrValidation},
		{"external", Wrap(ErrExternalService, "calendar unreachable", errors.New("dial tcp")), ErrExternalService},
		{"plain", errors.New("boom"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesIdentity(t *testing.T) {
	err := fmt.Errorf("login: %w", ErrInvalidCredentials)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("expected wrapped error to match ErrInvalidCredentials")
	}
	if errors.Is(err, ErrEmailTaken) {
		t.Fatal("did not expect ErrInvalidCredentials to match ErrEmailTaken")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrExternalService, "calendar unreachable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
	if err.Message != "calendar unreachable" {
		t.Errorf("Message = %q", err.Message)
	}
}
