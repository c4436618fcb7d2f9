package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorImplementsError(t *testing.T) {
	e := &Error{
		Kind:    ErrValidation,
		Message: "next prompt must be set",
	}
	want := "chat [validation]: next prompt must be set"
	if got := e.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	withProvider := &Error{Kind: ErrRateLimit, Provider: "bedrock", Message: "slow down"}
	want = "chat [rate_limit] bedrock: slow down"
	if got := withProvider.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying issue")
	e := &Error{
		Kind:    ErrServer,
		Message: "provider failed",
		Cause:   cause,
	}
	if !errors.Is(e, cause) {
		t.Error("Unwrap should return the cause")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrValidation, "validation"},
		{ErrAdapter, "adapter"},
		{ErrAuthentication, "authentication"},
		{ErrNotFound, "not_found"},
		{ErrInvalidRequest, "invalid_request"},
		{ErrRateLimit, "rate_limit"},
		{ErrServer, "server"},
		{ErrContextLength, "context_length"},
		{ErrContentFilter, "content_filter"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsKind(t *testing.T) {
	inner := &Error{Kind: ErrContextLength, Message: "too many tokens"}
	wrapped := fmt.Errorf("attempt 1: %w", inner)

	if !IsKind(inner, ErrContextLength) {
		t.Error("direct match failed")
	}
	if !IsKind(wrapped, ErrContextLength) {
		t.Error("wrapped match failed")
	}
	if IsKind(inner, ErrServer) {
		t.Error("kind mismatch should not match")
	}
	if IsKind(errors.New("plain"), ErrServer) {
		t.Error("plain error should not match")
	}
}
