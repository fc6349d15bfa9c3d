package gitlab

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
		wantHint    string
	}{
		{
			name:        "auth failed",
			err:         &StatusError{StatusCode: 401, Err: ErrAuthFailed},
			wantMessage: "Authentication failed",
			wantHint:    "TOKEN",
		},
		{
			name:        "project not found",
			err:         fmt.Errorf("forward: %w", &StatusError{StatusCode: 404, Err: ErrProjectNotFound}),
			wantMessage: "Project or commit not found",
			wantHint:    "repoId",
		},
		{
			name:        "rate limited",
			err:         ErrRateLimited,
			wantMessage: "Rate limited by the REST API",
			wantHint:    "FORWARD_RETRY_MAX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)

			userErr, ok := wrapped.(*UserError)
			if !ok {
				t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
			}
			if userErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", userErr.Message, tt.wantMessage)
			}
			if !strings.Contains(userErr.Hint, tt.wantHint) {
				t.Errorf("Hint should contain %q, got %q", tt.wantHint, userErr.Hint)
			}
			if !errors.Is(wrapped, tt.err) && !errors.Is(wrapped, errors.Unwrap(tt.err)) {
				t.Errorf("wrapped error lost its cause: %v", wrapped)
			}
		})
	}
}

func TestWrapError_PassThrough(t *testing.T) {
	if WrapError(nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}

	plain := errors.New("something went wrong")
	if got := WrapError(plain); got != plain {
		t.Errorf("WrapError() = %v, want original error", got)
	}
}

func TestUserError_Error(t *testing.T) {
	err := &UserError{Message: "Something went wrong", Hint: "Try this", Err: errors.New("original")}
	got := err.Error()

	msgIdx := strings.Index(got, "Something went wrong")
	hintIdx := strings.Index(got, "Hint: Try this")
	detailsIdx := strings.Index(got, "Details: original")

	if msgIdx != 0 {
		t.Errorf("Message should be at start, found at index %d", msgIdx)
	}
	if hintIdx <= msgIdx {
		t.Errorf("Hint should come after Message, got hint at %d", hintIdx)
	}
	if detailsIdx <= hintIdx {
		t.Errorf("Details should come after Hint, got details at %d", detailsIdx)
	}
}

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{StatusCode: 500, Body: "boom", Err: ErrUnexpected}
	if err.Error() != "unexpected response: HTTP 500: boom" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &StatusError{StatusCode: 429, Err: ErrRateLimited}
	if err.Error() != "rate limited: HTTP 429" {
		t.Errorf("Error() = %q", err.Error())
	}
}
