package gitlab

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrProjectNotFound = errors.New("project or commit not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnexpected      = errors.New("unexpected response")
	// ErrTransitionConflict marks GitLab's rejection of a repeated pending status.
	// The status is already in place, so callers treat it as ignorable.
	ErrTransitionConflict = errors.New("status transition rejected")
)

// transitionConflictMarker is the message GitLab returns with a 400 when the commit
// status cannot move between the requested states.
const transitionConflictMarker = "Cannot transition status via"

// StatusError carries a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: HTTP %d", e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%v: HTTP %d: %s", e.Err, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func classify(statusCode int, body string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var sentinel error
	switch {
	case statusCode == http.StatusBadRequest && strings.Contains(body, transitionConflictMarker):
		sentinel = ErrTransitionConflict
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		sentinel = ErrAuthFailed
	case statusCode == http.StatusNotFound:
		sentinel = ErrProjectNotFound
	case statusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		sentinel = ErrUnexpected
	}

	return &StatusError{StatusCode: statusCode, Body: body, Err: sentinel}
}

// IsIgnorable reports whether err is a response that needs no handling.
func IsIgnorable(err error) bool {
	return errors.Is(err, ErrTransitionConflict)
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that TOKEN (or the aliased token) is valid and has the api scope on the target project.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrProjectNotFound) {
		return &UserError{
			Message: "Project or commit not found",
			Hint:    "Check the repoId query parameter on the webhook URL and that the commit was pushed to that project.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrRateLimited) {
		return &UserError{
			Message: "Rate limited by the REST API",
			Hint:    "Raise FORWARD_RETRY_MAX to retry with backoff, or replay the delivery later.",
			Err:     err,
		}
	}

	return err
}
