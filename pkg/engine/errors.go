package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/drover/pkg/browser"
)

// ErrorClass splits execution failures into those worth retrying and those
// that cannot possibly succeed on a second attempt.
type ErrorClass string

const (
	// Recoverable failures consume an attempt and feed the next prompt.
	Recoverable ErrorClass = "RECOVERABLE"

	// Fatal failures end the action immediately, retry budget unspent.
	Fatal ErrorClass = "FATAL"
)

// ExecutionError is a snippet failure: either the scope rejected the snippet
// before running anything, or an operation failed mid-run. Its Error text is
// what the next attempt's prompt sees, so it names the offending call.
type ExecutionError struct {
	Class   ErrorClass
	Op      string // failed operation; empty when the snippet was rejected
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Op == "" && e.Cause == nil:
		return fmt.Sprintf("snippet rejected: %s", e.Message)
	case e.Cause == nil:
		return fmt.Sprintf("env.%s failed: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("env.%s failed (%s): %v", e.Op, e.Message, e.Cause)
	}
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// ScreenshotError is a failed error-screenshot capture. It is logged and
// never masks the action failure that triggered the capture.
type ScreenshotError struct {
	Path  string
	Cause error
}

func (e *ScreenshotError) Error() string {
	return fmt.Sprintf("failed to capture error screenshot %s: %v", e.Path, e.Cause)
}

func (e *ScreenshotError) Unwrap() error {
	return e.Cause
}

// fatalMessages are substrings of driver errors that mean the session is
// gone. Matching is case-insensitive.
var fatalMessages = []string{
	"target closed",
	"has been closed",
	"connection closed",
	"browser process exited",
}

// Classify decides whether a failure is worth another attempt. Session-gone
// and cancellation errors are Fatal; everything else (timeouts, missing
// elements, rejected snippets) is Recoverable.
func Classify(err error) ErrorClass {
	if errors.Is(err, browser.ErrSessionClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMessages {
		if strings.Contains(msg, marker) {
			return Fatal
		}
	}
	return Recoverable
}

// IsFatal reports whether err ends its action immediately.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Class == Fatal
	}
	return Classify(err) == Fatal
}
