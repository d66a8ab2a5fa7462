// Package errors provides structured CLI error types for wdlplay.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes for CLI errors.
const (
	ExitSuccess   = 0  // Successful execution
	ExitGeneral   = 1  // General error, including problems found by a check
	ExitAuth      = 2  // Authentication error
	ExitNetwork   = 3  // Oracle or order channel unreachable
	ExitConfig    = 4  // Configuration error
	ExitTimeout   = 5  // Order canceled before it finished
	ExitExecution = 6  // Order failed
	ExitUsage     = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// NotAuthenticated returns an error indicating missing credentials.
func NotAuthenticated() *CLIError {
	return &CLIError{
		Message: "Not authenticated",
		Hint:    "Run 'wdlplay auth login' to store an oracle token",
		Code:    ExitAuth,
	}
}

// CannotPrompt returns an error when interactive prompts are unavailable.
func CannotPrompt(alternative string) *CLIError {
	return &CLIError{
		Message: "Cannot prompt in non-interactive mode",
		Hint:    fmt.Sprintf("Use %s instead", alternative),
		Code:    ExitUsage,
	}
}

// TokenEmpty returns an error when the entered token is empty.
func TokenEmpty() *CLIError {
	return &CLIError{
		Message: "Token cannot be empty",
		Hint:    "Enter a valid token or set the WDLPLAY_TOKEN environment variable",
		Code:    ExitAuth,
	}
}

// ConfigFailed returns an error for configuration load or save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your wdlplay config directory or run 'wdlplay doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// OracleUnavailable returns an error when the checking oracle cannot be reached.
func OracleUnavailable(url string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Checker unavailable at %s", url),
		Hint:    "Check server.url or run 'wdlplay doctor'",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// ChannelUnavailable returns an error when the order channel cannot be opened.
func ChannelUnavailable(url string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Order channel unavailable at %s", url),
		Hint:    "Check session.url or run 'wdlplay doctor'",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// ProblemsFound returns an error when a check reports diagnostics.
func ProblemsFound(n int) *CLIError {
	noun := "problems"
	if n == 1 {
		noun = "problem"
	}

	return &CLIError{
		Message: fmt.Sprintf("Found %d %s", n, noun),
		Hint:    "Fix the marked lines and check again",
		Code:    ExitGeneral,
	}
}

// OrderFailed returns an error for an order that ended with errors.
func OrderFailed(n int) *CLIError {
	hint := "Run with --log-level=debug for more details"
	if n > 0 {
		hint = fmt.Sprintf("The engine reported %d error(s); see the log above", n)
	}

	return &CLIError{
		Message: "Order failed",
		Hint:    hint,
		Code:    ExitExecution,
	}
}

// OrderCanceled returns an error for an order that did not finish.
func OrderCanceled() *CLIError {
	return &CLIError{
		Message: "Order canceled",
		Hint:    "The order was stopped before it finished",
		Code:    ExitTimeout,
	}
}

// SourceUnreadable returns an error when an order file cannot be read.
func SourceUnreadable(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot read %s", path),
		Hint:    "Check that the file exists and is readable",
		Cause:   cause,
		Code:    ExitUsage,
	}
}

// InvalidReplyScript returns an error for a reply script that cannot be used.
func InvalidReplyScript(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid reply script: %s", path),
		Hint:    "A reply script lists 'replies' of Done or NoStationLeft, optionally with a 'default'",
		Cause:   cause,
		Code:    ExitUsage,
	}
}
