package core

import (
	"errors"
	"fmt"
)

// UserError is an error meant to be shown to the person running the tool.
// It carries an actionable instruction next to the message.
type UserError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *UserError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for precondition and configuration errors
const (
	ErrCodePromptEmpty    = "PROMPT_EMPTY"
	ErrCodeAPIKeyEmpty    = "API_KEY_EMPTY"
	ErrCodeBaseURLEmpty   = "BASE_URL_EMPTY"
	ErrCodeInvalidBaseURL = "INVALID_BASE_URL"
	ErrCodeNoOpenDocument = "NO_OPEN_DOCUMENT"
	ErrCodeNoDocuments    = "NO_DOCUMENTS"
	ErrCodeTaskListEmpty  = "TASK_LIST_EMPTY"
	ErrCodeNoSelection    = "NO_SELECTION"
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
)

// ErrPromptEmpty returns an error for an empty prompt. The context names the caller,
// e.g. "Global partition".
func ErrPromptEmpty(context string) *UserError {
	msg := "Prompt cannot be empty"
	if context != "" {
		msg = fmt.Sprintf("%s prompt cannot be empty", context)
	}
	return &UserError{
		Code:    ErrCodePromptEmpty,
		Message: msg,
		Action:  "Enter a prompt describing the desired result",
	}
}

// ErrAPIKeyEmpty returns an error for a missing generation API key
func ErrAPIKeyEmpty() *UserError {
	return &UserError{
		Code:    ErrCodeAPIKeyEmpty,
		Message: "API Key cannot be empty",
		Action:  "Set GENFILL_API_KEY or save a key with the keys command",
	}
}

// ErrBaseURLEmpty returns an error for a missing API base URL
func ErrBaseURLEmpty() *UserError {
	return &UserError{
		Code:    ErrCodeBaseURLEmpty,
		Message: "API base URL cannot be empty",
		Action:  "Set GENFILL_API_BASE_URL in your .env file",
	}
}

// ErrInvalidBaseURL returns an error for a malformed API base URL
func ErrInvalidBaseURL(url, reason string) *UserError {
	return &UserError{
		Code:    ErrCodeInvalidBaseURL,
		Message: fmt.Sprintf("Invalid API base URL '%s': %s", url, reason),
		Action:  "Set GENFILL_API_BASE_URL to a valid URL (e.g., https://api.example.com)",
	}
}

// ErrNoOpenDocument returns an error when an operation needs an active document
func ErrNoOpenDocument() *UserError {
	return &UserError{
		Code:    ErrCodeNoOpenDocument,
		Message: "No document is currently open",
		Action:  "Open a document first",
	}
}

// ErrNoDocuments returns an error when a run needs at least one open document
func ErrNoDocuments() *UserError {
	return &UserError{
		Code:    ErrCodeNoDocuments,
		Message: "No open documents",
		Action:  "Open at least one document",
	}
}

// ErrTaskListEmpty returns an error for a batch run without tasks
func ErrTaskListEmpty() *UserError {
	return &UserError{
		Code:    ErrCodeTaskListEmpty,
		Message: "Batch task list is empty",
		Action:  "Capture at least one task before running the batch",
	}
}

// ErrNoSelection returns an error when an operation needs a live selection
func ErrNoSelection() *UserError {
	return &UserError{
		Code:    ErrCodeNoSelection,
		Message: "No selection found",
		Action:  "Please create a selection first",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *UserError {
	return &UserError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidConfig returns an error for a configuration value outside its range
func ErrInvalidConfig(varName, reason string) *UserError {
	return &UserError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("Invalid configuration %s: %s", varName, reason),
		Action:  fmt.Sprintf("Fix %s in your .env file", varName),
	}
}

// AsUserError reports whether err wraps a UserError and returns it if so.
func AsUserError(err error) (*UserError, bool) {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps a UserError with the given code.
func HasCode(err error, code string) bool {
	userErr, ok := AsUserError(err)
	return ok && userErr.Code == code
}
