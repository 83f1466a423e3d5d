package genclient

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a generation or quota request failed.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindNetwork         ErrorKind = "network"
	KindHTTP            ErrorKind = "http"
	KindContentFiltered ErrorKind = "content_filtered"
	KindNoImage         ErrorKind = "no_image"
	KindBadResponse     ErrorKind = "bad_response"
	KindCanceled        ErrorKind = "canceled"
)

// Error is a classified, user-readable request failure.
type Error struct {
	Kind           ErrorKind
	Status         int    // HTTP status for KindHTTP
	Message        string // what went wrong
	Action         string // suggested remedy
	TimeoutSeconds int    // configured timeout for KindTimeout
	Err            error  // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusMessages maps HTTP status codes to message and suggested action.
var statusMessages = map[int][2]string{
	401: {"API Key invalid", "Check whether API Key is correct or expired"},
	403: {"Access denied", "Check account permission and quota"},
	404: {"API endpoint not found", "Check whether API base URL is correct"},
	429: {"Too many requests", "Retry later"},
	500: {"Server internal error", "Service exception, retry later"},
	502: {"Bad gateway", "Service exception, retry later"},
	503: {"Service unavailable", "Service exception, retry later"},
}

// NewHTTPError classifies a non-2xx status.
// This is a pure function with no side effects.
func NewHTTPError(status int, cause error) *Error {
	msg, ok := statusMessages[status]
	if !ok {
		msg = [2]string{fmt.Sprintf("API error (HTTP %d)", status), "Retry later"}
	}
	return &Error{Kind: KindHTTP, Status: status, Message: msg[0], Action: msg[1], Err: cause}
}

// NewTimeoutError reports a request that exceeded its deadline.
func NewTimeoutError(timeoutSeconds int, cause error) *Error {
	return &Error{
		Kind:           KindTimeout,
		Message:        fmt.Sprintf("Request timed out (%ds)", timeoutSeconds),
		Action:         "Increase the timeout or retry later",
		TimeoutSeconds: timeoutSeconds,
		Err:            cause,
	}
}

// NewNetworkError reports a DNS or connection failure.
func NewNetworkError(cause error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Network connection failed",
		Action:  "Please check API URL and network access",
		Err:     cause,
	}
}

// NewContentFilteredError reports a response that carried only text.
func NewContentFilteredError(explanation string) *Error {
	return &Error{
		Kind:    KindContentFiltered,
		Message: "Only a text response was received, image generation may have been blocked",
		Action:  "Enable anti-truncation or adjust the sensitive area of the source image and retry",
		Err:     errors.New(explanation),
	}
}

// NewNoImageError reports a response with neither image nor text.
func NewNoImageError() *Error {
	return &Error{Kind: KindNoImage, Message: "API did not return image data"}
}

// IsKind reports whether err is a classified Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var genErr *Error
	return errors.As(err, &genErr) && genErr.Kind == kind
}

// IsContentFiltered reports whether the endpoint answered with text only.
// UIs use this to suggest toggling anti-truncation mode.
func IsContentFiltered(err error) bool {
	return IsKind(err, KindContentFiltered)
}
