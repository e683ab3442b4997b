// Package errs defines the coded error type shared by the connection, model
// and assistant layers.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Code uint

const (
	NotConfigured           Code = 100
	NotConnected            Code = 200
	ConnectionFailed        Code = 201
	ToolInvocationFailed    Code = 300
	CapabilityListingFailed Code = 301
	GenerationFailed        Code = 400
	InvalidRequest          Code = 500
)

// Error carries a stable code alongside the human readable message and the
// underlying cause.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Timestamp time.Time
}

var (
	ErrNotConfigured = &Error{Code: NotConfigured, Message: "model API key not configured"}
	ErrNotConnected  = &Error{Code: NotConnected, Message: "MCP server is not connected"}
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s : %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target carries the same code, so wrapped errors still
// match the package sentinels.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     err,
		Timestamp: time.Now(),
	}
}

func New(code Code, message string) *Error {
	return Wrap(nil, code, message)
}

// CodeOf extracts the code of the first *Error in the chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// HTTPStatus maps an error to the status code used by the HTTP surface.
func HTTPStatus(err error) int {
	code, ok := CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case NotConnected, InvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the innermost human readable message, without code
// prefixes, suitable for end users.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + Message(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
