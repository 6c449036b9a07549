package tomcat

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionNotFound is returned when an alias or index is not registered.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrNoConnection is returned when no current connection is selected.
	ErrNoConnection = errors.New("no current connection")

	// ErrApplicationNotFound is returned when a context path is not deployed.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrInvalidConfig is returned by NewClient for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid client configuration")
)

// RequestError reports a failed Manager request: a transport failure,
// a non-2xx status or a command rejected with a "FAIL - " reply.
type RequestError struct {
	// Endpoint is the request path without query string.
	Endpoint string
	// StatusCode is zero when no response was received.
	StatusCode int
	// Message is the first line of the reply, if any.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("manager request failed: %s: %v", e.Endpoint, e.Err)
	case e.Message != "":
		return fmt.Sprintf("manager request failed: %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("manager request failed: %s (status %d)", e.Endpoint, e.StatusCode)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// FormatError reports a Manager reply that does not have the expected shape.
type FormatError struct {
	Endpoint string
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected response format: %s: %s", e.Endpoint, e.Reason)
}

func newFormatError(endpoint, format string, args ...any) *FormatError {
	return &FormatError{Endpoint: endpoint, Reason: fmt.Sprintf(format, args...)}
}

// IsRequestError reports whether err is, or wraps, a *RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// IsFormatError reports whether err is, or wraps, a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsConnectionNotFound reports whether err is caused by an unknown alias.
func IsConnectionNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}

// StatusCode returns the HTTP status carried by a *RequestError, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
