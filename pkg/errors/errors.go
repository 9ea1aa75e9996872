package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType classifies a failure for retry purposes
type ErrorType string

const (
	// ErrorTypeTransient covers connection resets, timeouts, TLS handshake
	// failures, HTTP 429/5xx and chunked-transfer errors. Retryable.
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeFatal covers 4xx other than 429 and malformed requests. Not retryable.
	ErrorTypeFatal ErrorType = "fatal"
	// ErrorTypeDataMissing marks an expected field absent in an otherwise
	// successful response. Resolved to a placeholder, never retried.
	ErrorTypeDataMissing ErrorType = "data_missing"
	// ErrorTypeUnitExhausted marks a work unit whose retry budget is spent.
	ErrorTypeUnitExhausted ErrorType = "unit_exhausted"
	// ErrorTypeInterrupted marks an operator-requested stop.
	ErrorTypeInterrupted ErrorType = "interrupted"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a classified crawl error
type Error struct {
	Type    ErrorType
	Message string
	Code    int // HTTP status code when applicable, 0 otherwise
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Transient builds a retryable error
func Transient(code int, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeTransient, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Fatal builds a non-retryable error
func Fatal(code int, format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeFatal, Code: code, Message: fmt.Sprintf(format, args...)}
}

// DataMissing builds a degraded-field marker error
func DataMissing(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeDataMissing, Message: fmt.Sprintf(format, args...)}
}

// UnitExhausted builds a whole-unit terminal error
func UnitExhausted(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeUnitExhausted, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeTransient
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a
// retryable failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return statusCode >= 500
	}
}

// TypeOf extracts the ErrorType from err, unwrapping as needed
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeUnknown
}

// IsTransient reports whether err is classified transient
func IsTransient(err error) bool {
	return TypeOf(err) == ErrorTypeTransient
}

// IsFatal reports whether err is classified fatal
func IsFatal(err error) bool {
	return TypeOf(err) == ErrorTypeFatal
}

// IsConnectionReset reports whether the error text indicates a peer-initiated
// connection reset. Resets cluster, so callers add a cooldown beyond the
// standard backoff.
func IsConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "ECONNRESET") ||
		strings.Contains(msg, "broken pipe")
}

// ClassifyNetworkError maps a transport-level error to the taxonomy. Timeouts,
// resets, TLS and chunked-transfer failures are all transient; a request the
// transport could not even build is fatal.
func ClassifyNetworkError(err error) *Error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient(0, "request timeout: %v", err)
	}

	msg := err.Error()
	switch {
	case IsConnectionReset(err),
		strings.Contains(msg, "EOF"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "tls: handshake"),
		strings.Contains(msg, "TLS handshake"),
		strings.Contains(msg, "transfer closed"),
		strings.Contains(msg, "chunked"):
		return Transient(0, "network error: %v", err)
	case strings.Contains(msg, "unsupported protocol"),
		strings.Contains(msg, "invalid URL"),
		strings.Contains(msg, "missing URL"):
		return Fatal(0, "malformed request: %v", err)
	default:
		// Unrecognized transport failures get the retry benefit of the doubt.
		return Transient(0, "network error: %v", err)
	}
}

// ClassifyStatusCode maps an HTTP status to the taxonomy. 2xx maps to nil.
func ClassifyStatusCode(statusCode int) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case IsRetryableStatusCode(statusCode):
		return Transient(statusCode, "server returned status %d", statusCode)
	default:
		return Fatal(statusCode, "server returned status %d", statusCode)
	}
}
