// Package resilience provides retry, rate-limit cooldown, and error
// classification primitives for calls against external generation services.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (e.g., 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RateLimitError marks an upstream throttling signal. It is distinct from
// TransientError because recovery requires a shared cooldown, not an
// immediate retry.
type RateLimitError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps an error as a rate-limit signal.
func NewRateLimitError(err error, statusCode int) *RateLimitError {
	return &RateLimitError{Err: err, StatusCode: statusCode}
}

// rateLimitPatterns are the documented fallback for upstreams that surface
// throttling as free text inside an otherwise ordinary error (or even inside
// an HTTP 200 body). Structured RateLimitError classification is always
// preferred; the sniffing only catches what the boundary swallowed.
var rateLimitPatterns = []string{
	"429",
	"rate_limit",
	"rate limit",
	"overloaded",
	"too many requests",
}

// IsRateLimited returns true if the error chain carries a RateLimitError,
// or if the message matches a known throttling pattern.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures). Rate-limit errors are not
// transient; they require a cooldown.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if IsRateLimited(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRateLimitHTTPStatus returns true for HTTP status codes upstream gateways
// use to signal throttling.
func IsRateLimitHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 429, // Too Many Requests
		529: // overloaded (non-standard gateway code)
		return true
	default:
		return false
	}
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry without a cooldown.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
