// Package cerrors provides categorized error types for the crawler.
package cerrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for retry decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents navigation or wait timeouts.
	Timeout
	// Navigation represents page load failures.
	Navigation
	// Extraction represents link harvesting failures.
	Extraction
	// Interaction represents failed page interactions (clicks, scrolls).
	Interaction
	// Checkpoint represents persistence failures.
	Checkpoint
	// Scope represents out-of-scope URL rejections.
	Scope
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case Navigation:
		return "navigation"
	case Extraction:
		return "extraction"
	case Interaction:
		return "interaction"
	case Checkpoint:
		return "checkpoint"
	case Scope:
		return "scope"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRetryable returns whether errors of this type should be retried.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case Network, Timeout, Navigation, Unknown:
		return true
	default:
		return false
	}
}

// CrawlError represents a categorized crawl error.
type CrawlError struct {
	Type      ErrorType
	URL       string
	Operation string
	Message   string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.URL, e.Message)
}

// Unwrap returns the underlying error.
func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *CrawlError) Is(target error) bool {
	t, ok := target.(*CrawlError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new CrawlError.
func New(errType ErrorType, url, operation, message string, cause error) *CrawlError {
	return &CrawlError{
		Type:      errType,
		URL:       url,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Retryable: errType.IsRetryable(),
	}
}

// NewNavigationError creates a navigation error.
func NewNavigationError(url string, cause error) *CrawlError {
	return New(Navigation, url, "navigate", "page load failed", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(url, operation string, cause error) *CrawlError {
	return New(Timeout, url, operation, "operation timed out", cause)
}

// NewExtractionError creates an extraction error.
func NewExtractionError(url string, cause error) *CrawlError {
	err := New(Extraction, url, "extract_links", "link harvesting failed", cause)
	err.Retryable = false
	return err
}

// NewInteractionError creates an interaction error.
func NewInteractionError(url, operation string, cause error) *CrawlError {
	err := New(Interaction, url, operation, "page interaction failed", cause)
	err.Retryable = false
	return err
}

// NewCheckpointError creates a persistence error.
func NewCheckpointError(path string, cause error) *CrawlError {
	err := New(Checkpoint, path, "save", "checkpoint write failed", cause)
	err.Retryable = false
	return err
}

// NewScopeError creates a scope rejection error.
func NewScopeError(url, reason string) *CrawlError {
	err := New(Scope, url, "scope_check", reason, nil)
	err.Retryable = false
	return err
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(url, operation string) *CrawlError {
	err := New(Cancelled, url, operation, "operation cancelled", nil)
	err.Retryable = false
	return err
}

// Categorize determines the error type from a generic error.
func Categorize(err error, url string) *CrawlError {
	if err == nil {
		return nil
	}

	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(url, "visit")
	}

	if isTimeout(err) {
		return NewTimeoutError(url, "visit", err)
	}

	if isNetworkError(err) {
		return New(Network, url, "visit", "network failure", err)
	}

	return New(Unknown, url, "visit", err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "net::ERR_")
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Retryable
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Type
	}
	return Unknown
}
