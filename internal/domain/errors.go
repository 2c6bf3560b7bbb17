package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure (dial, read, write, http round trip)
type NetworkError struct {
	Op        string // Operation that failed (e.g., "connect", "subscribe", "GET /v1/getboard")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// APIError is a non-2xx HTTP response from the REST API.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d path=%s body=%s", e.Status, e.Path, e.Body)
}

// IsRetriable treats rate limiting and server side failures as transient.
func (e *APIError) IsRetriable() bool {
	return e.Status == 429 || e.Status >= 500
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a request is missing a required field or
// carries a value its kind does not accept.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Kind + " request: " + e.Field + " " + e.Reason
}

var (
	// ErrInvalidProductCode is returned when a product code is not supported. Not retriable.
	ErrInvalidProductCode = errors.New("invalid product code")

	// ErrMissingCredential is returned when a private request is executed without credentials.
	ErrMissingCredential = errors.New("private API requires credential")

	// ErrNotConnected is returned when writing to a realtime transport that has no live connection.
	ErrNotConnected = errors.New("not connected")

	// ErrMalformedPayload marks payloads that are dropped rather than applied.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
