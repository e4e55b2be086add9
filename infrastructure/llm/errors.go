package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Common errors returned by the client and providers.
var (
	// ErrEmptyAPIKey indicates a required API key was not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates the provider returned an empty body.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrNoResponseChoice indicates the provider response contained no
	// usable choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorType classifies provider errors for retry decisions.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeAuthentication
	ErrorTypeRateLimit
	ErrorTypeBadRequest
	ErrorTypeServerError
	ErrorTypeNetwork
	ErrorTypeTimeout
)

// ProviderError normalizes provider-specific failures into a common shape
// so middleware can decide retryability without knowing the provider.
type ProviderError struct {
	// Type classifies the error.
	Type ErrorType
	// Provider names the backend that produced it.
	Provider string
	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap supports errors.Is / errors.As chains.
func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
// Authentication and malformed-request failures never benefit from retry.
func (e *ProviderError) Retryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// ClassifyError wraps err in a ProviderError with a best-effort type based
// on standard error values and message content.
func ClassifyError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	errType := ErrorTypeUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		errType = ErrorTypeTimeout
	case func() bool { var ne net.Error; return errors.As(err, &ne) }():
		errType = ErrorTypeNetwork
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
			errType = ErrorTypeRateLimit
		case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "401"), strings.Contains(msg, "api key"):
			errType = ErrorTypeAuthentication
		case strings.Contains(msg, "400"), strings.Contains(msg, "invalid request"):
			errType = ErrorTypeBadRequest
		case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "overloaded"):
			errType = ErrorTypeServerError
		case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
			errType = ErrorTypeNetwork
		}
	}

	return &ProviderError{Type: errType, Provider: provider, Err: err}
}
