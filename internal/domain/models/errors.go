package models

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider call failed.
type FailureKind string

const (
	// FailureTransport covers network errors and non-2xx responses.
	FailureTransport FailureKind = "transport"
	// FailureData covers missing or malformed fields and provider-signaled
	// errors embedded in otherwise successful responses.
	FailureData FailureKind = "data"
	// FailureRateLimit covers provider-signaled rate limiting.
	FailureRateLimit FailureKind = "rate_limit"
)

// ProviderError is an expected per-provider failure. The fallback loop
// records it against the provider's health and moves on.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewTransportError wraps a network or status failure.
func NewTransportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureTransport, Message: "request failed", Err: err}
}

// NewDataError wraps a provider-signaled or shape failure.
func NewDataError(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureData, Message: message}
}

// NewRateLimitError wraps a provider-signaled rate limit.
func NewRateLimitError(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: FailureRateLimit, Message: message}
}

// ExhaustedError is the only failure that crosses the fetcher boundary:
// every ranked, applicable provider failed or none were applicable.
type ExhaustedError struct {
	Class   AssetType
	Request string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted for %s %s", e.Class, e.Request)
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}
