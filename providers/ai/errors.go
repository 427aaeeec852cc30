package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/chaicli/chai/internal/utils"
)

// ErrorKind classifies a provider failure into one of the closed set of
// categories the session loop understands. Whatever partial-failure shape a
// vendor returns (HTTP error, malformed payload, empty completion, transport
// fault) is mapped to exactly one kind, so callers never special-case vendors.
type ErrorKind string

const (
	// ErrorKindAuth covers rejected or missing credentials (HTTP 401/403).
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRateLimit covers quota and rate-limit rejections (HTTP 429).
	ErrorKindRateLimit ErrorKind = "rate_limit"
	// ErrorKindNetwork covers transport failures and server-side errors (5xx).
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindInvalidResponse covers malformed payloads, empty completions,
	// and request rejections other than auth/rate-limit (remaining 4xx).
	ErrorKindInvalidResponse ErrorKind = "invalid_response"
	// ErrorKindTimeout covers requests that exceeded their deadline.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindCancelled covers requests aborted by the user.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// ProviderError is the normalized failure type returned by every provider
// adapter. It wraps the underlying cause so errors.Is/As still work.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string // registry name of the provider that failed
	StatusCode int    // HTTP status, when the failure came from a response
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError builds a ProviderError with an explicit kind. Adapters use
// it for failures that classification cannot infer, such as an empty completion.
func NewProviderError(provider string, kind ErrorKind, message string) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message}
}

// kindFromStatus maps an HTTP status code to an ErrorKind.
// 401/403 are credential problems, 429 is rate limiting, 5xx means the
// service itself is unreachable or failing (treated like a network fault),
// and every remaining non-2xx status is a malformed exchange.
func kindFromStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindAuth
	case status == 429:
		return ErrorKindRateLimit
	case status >= 500:
		return ErrorKindNetwork
	default:
		return ErrorKindInvalidResponse
	}
}

// Classify normalizes any error produced during a provider call into a
// *ProviderError. Context cancellation and deadline expiry take precedence,
// then HTTP status errors, then JSON decode failures; anything else is a
// transport-level network fault. A nil error returns nil, and an error that
// is already a *ProviderError is returned unchanged.
func Classify(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ErrorKindTimeout, Provider: provider, Message: "request deadline exceeded", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: ErrorKindCancelled, Provider: provider, Message: "request cancelled", Cause: err}
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return &ProviderError{
			Kind:       kindFromStatus(statusErr.StatusCode),
			Provider:   provider,
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.Message(),
			Cause:      err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &ProviderError{Kind: ErrorKindInvalidResponse, Provider: provider, Message: err.Error(), Cause: err}
	}

	// net.Error timeouts that are not context-based (e.g. transport-level
	// dial or TLS handshake deadlines).
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Kind: ErrorKindTimeout, Provider: provider, Message: err.Error(), Cause: err}
	}

	return &ProviderError{Kind: ErrorKindNetwork, Provider: provider, Message: err.Error(), Cause: err}
}
