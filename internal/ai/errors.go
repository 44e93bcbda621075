package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// APIError is a non-2xx reply from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string // provider error type, e.g. "rate_limit_error"
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider throttled the request.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(e.Type), "rate_limit")
}

// IsRateLimit classifies err as a provider rate limit. Structured status
// codes are checked first; the message text is the last resort for
// providers that report throttling inside a 200 or a transport error.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RateLimited()
	}

	var sdkErr *anthropic.Error
	if errors.As(err, &sdkErr) {
		return sdkErr.StatusCode == http.StatusTooManyRequests
	}

	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// errorBody covers the OpenAI-style nested and Mistral-style flat error shapes.
type errorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Detail  string `json:"detail"`
}

func (b *errorBody) message() (msg, typ string) {
	if b.Error != nil {
		return b.Error.Message, b.Error.Type
	}
	if b.Message != "" {
		return b.Message, b.Type
	}
	return b.Detail, b.Type
}
