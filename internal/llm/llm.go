// Package llm defines the report-generation client: a single call that
// turns combined extracted text into a diagnostic report, with token and
// cost accounting.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Client abstracts the generative-model provider.
type Client interface {
	GenerateReport(ctx context.Context, combinedText string) (Report, error)
}

// Usage counts tokens reported by the provider for one generation.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

// Total returns input + output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Cost is the USD cost of one generation, split by direction.
type Cost struct {
	InputUSD  float64 `json:"input"`
	OutputUSD float64 `json:"output"`
	TotalUSD  float64 `json:"total"`
}

// Report is the transient result of the generation stage.
type Report struct {
	Text  string
	Usage Usage
	Cost  Cost
}

// Failure classification strings surfaced to records and callers.
const (
	ClassAuth        = "Authentication failed"
	ClassRateLimit   = "Rate limit exceeded"
	ClassOverloaded  = "Service overloaded"
	ClassInvalid     = "Invalid request"
	ClassUnknown     = "Unknown error"
)

// APIError is a structured provider error carrying the raw HTTP status and
// provider error code for diagnostics.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the error is worth another attempt.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	case e.Code == "overloaded_error":
		return true
	}
	return false
}

// Classify maps an error to a human-readable failure classification.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403 || apiErr.Code == "authentication_error":
			return ClassAuth
		case apiErr.StatusCode == 429 || apiErr.Code == "rate_limit_error":
			return ClassRateLimit
		case apiErr.StatusCode == 529 || apiErr.Code == "overloaded_error":
			return ClassOverloaded
		case apiErr.StatusCode == 400 || apiErr.Code == "invalid_request_error":
			return ClassInvalid
		}
		return ClassUnknown
	}
	return ClassUnknown
}

// IsRetryable reports whether a generation error is transient: provider
// rate-limit/overload responses and transient network failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}

// GenerationError is the terminal failure returned after retries are
// exhausted or a non-retryable error occurs.
type GenerationError struct {
	Classification string
	StatusCode     int
	Code           string
	Err            error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 || e.Code != "" {
		return fmt.Sprintf("%s (status=%d code=%s)", e.Classification, e.StatusCode, e.Code)
	}
	return e.Classification
}

func (e *GenerationError) Unwrap() error { return e.Err }

func newGenerationError(err error) *GenerationError {
	ge := &GenerationError{
		Classification: Classify(err),
		Err:            err,
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		ge.StatusCode = apiErr.StatusCode
		ge.Code = apiErr.Code
	}
	return ge
}
