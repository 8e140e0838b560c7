// Package stt issues one transcription request per audio chunk against the
// speech-to-text service and classifies failures into the taxonomy the
// driver and orchestrator act on. Providers map HTTP responses to these
// sentinels with fmt.Errorf("%s: %w", msg, sentinel); callers check with
// errors.Is.
package stt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Sentinel errors for transcription failures.
var (
	// ErrPayloadTooLarge indicates the chunk file exceeds the service's
	// request size ceiling. Structural: triggers re-planning, never a retry
	// of the same file.
	ErrPayloadTooLarge = errors.New("audio payload exceeds service size limit")

	// ErrRateLimited indicates the service rate limit was hit (temporary, retryable).
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnauthorized indicates authentication failed (invalid key, not retryable).
	ErrUnauthorized = errors.New("authentication failed")

	// ErrQuotaExceeded indicates the account quota is exhausted (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// sizeLimitIndicators are message fragments the service uses for oversized
// payloads when it does not answer with a clean 413.
var sizeLimitIndicators = []string{
	"maximum content size",
	"file too large",
	"payload too large",
	"exceeds the size limit",
}

// quotaIndicators distinguish billing exhaustion from a temporary rate limit
// on an ambiguous 429.
var quotaIndicators = []string{
	"quota",
	"billing",
	"credit",
}

// Classify maps a service error onto the sentinel taxonomy. It is a pure
// function of the error: anything it cannot place stays unclassified and is
// treated as transient by the driver.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	status, msg, ok := errorStatus(err)
	if !ok {
		if containsAny(err.Error(), sizeLimitIndicators) {
			return wrap(err.Error(), ErrPayloadTooLarge)
		}
		return err
	}

	switch status {
	case http.StatusRequestEntityTooLarge:
		return wrap(msg, ErrPayloadTooLarge)
	case http.StatusTooManyRequests:
		if containsAny(msg, quotaIndicators) {
			return wrap(msg, ErrQuotaExceeded)
		}
		return wrap(msg, ErrRateLimited)
	case http.StatusUnauthorized:
		return wrap(msg, ErrUnauthorized)
	case http.StatusPaymentRequired:
		return wrap(msg, ErrQuotaExceeded)
	}

	if containsAny(msg, sizeLimitIndicators) {
		return wrap(msg, ErrPayloadTooLarge)
	}
	if containsAny(msg, quotaIndicators) {
		return wrap(msg, ErrQuotaExceeded)
	}

	return err
}

// errorStatus extracts the HTTP status and message from the provider error types.
func errorStatus(err error) (status int, msg string, ok bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message, true
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, reqErr.Error(), true
	}

	return 0, "", false
}

// IsTransient reports whether the error should be retried with backoff.
// Rate limits and unclassified failures are transient; everything the
// taxonomy names as structural or fatal is not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPayloadTooLarge) || IsFatal(err) {
		return false
	}
	return true
}

// IsFatal reports whether the error must propagate immediately without retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrQuotaExceeded)
}

func wrap(msg string, sentinel error) error {
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}

func containsAny(s string, fragments []string) bool {
	s = strings.ToLower(s)
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
