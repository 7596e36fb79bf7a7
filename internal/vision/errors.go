package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var ErrMissingAPIKey = errors.New("vision API key not configured")

type ErrorKind string

const (
	KindRateLimit ErrorKind = "rate_limit"
	KindAuth      ErrorKind = "auth"
	KindNetwork   ErrorKind = "network"
	KindSafety    ErrorKind = "safety"
	KindUnknown   ErrorKind = "unknown"
)

// AnalysisError is a classified analyzer failure. Every kind is retryable
// on the next tick.
type AnalysisError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("vision %s error (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("vision %s error: %s", e.Kind, msg)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return KindAuth
	}
	return KindUnknown
}

func classifyTransport(err error) *AnalysisError {
	if errors.Is(err, ErrMissingAPIKey) {
		return &AnalysisError{Kind: KindAuth, Err: err}
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr),
		errors.As(err, &urlErr):
		return &AnalysisError{Kind: KindNetwork, Err: err}
	}
	return &AnalysisError{Kind: classifyMessage(err.Error()), Err: err}
}

// classifyResponse maps an HTTP status and the API's error status string
// to a kind, falling back to message matching.
func classifyResponse(status int, apiStatus, message string) ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindNetwork
	}

	switch strings.ToUpper(apiStatus) {
	case "RESOURCE_EXHAUSTED":
		return KindRateLimit
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return KindAuth
	case "UNAVAILABLE", "DEADLINE_EXCEEDED":
		return KindNetwork
	}

	return classifyMessage(message)
}

func classifyMessage(message string) ErrorKind {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "quota"), strings.Contains(m, "rate limit"), strings.Contains(m, "too many requests"):
		return KindRateLimit
	case strings.Contains(m, "api key"), strings.Contains(m, "permission"), strings.Contains(m, "unauthorized"):
		return KindAuth
	case strings.Contains(m, "safety"), strings.Contains(m, "blocked"):
		return KindSafety
	case strings.Contains(m, "network"), strings.Contains(m, "timeout"), strings.Contains(m, "connection"), strings.Contains(m, "fetch"):
		return KindNetwork
	}
	return KindUnknown
}

func isSafetyReason(reason string) bool {
	switch strings.ToUpper(reason) {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII", "IMAGE_SAFETY":
		return true
	}
	return false
}
