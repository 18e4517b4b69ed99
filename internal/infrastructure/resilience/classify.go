package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
)

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Permanent failures are not retried but still count against the breaker.
	Permanent = ErrorClassification{Retryable: false, RecordFailure: true}
	// Rejected failures are the caller's fault: no retry, no breaker penalty.
	Rejected = ErrorClassification{Retryable: false, RecordFailure: false}
)

// ClassifyCommon handles the cases every upstream shares: cancellation, an open circuit and
// network errors. ok is false when the adapter has to decide.
func ClassifyCommon(err error) (class ErrorClassification, ok bool) {
	switch {
	case err == nil:
		return ErrorClassification{}, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Rejected, true
	case IsCircuitOpen(err):
		return Transient, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient, true
	}
	return ErrorClassification{}, false
}

// ClassifyHTTPStatus maps an upstream HTTP status to a classification.
func ClassifyHTTPStatus(code int) ErrorClassification {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Transient
	default:
		return Rejected
	}
}
