package ollama

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, body)
}

// missingModel reports a 404 for a model that was never pulled into the server.
func (e *HTTPStatusError) missingModel() bool {
	return e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Body), "model")
}

// promptTooLong reports a prompt the model's context window rejects.
func (e *HTTPStatusError) promptTooLong() bool {
	body := strings.ToLower(e.Body)
	return (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusRequestEntityTooLarge) &&
		(strings.Contains(body, "context length") || strings.Contains(body, "too long"))
}

// classifyOllamaError retries overload and transport faults. A missing model trips the breaker
// without retries; an oversized prompt is the caller's problem.
func classifyOllamaError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return resilience.Permanent
	}
	switch {
	case statusErr.missingModel():
		return resilience.Permanent
	case statusErr.promptTooLong():
		return resilience.Rejected
	default:
		return resilience.ClassifyHTTPStatus(statusErr.StatusCode)
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOllamaError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
