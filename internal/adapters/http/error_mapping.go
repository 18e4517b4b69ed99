package httpadapter

import (
	"net/http"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

// Temporary upstream faults surface as 500 like any other server fault.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
