package shared

import (
	"errors"
	"net/http"

	"github.com/vecino-erp/vecino-erp/internal/platform/httpx"
)

// RespondError maps domain errors onto RFC7807 problem responses.
// Business-rule violations (overpayment, void document, unbalanced entry,
// account mismatch) are 422: the request was well-formed but cannot be
// applied to the books.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAccountMismatch),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, ErrDocumentVoid),
		errors.Is(err, ErrDocumentClosed),
		errors.Is(err, ErrUnbalanced):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Business Rule Violation", err.Error())
	case errors.Is(err, ErrTenantScope):
		httpx.Problem(w, http.StatusForbidden, "Organization Required", err.Error())
	case errors.Is(err, ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Already Processed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
