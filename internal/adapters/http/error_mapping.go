package httpadapter

import (
	"net/http"

	"github.com/opendoors/invoice-agent/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUploadNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateInvoice):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
