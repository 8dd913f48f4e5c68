package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/validation"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	response.RespondJSON(w, status, data)
}

// statusFor maps a service error to its HTTP status code.
func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, apperrors.ErrInvalidDatasetID),
		errors.Is(err, apperrors.ErrInvalidPeriod),
		errors.Is(err, apperrors.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrReconcileInProgress):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInsufficientData),
		errors.Is(err, apperrors.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrFetchFailed),
		errors.Is(err, apperrors.ErrMetadataFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with the status from statusFor.
// message describes the failed operation; the error text goes into details.
func respondServiceError(w http.ResponseWriter, message string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}
	response.RespondError(w, statusFor(err), message, err.Error())
}
