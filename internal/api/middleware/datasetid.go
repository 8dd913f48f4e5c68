// Package middleware provides HTTP middleware for request validation and processing.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/validation"
)

// ValidateDatasetIDMiddleware validates that the datasetId URL parameter is present and well formed.
// Returns 400 Bad Request if the dataset ID is missing or invalid. Whether the id is
// known to the registry is left to the handler.
//
// Example usage in router:
//
//	r.Route("/{datasetId}", func(r chi.Router) {
//	    r.Use(middleware.ValidateDatasetIDMiddleware)
//	    r.Get("/", handler.Dataset)
//	})
func ValidateDatasetIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "datasetId")

		if id == "" {
			response.RespondError(w, http.StatusBadRequest, "dataset ID is required", "")
			return
		}

		if err := validation.ValidateDatasetID(id); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid dataset ID", err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
