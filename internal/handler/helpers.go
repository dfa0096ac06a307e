package handler

import (
	"errors"
	"net/http"

	"inkwell/internal/doctree"
	"inkwell/internal/domain"
	"inkwell/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var genErr *domain.GenerationError

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, doctree.ErrMalformed):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &genErr):
		httputil.RespondError(w, genErr.StatusCode(), genErr.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseBody decodes the request body, answering 400 (or 413) on failure.
// Reports whether the handler should continue.
func parseBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
