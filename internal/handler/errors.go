package handler

import (
	"errors"
	"net/http"

	"dptmirror/internal/domain"
	"dptmirror/internal/httputil"
)

// respondDomainError maps domain errors to HTTP responses. Sentinels are
// checked first, then anything carrying its own status code.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotBuilt):
		httputil.RespondError(w, http.StatusServiceUnavailable, "mirror not built yet; trigger a sync first")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		var httpErr domain.HTTPError
		if errors.As(err, &httpErr) {
			httputil.RespondError(w, httpErr.StatusCode(), err.Error())
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
