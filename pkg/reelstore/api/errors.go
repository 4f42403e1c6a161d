package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/reelworks/reelstore/pkg/reelstore"
)

// ErrorResponse is the uniform error body for the API
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps library errors to HTTP status codes and renders the body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, reelstore.ErrVideoNotFound),
		errors.Is(err, reelstore.ErrSessionNotFound),
		errors.Is(err, reelstore.ErrTagNotFound):
		status = http.StatusNotFound
	case errors.Is(err, reelstore.ErrSessionFinalized):
		status = http.StatusConflict
	case errors.Is(err, reelstore.ErrInvalidQuery),
		errors.Is(err, reelstore.ErrInvalidStatus),
		errors.Is(err, reelstore.ErrInvalidVisibility),
		reelstore.IsConstraintViolation(err):
		status = http.StatusBadRequest
	case reelstore.IsTransient(err):
		status = http.StatusServiceUnavailable
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}
