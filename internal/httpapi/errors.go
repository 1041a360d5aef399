package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/firmledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeServiceErr maps service errors to status codes. Unknown errors are
// logged and reported as 500 without their details.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		unprocessable(w, errs.Message(err), "validation_error")
	case errors.Is(err, errs.ErrReference):
		unprocessable(w, errs.Message(err), "reference_error")
	case errors.Is(err, errs.ErrConcurrencyConflict):
		writeErr(w, http.StatusConflict, "account was modified concurrently, retry the request", "concurrency_conflict")
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrDuplicate):
		writeErr(w, http.StatusConflict, err.Error(), "duplicate")
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}
