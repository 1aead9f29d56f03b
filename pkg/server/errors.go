package server

import (
	"errors"
	"net/http"

	"mercator-hq/chronicle/pkg/history"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// statusFor maps an error to its HTTP status and error type. Caller mistakes
// are 400s; store and policy failures are 500s.
func statusFor(err error) (int, string) {
	var (
		usage     *history.UsageError
		invalid   *history.InvalidArgumentError
		ambiguous *history.AmbiguousResultError
		exec      *history.ExecutionError
		policy    *history.PolicyError
	)
	switch {
	case errors.As(err, &usage):
		return http.StatusBadRequest, "UsageError"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "InvalidArgument"
	case errors.As(err, &ambiguous):
		return http.StatusBadRequest, "AmbiguousResult"
	case errors.As(err, &exec):
		return http.StatusInternalServerError, "ExecutionError"
	case errors.As(err, &policy):
		return http.StatusInternalServerError, "PolicyError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, typ := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, r, code, typ, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, code int, typ, message string) {
	writeJSON(w, r, code, ErrorResponse{Type: typ, Message: message})
}
