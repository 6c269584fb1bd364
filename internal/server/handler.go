package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"resumepilot/internal/errors"
	"resumepilot/internal/types"
)

// taskHandler decodes a task input from the JSON body, runs the task and
// writes the generation output.
func taskHandler[In any](s *Server, run func(context.Context, In) (*types.GenerationOutput, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input In
		if err := parseJSONRequest(r, &input); err != nil {
			writeErrorResponse(w, "Invalid request", err.Error(), http.StatusBadRequest)
			return
		}

		result, err := run(r.Context(), input)
		if err != nil {
			s.writeTaskError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// writeTaskError maps a task error onto an HTTP status and error body
func (s *Server) writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	response := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   err.Error(),
		RequestID: w.Header().Get(requestIDHeader),
	}
	if appErr, ok := errors.AsAppError(err); ok {
		response.Code = appErr.Code
		response.Message = appErr.Message
		if len(appErr.Context) > 0 {
			response.Details = appErr.Context
		}
	}

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	}

	writeJSON(w, status, response)
}

// statusForError picks the HTTP status for a task error:
// bad input 400, nothing configured 503, every provider failed 502,
// deadline reached 504.
func statusForError(err error) int {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}

	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeNetwork:
		if appErr.Code == errors.ErrCodeAITimeout || appErr.Code == errors.ErrCodeNetworkTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.ErrorTypeAI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
