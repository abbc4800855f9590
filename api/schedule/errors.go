package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/portlogistics/portplan/core/model"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		blocking    *model.BlockingConflictError
		invalid     *model.InvalidOperationError
		unavailable *model.SolverUnavailableError
	)
	switch {
	case errors.As(err, &blocking),
		errors.As(err, &invalid),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrDockIncompatible):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPlanNotFound),
		errors.Is(err, model.ErrVvnNotFoundInPlan),
		errors.Is(err, model.ErrVvnNotFound),
		errors.Is(err, model.ErrVesselNotFound),
		errors.Is(err, model.ErrDockNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, model.ErrVersionConflict):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {message}. Blocking conflicts carry only their
// deduplicated codes joined by ", ".
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	var blocking *model.BlockingConflictError
	if errors.As(err, &blocking) {
		msg = blocking.Error()
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		h.monitor.CaptureException(err, map[string]string{"module": "api", "path": r.URL.Path})
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Message: msg})
}
