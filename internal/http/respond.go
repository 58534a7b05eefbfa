package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/analytics"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/trace"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// errBadRequest marks malformed input detected by the handlers themselves.
var errBadRequest = errors.New("bad request")

var clientErrors = []error{
	errBadRequest,
	core.ErrInvalidPeriod,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidType,
	core.ErrInvalidColor,
	core.ErrEmptyName,
	core.ErrInvalidUserID,
	core.ErrInvalidEmail,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateCategory), errors.Is(err, core.ErrCategoryTypeImmutable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs server-side failures and hides their detail from the
// client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: trace.GetRequestID(r.Context())}
	if status == http.StatusInternalServerError {
		errorType := log.ErrorTypeInternal
		var dae *analytics.DataAccessError
		if errors.As(err, &dae) {
			errorType = log.ErrorTypeDatabase
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, r.Method+" "+r.URL.Path, log.NewFields().WithErrorType(errorType))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
