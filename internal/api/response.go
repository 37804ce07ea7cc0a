package api

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"fpl-cache-api/internal/appstate"
	"fpl-cache-api/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

const (
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeMalformed        = "MALFORMED_SNAPSHOT"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeInternal         = "INTERNAL_SERVER_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := RequestIDFrom(r.Context())
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Str("request_id", requestID).
		Str("error_code", code).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg(message)
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, RequestID: requestID}})
}

// writeServiceError maps service and store error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appstate.ErrNotReady):
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeNotReady,
			"snapshot indices not built; ensure the archive is populated and trigger a rebuild")
	case errors.Is(err, appstate.ErrNotFound):
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, snapshot.ErrMalformed):
		writeError(w, r, http.StatusInternalServerError, ErrCodeMalformed, err.Error())
	case errors.Is(err, snapshot.ErrStoreUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
