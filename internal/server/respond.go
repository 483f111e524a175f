package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"lrusim/internal/apperr"
)

type errorBody struct {
	Error *apperr.AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error's code to an HTTP status and writes it as
// {"error":{"code":..,"message":..}}.
func writeError(w http.ResponseWriter, err error) {
	appErr := asAppError(err)
	writeJSON(w, statusFor(appErr.Code), errorBody{Error: appErr})
}

func asAppError(err error) *apperr.AppError {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.Wrap(err, apperr.CodeInternal, "internal error")
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeInvalidConfiguration, apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeLimitExceeded:
		return http.StatusTooManyRequests
	case apperr.CodeClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
