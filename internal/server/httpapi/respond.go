package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
)

const (
	msgUnauthorized   = "Unauthorized"
	msgInvalidToken   = "Invalid token"
	msgForbidden      = "Forbidden"
	msgInvalidCreds   = "Invalid credentials"
	msgEmailExists    = "Email already exists"
	msgNotFound       = "Not found"
	msgInternal       = "Internal server error"
	msgInvalidBody    = "Invalid JSON body"
	msgMethodNotAllow = "Method not allowed"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeServiceError maps flow errors to a status and a client-safe message.
// Unknown errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, msgInvalidCreds)
	case errors.Is(err, common.ErrConflict):
		writeError(w, http.StatusConflict, msgEmailExists)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, msgForbidden)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		logger.Error(r.Context(), "request failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
