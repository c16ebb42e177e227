package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error chain to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with a JSON error body. Internal failures are logged
// and their details withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	status := statusFor(err)

	msg := strings.ToLower(http.StatusText(status))
	switch status {
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusInternalServerError:
		logging.LogError(r.Context(), log, "request failed", err)
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
