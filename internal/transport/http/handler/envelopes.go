package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-signup-nosql/internal/domain"
	"go.uber.org/zap"
)

// Envelope is the response wrapper for every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, msg string, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Message: msg, Data: data})
}

// writeError renders a service error. Only the client-safe message and
// reasons are sent; the wrapped cause goes to the log.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Transient("Internal server error", err)
	}
	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, Envelope{Message: de.Message, Errors: de.Reasons})
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindPrecondition:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid request body"})
		return false
	}
	return true
}
