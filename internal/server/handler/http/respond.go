package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/apperr"
	"github.com/staffdesk/staffdesk/internal/models"
)

// respond writes the {status, message, data} envelope.
func respond(w http.ResponseWriter, status int, message string, data any) {
	env := models.Envelope{Status: status, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		env.Data = raw
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// fail maps err to an envelope. Rejections carry their own status and
// message; anything else is logged and reported as a 500.
func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		status := e.Status
		if status == 0 && e.Kind == apperr.KindValidation {
			status = http.StatusBadRequest
		}
		if status != 0 {
			respond(w, status, e.Message, nil)
			return
		}
	}
	if log != nil {
		log.Error("request failed", zap.Error(err))
	}
	respond(w, http.StatusInternalServerError, "Internal server error", nil)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request")
	}
	return nil
}
