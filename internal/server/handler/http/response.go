package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/atinyakov/bcards/internal/apperr"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindAuthentication: http.StatusUnauthorized,
	apperr.KindAuthorization:  http.StatusForbidden,
	apperr.KindNotFound:       http.StatusNotFound,
	apperr.KindConflict:       http.StatusConflict,
	apperr.KindInternal:       http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByKind[apperr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeOK writes {"success": true, key: value}.
func writeOK(w http.ResponseWriter, status int, key string, value any) {
	writeJSON(w, status, map[string]any{"success": true, key: value})
}

// writeError writes the failure envelope. Validation failures carry the list
// of messages; internal failures hide their cause from the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	var message any = err.Error()

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		if len(appErr.Details) > 0 {
			message = appErr.Details
		}
	}
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		if appErr == nil {
			message = "internal error"
		}
	}
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// bodyErr reports decodeErr in place of the validation failure the service
// returns for the zero payload, so authorization failures still win over a
// malformed body.
func bodyErr(decodeErr, err error) error {
	if decodeErr != nil && apperr.Is(err, apperr.KindValidation) {
		return decodeErr
	}
	return err
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("request body must be valid JSON: " + err.Error())
	}
	return nil
}
