package utils

import (
	"encoding/json"
	"net/http"

	"github.com/go-kit/log/level"

	"tripgenie/errs"
	"tripgenie/logger"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// RespondWithAppError writes err with the status its kind maps to. Internal
// errors are logged and answered with a generic message.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		level.Error(logger.Log).Log("msg", "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	RespondWithError(w, status, errs.Reason(err))
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		level.Warn(logger.Log).Log("msg", "failed to encode response", "err", err)
	}
}

// DecodeJSON reads a JSON body into dst, bounded to 1 MB.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errs.Validation("invalid request payload")
	}
	return nil
}

type M map[string]interface{}
