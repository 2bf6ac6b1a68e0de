// Package api provides the HTTP handlers for the hearttree manual control
// surface.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/scene"
	"github.com/ayusman/hearttree/internal/store"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAppError maps an error returned by the app to a status code.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scene.ErrSelectNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, scene.ErrIndexOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrGesturesUnavailable), errors.Is(err, app.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads r's body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}
