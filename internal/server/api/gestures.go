package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/gesture"
)

// GestureController is the part of the app the gesture toggle drives.
type GestureController interface {
	Status() app.Status
	SetGesturesEnabled(ctx context.Context, enabled bool) (app.GestureStatus, error)
}

// GestureHandler serves GET and PUT /api/gestures.
type GestureHandler struct {
	app GestureController
}

// NewGestureHandler creates a GestureHandler backed by c.
func NewGestureHandler(c GestureController) *GestureHandler {
	return &GestureHandler{app: c}
}

type setGesturesRequest struct {
	Enabled *bool `json:"enabled"`
}

type gestureResponse struct {
	Enabled bool              `json:"enabled"`
	Status  app.GestureStatus `json:"status"`
	Error   string            `json:"error,omitempty"`
	Last    gesture.State     `json:"last_gesture"`
}

// ServeHTTP implements the http.Handler interface.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GestureHandler) current() gestureResponse {
	st := h.app.Status()
	return gestureResponse{
		Enabled: st.Gestures == app.StatusActive,
		Status:  st.Gestures,
		Error:   st.GestureError,
		Last:    st.LastGesture,
	}
}

// update handles PUT /api/gestures with {"enabled": bool}. An enable that
// cannot open the camera answers 503 with the resulting status.
func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request) {
	var req setGesturesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Enabled is required")
		return
	}

	if _, err := h.app.SetGesturesEnabled(r.Context(), *req.Enabled); err != nil {
		if errors.Is(err, app.ErrGesturesUnavailable) {
			resp := h.current()
			resp.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.current())
}
