package api

import (
	"context"
	"net/http"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/config"
)

// ParticleController is the part of the app the particle endpoint drives.
type ParticleController interface {
	Status() app.Status
	SetParticleCount(ctx context.Context, n int) error
}

// ParticleHandler serves GET and PUT /api/particles.
type ParticleHandler struct {
	app ParticleController
}

// NewParticleHandler creates a ParticleHandler backed by c.
func NewParticleHandler(c ParticleController) *ParticleHandler {
	return &ParticleHandler{app: c}
}

type particlesBody struct {
	Count int `json:"count"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ParticleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, particlesBody{Count: h.app.Status().ParticleCount})
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update regenerates the layout with the requested count.
func (h *ParticleHandler) update(w http.ResponseWriter, r *http.Request) {
	var req particlesBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := config.ValidateParticleCount(req.Count); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.app.SetParticleCount(r.Context(), req.Count); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, particlesBody{Count: req.Count})
}
