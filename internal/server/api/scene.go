package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/scene"
)

// SceneController is the part of the app the scene endpoints drive.
type SceneController interface {
	Status() app.Status
	Toggle(ctx context.Context) (scene.Snapshot, error)
	SetState(ctx context.Context, s scene.State) (scene.Snapshot, error)
	ClickSelect(ctx context.Context, index int) (scene.Snapshot, error)
}

// SceneHandler serves /api/scene, /api/scene/toggle and /api/scene/select.
type SceneHandler struct {
	app SceneController
}

// NewSceneHandler creates a SceneHandler backed by c.
func NewSceneHandler(c SceneController) *SceneHandler {
	return &SceneHandler{app: c}
}

type setStateRequest struct {
	State string `json:"state"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SceneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/scene")
	path = strings.Trim(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Status())
	case path == "" && r.Method == http.MethodPut:
		h.setState(w, r)
	case path == "toggle" && r.Method == http.MethodPost:
		h.toggle(w, r)
	case path == "select" && r.Method == http.MethodPost:
		h.selectPhoto(w, r)
	case path == "" || path == "toggle" || path == "select":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// toggle handles POST /api/scene/toggle.
func (h *SceneHandler) toggle(w http.ResponseWriter, r *http.Request) {
	snap, err := h.app.Toggle(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// setState handles PUT /api/scene with {"state": "gathered"|"scattered"}.
func (h *SceneHandler) setState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := scene.ParseState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.app.SetState(r.Context(), s)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// selectPhoto handles POST /api/scene/select with {"index": n}.
func (h *SceneHandler) selectPhoto(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "Index is required")
		return
	}

	snap, err := h.app.ClickSelect(r.Context(), *req.Index)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
