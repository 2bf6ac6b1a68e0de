package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/hearttree/internal/store"
)

// PhotoController is the part of the app the photo endpoints drive.
type PhotoController interface {
	Photos() ([]*store.Photo, error)
	AddPhoto(ctx context.Context, p *store.Photo) error
	RemovePhoto(ctx context.Context, id string) error
}

// PhotoHandler handles HTTP requests for the photo gallery.
type PhotoHandler struct {
	app PhotoController
}

// NewPhotoHandler creates a PhotoHandler backed by c.
func NewPhotoHandler(c PhotoController) *PhotoHandler {
	return &PhotoHandler{app: c}
}

type createPhotoRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listPhotosResponse struct {
	Photos []*store.Photo `json:"photos"`
}

// ServeHTTP routes /api/photos and /api/photos/{id}.
func (h *PhotoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/photos")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/photos and returns the gallery in scene order.
func (h *PhotoHandler) list(w http.ResponseWriter, r *http.Request) {
	photos, err := h.app.Photos()
	if err != nil {
		writeAppError(w, err)
		return
	}
	if photos == nil {
		photos = []*store.Photo{}
	}
	writeJSON(w, http.StatusOK, listPhotosResponse{Photos: photos})
}

// get handles GET /api/photos/{id}.
func (h *PhotoHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	photos, err := h.app.Photos()
	if err != nil {
		writeAppError(w, err)
		return
	}
	for _, p := range photos {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Photo not found")
}

// create handles POST /api/photos and appends a photo to the gallery.
func (h *PhotoHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if req.Name == "" {
		req.Name = req.URL
	}

	photo := &store.Photo{
		ID:   uuid.New().String(),
		Name: req.Name,
		URL:  req.URL,
	}
	if err := h.app.AddPhoto(r.Context(), photo); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// delete handles DELETE /api/photos/{id}.
func (h *PhotoHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.app.RemovePhoto(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
