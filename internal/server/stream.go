package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/hearttree/internal/app"
)

// streamInterval is the MJPEG poll period (~15 FPS).
const streamInterval = 66 * time.Millisecond

// PreviewSource supplies JPEG camera previews while gesture input is active.
type PreviewSource interface {
	Status() app.Status
	WatchPreview() (release func())
	Preview() []byte
}

// StreamHandler serves MJPEG frames from the camera preview.
type StreamHandler struct {
	source PreviewSource
}

// NewStreamHandler creates a new StreamHandler for source.
func NewStreamHandler(source PreviewSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames until the client leaves or gesture input
// is turned off.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.source.Status().Gestures != app.StatusActive {
		http.Error(w, "Gesture input is not active", http.StatusServiceUnavailable)
		return
	}

	release := h.source.WatchPreview()
	defer release()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		if h.source.Status().Gestures != app.StatusActive {
			return
		}

		jpeg := h.source.Preview()
		if len(jpeg) == 0 || (len(last) > 0 && &jpeg[0] == &last[0]) {
			continue
		}
		last = jpeg

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
