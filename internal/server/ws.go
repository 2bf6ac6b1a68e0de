package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/hearttree/internal/layout"
	"github.com/ayusman/hearttree/internal/log"
)

// DefaultFrameInterval is the frame feed period (~15 FPS).
const DefaultFrameInterval = 66 * time.Millisecond

// writeWait bounds a single websocket write so one stuck viewer cannot
// stall the feed.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FrameSource supplies rendered frames.
type FrameSource interface {
	LatestFrame() *layout.Frame
}

// FramesHandler broadcasts rendered frames to websocket viewers.
type FramesHandler struct {
	source  FrameSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewFramesHandler creates a FramesHandler polling source every interval.
func NewFramesHandler(source FrameSource, interval time.Duration) *FramesHandler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	h := &FramesHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		stop:    make(chan struct{}),
	}
	go h.broadcast(interval)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debug("frame viewer connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		log.Debug("frame viewer disconnected", "remote", r.RemoteAddr)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected viewers.
func (h *FramesHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster and closes all viewer connections.
func (h *FramesHandler) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

// broadcast sends each new frame to all connected clients.
func (h *FramesHandler) broadcast(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	sent := false

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		frame := h.source.LatestFrame()
		if frame == nil || (sent && frame.Seq == lastSeq) {
			continue
		}

		msg, err := json.Marshal(frame)
		if err != nil {
			log.Warn("frame encode failed", "error", err)
			continue
		}
		lastSeq, sent = frame.Seq, true

		var dead []*websocket.Conn
		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				dead = append(dead, conn)
			}
		}
		h.mu.RUnlock()

		for _, conn := range dead {
			// The read loop in ServeHTTP removes the client once the
			// connection is closed.
			conn.Close()
		}
	}
}
