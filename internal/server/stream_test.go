package server

import (
	"bufio"
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ayusman/hearttree/internal/app"
)

type fakePreview struct {
	mu       sync.Mutex
	status   app.GestureStatus
	jpeg     []byte
	watchers atomic.Int32
}

func (f *fakePreview) Status() app.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return app.Status{Gestures: f.status}
}

func (f *fakePreview) setStatus(s app.GestureStatus) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *fakePreview) WatchPreview() func() {
	f.watchers.Add(1)
	return func() { f.watchers.Add(-1) }
}

func (f *fakePreview) Preview() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg
}

func TestStreamHandler_Inactive(t *testing.T) {
	h := NewStreamHandler(&fakePreview{status: app.StatusOff})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakePreview{status: app.StatusActive})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStreamHandler_Streams(t *testing.T) {
	src := &fakePreview{status: app.StatusActive, jpeg: []byte{0xff, 0xd8, 0x01, 0xff, 0xd9}}
	ts := httptest.NewServer(NewStreamHandler(src))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	br := bufio.NewReader(resp.Body)
	line, err := br.ReadString('\n')
	if err != nil || line != "--"+params["boundary"]+"\r\n" {
		t.Fatalf("boundary line = %q, err = %v", line, err)
	}
	header, err := textproto.NewReader(br).ReadMIMEHeader()
	if err != nil {
		t.Fatalf("ReadMIMEHeader() error = %v", err)
	}
	if ct := header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("part Content-Type = %q, want image/jpeg", ct)
	}
	n, _ := strconv.Atoi(header.Get("Content-Length"))
	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		t.Fatalf("reading part body: %v", err)
	}
	if string(body) != string(src.jpeg) {
		t.Errorf("part body = %x, want %x", body, src.jpeg)
	}
	if src.watchers.Load() != 1 {
		t.Errorf("watchers = %d while streaming, want 1", src.watchers.Load())
	}

	// Turning gestures off ends the stream and releases the preview.
	src.setStatus(app.StatusOff)
	io.Copy(io.Discard, br)
	waitFor(t, "preview release", func() bool { return src.watchers.Load() == 0 })
}
