package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/scene"
	"github.com/ayusman/hearttree/internal/store"
)

// newTestApp starts an app with no camera or detector on a temporary
// store holding photos named photo-0..photo-n.
func newTestApp(t *testing.T, photos int) (*app.App, *store.Store) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for i := 0; i < photos; i++ {
		id := fmt.Sprintf("photo-%d", i)
		if err := s.Photos().Create(&store.Photo{ID: id, Name: id, URL: "/" + id + ".jpg"}); err != nil {
			t.Fatalf("failed to create photo: %v", err)
		}
	}

	a, err := app.New(app.Config{Store: s, ParticleCount: 200, Seed: 1})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a, s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("delete photo x: %w", store.ErrNotFound), http.StatusNotFound},
		{"select not allowed", scene.ErrSelectNotAllowed, http.StatusConflict},
		{"index out of range", fmt.Errorf("%w: 5 of 2", scene.ErrIndexOutOfRange), http.StatusBadRequest},
		{"gestures unavailable", fmt.Errorf("%w: no camera", app.ErrGesturesUnavailable), http.StatusServiceUnavailable},
		{"stopped", app.ErrStopped, http.StatusServiceUnavailable},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var resp errorResponse
			decode(t, rec, &resp)
			if resp.Error != tt.err.Error() {
				t.Errorf("error = %q, want %q", resp.Error, tt.err.Error())
			}
		})
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))

	var v struct{}
	if decodeJSON(rec, req, &v) {
		t.Fatal("decodeJSON() = true for malformed body")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
