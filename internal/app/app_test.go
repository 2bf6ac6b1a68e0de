package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/hearttree/internal/capture"
	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/gesture"
	"github.com/ayusman/hearttree/internal/scene"
	"github.com/ayusman/hearttree/internal/store"
)

type fixture struct {
	app      *App
	store    *store.Store
	camera   *capture.MockCamera
	detector *detector.MockDetector
	clock    time.Time
}

func newFixture(t *testing.T, photos int) *fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for i := 0; i < photos; i++ {
		id := fmt.Sprintf("photo-%d", i)
		if err := s.Photos().Create(&store.Photo{ID: id, Name: id, URL: "/" + id + ".jpg"}); err != nil {
			t.Fatalf("create photo: %v", err)
		}
	}

	cam := capture.NewBlankCamera(64, 48)
	t.Cleanup(cam.Release)

	f := &fixture{
		store:    s,
		camera:   cam,
		detector: detector.NewMockDetector(),
		clock:    time.Unix(1700000000, 0),
	}

	a, err := New(Config{
		Store:         s,
		Camera:        cam,
		Detector:      f.detector,
		ParticleCount: 500,
		Seed:          1,
		Now:           func() time.Time { return f.clock },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.app = a
	return f
}

// feed applies one detector answer for the current generation, spaced one
// inference interval after the previous sample.
func (f *fixture) feed(hand *detector.HandLandmarks) {
	f.clock = f.clock.Add(DefaultInferenceInterval)
	res := inferenceResult{generation: f.app.generation, at: f.clock}
	if hand != nil {
		res.hands = []detector.HandLandmarks{*hand}
	}
	f.app.pending = true
	f.app.applyResult(res)
}

func centred(h detector.HandLandmarks) *detector.HandLandmarks {
	p := h.Points[detector.PalmCenter]
	c := h.Translate(0.5-p.X, 0.5-p.Y)
	return &c
}

func ptr(h detector.HandLandmarks) *detector.HandLandmarks {
	return &h
}

func TestNew_LoadsStore(t *testing.T) {
	f := newFixture(t, 3)

	st := f.app.Status()
	if st.PhotoCount != 3 {
		t.Errorf("PhotoCount = %d, want 3", st.PhotoCount)
	}
	if st.ParticleCount != 500 {
		t.Errorf("ParticleCount = %d, want 500", st.ParticleCount)
	}
	if st.Gestures != StatusOff {
		t.Errorf("Gestures = %s, want off", st.Gestures)
	}
	if st.Scene.State != scene.Gathered || st.Scene.HasFocus() {
		t.Errorf("unexpected initial scene %+v", st.Scene)
	}
	if f.app.engine.PhotoCount() != 3 {
		t.Errorf("engine has %d photos, want 3", f.app.engine.PhotoCount())
	}
}

func TestNew_PersistedParticleCount(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	s.Settings().SetInt(store.SettingParticleCount, 1500)

	a, err := New(Config{Store: s, ParticleCount: 500})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.engine.Count() != 1500 {
		t.Errorf("engine count = %d, want persisted 1500", a.engine.Count())
	}

	// Out-of-range values fall back to the configured count.
	s.Settings().SetInt(store.SettingParticleCount, 3)
	a, err = New(Config{Store: s, ParticleCount: 500})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.engine.Count() != 500 {
		t.Errorf("engine count = %d, want fallback 500", a.engine.Count())
	}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without a store")
	}
}

func TestEnableGestures(t *testing.T) {
	t.Run("opens the camera", func(t *testing.T) {
		f := newFixture(t, 0)

		if err := f.app.enableGestures(); err != nil {
			t.Fatalf("enableGestures() error = %v", err)
		}
		if !f.camera.IsOpen() {
			t.Error("camera should be open")
		}
		if f.app.gestures != StatusActive {
			t.Errorf("status = %s, want active", f.app.gestures)
		}
		if !f.app.machine.GesturesEnabled() {
			t.Error("machine should process gestures")
		}
	})

	t.Run("camera failure leaves manual controls", func(t *testing.T) {
		f := newFixture(t, 0)
		f.camera.FailOpen(true)

		err := f.app.enableGestures()
		if !errors.Is(err, ErrGesturesUnavailable) {
			t.Fatalf("error = %v, want ErrGesturesUnavailable", err)
		}
		if f.app.gestures != StatusUnavailable {
			t.Errorf("status = %s, want unavailable", f.app.gestures)
		}
		if f.app.machine.GesturesEnabled() {
			t.Error("machine should stay in manual mode")
		}

		// Retry succeeds once the camera is back.
		f.camera.FailOpen(false)
		if err := f.app.enableGestures(); err != nil {
			t.Errorf("retry error = %v", err)
		}
	})

	t.Run("no detector", func(t *testing.T) {
		f := newFixture(t, 0)
		f.app.detector = nil

		if err := f.app.enableGestures(); !errors.Is(err, ErrGesturesUnavailable) {
			t.Fatalf("error = %v, want ErrGesturesUnavailable", err)
		}
		if f.camera.IsOpen() {
			t.Error("camera should not be opened without a detector")
		}
	})
}

func TestApplyResult_GestureScenario(t *testing.T) {
	f := newFixture(t, 10)
	if err := f.app.enableGestures(); err != nil {
		t.Fatalf("enableGestures() error = %v", err)
	}

	f.feed(centred(detector.OpenPalmLandmarks()))
	if got := f.app.machine.State(); got != scene.Scattered {
		t.Fatalf("after open palm state = %s, want scattered", got)
	}

	// A still pinch at the centre of the frame picks the photo in front.
	f.feed(centred(detector.PinchLandmarks()))
	if got := f.app.machine.Focused(); got != 0 {
		t.Fatalf("after pinch focused = %d, want 0", got)
	}
	if f.app.lastGesture.Label != gesture.Pinch {
		t.Errorf("last gesture = %s, want pinch", f.app.lastGesture.Label)
	}

	// Holding the pinch does not reselect.
	f.app.machine.ClickSelect(0, 10) // not allowed while enabled
	f.feed(centred(detector.PinchLandmarks()))
	if got := f.app.machine.Focused(); got != 0 {
		t.Errorf("held pinch changed focus to %d", got)
	}

	f.feed(centred(detector.FistLandmarks()))
	snap := f.app.machine.Snapshot()
	if snap.State != scene.Gathered || snap.HasFocus() {
		t.Errorf("after fist snapshot = %+v, want gathered without focus", snap)
	}
}

func TestApplyResult_CameraFollowsHand(t *testing.T) {
	f := newFixture(t, 0)
	f.app.enableGestures()

	hand := detector.OpenPalmLandmarks().Translate(0.15, 0)
	p := hand.Points[detector.PalmCenter]
	f.feed(ptr(hand))

	want := scene.CameraYaw(gesture.DirectionalFrom(p))
	if f.app.targetYaw != want {
		t.Errorf("targetYaw = %f, want %f", f.app.targetYaw, want)
	}

	// Losing the hand keeps the last target.
	f.feed(nil)
	if f.app.targetYaw != want {
		t.Errorf("targetYaw moved to %f without a hand", f.app.targetYaw)
	}
	if f.app.lastGesture.Present {
		t.Error("absent hand should not be present")
	}
}

func TestApplyResult_StaleGenerationDropped(t *testing.T) {
	f := newFixture(t, 0)
	f.app.enableGestures()
	old := f.app.generation

	f.app.disableGestures(StatusOff, nil)
	f.app.enableGestures()
	f.app.pending = true

	f.app.applyResult(inferenceResult{
		generation: old,
		hands:      []detector.HandLandmarks{detector.OpenPalmLandmarks()},
		at:         f.clock,
	})

	if f.app.machine.State() != scene.Gathered {
		t.Error("stale result changed the scene")
	}
	if !f.app.pending {
		t.Error("stale result cleared the pending flag of the new generation")
	}
}

func TestApplyResult_Errors(t *testing.T) {
	t.Run("transient failure", func(t *testing.T) {
		f := newFixture(t, 0)
		f.app.enableGestures()
		f.app.pending = true

		f.app.applyResult(inferenceResult{generation: f.app.generation, err: ErrDetectTimeout})

		if f.app.pending {
			t.Error("pending should be cleared")
		}
		if f.app.gestures != StatusActive {
			t.Errorf("status = %s, want active", f.app.gestures)
		}
	})

	t.Run("resource exhaustion is fail-stop", func(t *testing.T) {
		f := newFixture(t, 0)
		f.app.enableGestures()

		err := fmt.Errorf("mediapipe: %w", detector.ErrResourceExhausted)
		f.app.applyResult(inferenceResult{generation: f.app.generation, err: err})

		if f.app.gestures != StatusFailed {
			t.Fatalf("status = %s, want failed", f.app.gestures)
		}
		if f.camera.IsOpen() {
			t.Error("camera should be closed")
		}
		if f.app.machine.GesturesEnabled() {
			t.Error("machine should be back in manual mode")
		}
		if err := f.app.enableGestures(); !errors.Is(err, ErrGesturesUnavailable) {
			t.Errorf("re-enable error = %v, want ErrGesturesUnavailable", err)
		}

		// The scene keeps working.
		f.app.machine.Toggle()
		if f.app.machine.State() != scene.Scattered {
			t.Error("manual toggle should still work")
		}
	})
}

func TestInfer_MotionGate(t *testing.T) {
	f := newFixture(t, 0)
	f.app.gate = capture.NewMotionGate(0.5, time.Second)
	t.Cleanup(f.app.gate.Close)

	if err := f.app.enableGestures(); err != nil {
		t.Fatalf("enableGestures() error = %v", err)
	}

	ctx := context.Background()
	infer := func(handSeen bool) inferenceResult {
		f.app.infer(ctx, f.app.generation, handSeen)
		return <-f.app.results
	}

	// A static view right after enabling still reaches the detector.
	if res := infer(false); res.err != nil {
		t.Fatalf("infer() error = %v", res.err)
	}
	if f.detector.Calls() != 1 {
		t.Fatalf("Calls() = %d after enabling, want 1", f.detector.Calls())
	}
	if f.camera.FPS() != capture.DefaultFPS {
		t.Errorf("FPS() = %d, want %d while active", f.camera.FPS(), capture.DefaultFPS)
	}

	f.clock = f.clock.Add(1500 * time.Millisecond)
	infer(false)
	if f.detector.Calls() != 1 {
		t.Errorf("Calls() = %d, idle view should skip the detector", f.detector.Calls())
	}
	if f.camera.FPS() != capture.IdleFPS {
		t.Errorf("FPS() = %d, want %d while idle", f.camera.FPS(), capture.IdleFPS)
	}

	f.clock = f.clock.Add(100 * time.Millisecond)
	infer(true)
	if f.detector.Calls() != 2 {
		t.Errorf("Calls() = %d, a tracked hand should reach the detector", f.detector.Calls())
	}
	if f.camera.FPS() != capture.DefaultFPS {
		t.Errorf("FPS() = %d, want %d after activity", f.camera.FPS(), capture.DefaultFPS)
	}

	// Re-enabling restarts the idle window and the capture rate.
	f.clock = f.clock.Add(5 * time.Second)
	infer(false)
	f.app.disableGestures(StatusOff, nil)
	if err := f.app.enableGestures(); err != nil {
		t.Fatalf("enableGestures() error = %v", err)
	}
	if f.camera.FPS() != capture.DefaultFPS {
		t.Errorf("FPS() = %d after re-enabling, want %d", f.camera.FPS(), capture.DefaultFPS)
	}
	calls := f.detector.Calls()
	f.clock = f.clock.Add(100 * time.Millisecond)
	infer(false)
	if f.detector.Calls() != calls+1 {
		t.Error("first frame after re-enabling should reach the detector")
	}
}

func TestDisableGestures_ClosesCamera(t *testing.T) {
	f := newFixture(t, 0)
	f.app.enableGestures()
	f.app.pending = true

	f.app.disableGestures(StatusOff, nil)

	if f.camera.IsOpen() {
		t.Error("camera should be closed synchronously")
	}
	if f.camera.Closes() != 1 {
		t.Errorf("Closes() = %d, want 1", f.camera.Closes())
	}
	if f.app.pending {
		t.Error("pending should be cleared")
	}
	if f.app.machine.GesturesEnabled() {
		t.Error("machine should be in manual mode")
	}
}

func TestRenderFrame(t *testing.T) {
	f := newFixture(t, 2)

	if f.app.LatestFrame() != nil {
		t.Fatal("no frame should exist before the first tick")
	}

	f.app.renderFrame(1.0 / 60)
	first := f.app.LatestFrame()
	f.app.renderFrame(1.0 / 60)

	fr := f.app.LatestFrame()
	if fr == nil {
		t.Fatal("expected a frame")
	}
	if fr == first {
		t.Error("each tick should publish a new frame")
	}
	if fr.Seq != 2 {
		t.Errorf("Seq = %d, want 2", fr.Seq)
	}
	if len(fr.Particles) != 500 || len(fr.Photos) != 2 {
		t.Errorf("frame has %d particles and %d photos", len(fr.Particles), len(fr.Photos))
	}
}

func TestRenderFrame_CameraEases(t *testing.T) {
	f := newFixture(t, 0)
	f.app.targetYaw = 1.0

	f.app.renderFrame(1.0 / 60)
	first := f.app.yaw
	if first <= 0 || first >= 1 {
		t.Fatalf("yaw after one frame = %f, want between 0 and 1", first)
	}

	for i := 0; i < 300; i++ {
		f.app.renderFrame(1.0 / 60)
	}
	if d := 1.0 - f.app.yaw; d > 1e-3 {
		t.Errorf("yaw did not converge, %f remaining", d)
	}

	// A long stall is capped.
	f.app.targetYaw = 0
	before := f.app.yaw
	f.app.renderFrame(5)
	if f.app.yaw < before*0.5 {
		t.Errorf("stall moved the camera too far: %f -> %f", before, f.app.yaw)
	}
}

func runApp(t *testing.T, a *App) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
	return ctx
}

func TestCommands(t *testing.T) {
	f := newFixture(t, 3)
	ctx := runApp(t, f.app)

	snap, err := f.app.Toggle(ctx)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if snap.State != scene.Scattered {
		t.Fatalf("state = %s, want scattered", snap.State)
	}

	snap, err = f.app.ClickSelect(ctx, 2)
	if err != nil {
		t.Fatalf("ClickSelect() error = %v", err)
	}
	if snap.Focused != 2 {
		t.Fatalf("focused = %d, want 2", snap.Focused)
	}

	if _, err := f.app.ClickSelect(ctx, 7); !errors.Is(err, scene.ErrIndexOutOfRange) {
		t.Errorf("ClickSelect(7) error = %v, want ErrIndexOutOfRange", err)
	}

	// Removing an earlier photo shifts focus down with the list.
	if err := f.app.RemovePhoto(ctx, "photo-0"); err != nil {
		t.Fatalf("RemovePhoto() error = %v", err)
	}
	st := f.app.Status()
	if st.Scene.Focused != 1 || st.PhotoCount != 2 {
		t.Errorf("after removal focused=%d photos=%d, want 1 and 2", st.Scene.Focused, st.PhotoCount)
	}

	// Removing the focused photo clears focus.
	if err := f.app.RemovePhoto(ctx, "photo-2"); err != nil {
		t.Fatalf("RemovePhoto() error = %v", err)
	}
	if f.app.Status().Scene.HasFocus() {
		t.Error("focus should be cleared")
	}

	if err := f.app.RemovePhoto(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("RemovePhoto(missing) error = %v, want ErrNotFound", err)
	}

	if err := f.app.AddPhoto(ctx, &store.Photo{ID: "new", Name: "new", URL: "/new.jpg"}); err != nil {
		t.Fatalf("AddPhoto() error = %v", err)
	}
	photos, _ := f.app.Photos()
	if len(photos) != 2 || photos[1].ID != "new" {
		t.Errorf("unexpected photos after add: %d", len(photos))
	}

	if err := f.app.SetParticleCount(ctx, 800); err != nil {
		t.Fatalf("SetParticleCount() error = %v", err)
	}
	if f.app.Status().ParticleCount != 800 {
		t.Errorf("ParticleCount = %d, want 800", f.app.Status().ParticleCount)
	}
	if n, _ := f.store.Settings().GetInt(store.SettingParticleCount, 0); n != 800 {
		t.Errorf("persisted count = %d, want 800", n)
	}
	if err := f.app.SetParticleCount(ctx, 1); err == nil {
		t.Error("expected error for out-of-range particle count")
	}

	snap, err = f.app.SetState(ctx, scene.Gathered)
	if err != nil || snap.State != scene.Gathered {
		t.Errorf("SetState() = %+v, %v", snap, err)
	}
}

func TestCommands_GestureModeBlocksClickSelect(t *testing.T) {
	f := newFixture(t, 3)
	ctx := runApp(t, f.app)

	status, err := f.app.SetGesturesEnabled(ctx, true)
	if err != nil || status != StatusActive {
		t.Fatalf("SetGesturesEnabled(true) = %s, %v", status, err)
	}
	f.app.Toggle(ctx)

	if _, err := f.app.ClickSelect(ctx, 0); !errors.Is(err, scene.ErrSelectNotAllowed) {
		t.Errorf("ClickSelect() error = %v, want ErrSelectNotAllowed", err)
	}

	status, err = f.app.SetGesturesEnabled(ctx, false)
	if err != nil || status != StatusOff {
		t.Fatalf("SetGesturesEnabled(false) = %s, %v", status, err)
	}
	if f.camera.IsOpen() {
		t.Error("camera should be closed once disable returns")
	}
	if _, err := f.app.ClickSelect(ctx, 0); err != nil {
		t.Errorf("ClickSelect() after disable error = %v", err)
	}
}

func TestCommands_AfterStop(t *testing.T) {
	f := newFixture(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.app.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if _, err := f.app.Toggle(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Toggle() after stop error = %v, want ErrStopped", err)
	}
	if err := f.app.Run(context.Background()); err == nil {
		t.Error("second Run should fail")
	}
	if !f.detector.Closed() {
		t.Error("detector should be closed on shutdown")
	}
}
