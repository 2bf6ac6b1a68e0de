package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/hearttree/internal/capture"
	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/scene"
)

// inferenceResult carries one detector round trip back to the loop.
// generation ties it to the enable cycle that requested it.
type inferenceResult struct {
	generation uint64
	hands      []detector.HandLandmarks
	err        error
	at         time.Time
}

// enableGestures opens the camera and starts a new generation.
func (a *App) enableGestures() error {
	switch a.gestures {
	case StatusActive:
		return nil
	case StatusFailed:
		return fmt.Errorf("%w: %v", ErrGesturesUnavailable, a.gestureErr)
	}

	if a.detector == nil {
		return a.markUnavailable(errors.New("no hand detector configured"))
	}
	if a.camera == nil {
		return a.markUnavailable(errors.New("no camera configured"))
	}
	if err := a.camera.Open(); err != nil {
		return a.markUnavailable(err)
	}

	if a.gate != nil {
		a.gate.Reset()
	}
	a.setIdle(false)
	a.classifier.Reset()
	a.handSeen = false
	a.generation++
	a.pending = false
	a.gestures = StatusActive
	a.gestureErr = nil
	a.machine.SetGesturesEnabled(true)

	log.Info("gesture input enabled", "generation", a.generation)
	return nil
}

func (a *App) markUnavailable(err error) error {
	a.gestures = StatusUnavailable
	a.gestureErr = err
	log.Warn("gesture input unavailable", "error", err)
	return fmt.Errorf("%w: %v", ErrGesturesUnavailable, err)
}

// disableGestures stops capture synchronously. Bumping the generation makes
// any result already in flight stale.
func (a *App) disableGestures(status GestureStatus, cause error) {
	a.machine.SetGesturesEnabled(false)
	a.generation++
	a.pending = false
	a.handSeen = false
	a.classifier.Reset()
	a.lastGesture = a.classifier.Classify(nil, a.config.Now())
	a.preview.Store(nil)

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Warn("error closing camera", "error", err)
		}
	}

	a.gestures = status
	a.gestureErr = cause
	log.Info("gesture input disabled", "status", status, "generation", a.generation)
}

// gestureTick issues a detector request unless one is still outstanding.
func (a *App) gestureTick(ctx context.Context) {
	if a.gestures != StatusActive || a.pending || a.detecting.Load() {
		return
	}

	a.pending = true
	a.detecting.Store(true)
	go a.infer(ctx, a.generation, a.handSeen)
}

// infer reads one frame and runs it through the detector with a timeout.
// It runs on its own goroutine and touches no loop-owned state.
func (a *App) infer(ctx context.Context, generation uint64, handSeen bool) {
	res := inferenceResult{generation: generation}
	defer func() {
		select {
		case a.results <- res:
		case <-ctx.Done():
		}
	}()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.detecting.Store(false)
		res.err = fmt.Errorf("read frame: %w", err)
		return
	}
	res.at = a.config.Now()

	if a.previewer.Load() > 0 {
		a.storePreview(frame)
	}

	if a.gate != nil {
		allowed := a.gate.Allow(frame, handSeen, res.at)
		a.setIdle(!allowed)
		if !allowed {
			frame.Close()
			a.detecting.Store(false)
			return
		}
	}

	type outcome struct {
		hands []detector.HandLandmarks
		err   error
	}
	out := make(chan outcome, 1)

	go func() {
		defer a.detecting.Store(false)
		defer frame.Close()
		hands, err := a.detector.Detect(frame)
		out <- outcome{hands: hands, err: err}
	}()

	timer := time.NewTimer(a.config.DetectTimeout)
	defer timer.Stop()

	select {
	case o := <-out:
		res.hands, res.err = o.hands, o.err
	case <-timer.C:
		res.err = ErrDetectTimeout
	case <-ctx.Done():
	}
}

// setIdle lowers the capture rate while the motion gate is closed and
// restores it when the gate reopens.
func (a *App) setIdle(idle bool) {
	if a.idle.Swap(idle) == idle {
		return
	}
	if idle {
		a.camera.SetFPS(capture.IdleFPS)
		log.Debug("view idle, lowering capture rate", "fps", capture.IdleFPS)
		return
	}
	a.camera.SetFPS(a.activeFPS)
	log.Debug("activity, restoring capture rate", "fps", a.activeFPS)
}

// applyResult feeds one inference result into the classifier and the scene.
func (a *App) applyResult(res inferenceResult) {
	if res.generation != a.generation {
		log.Debug("dropping stale inference result", "generation", res.generation, "current", a.generation)
		return
	}
	a.pending = false

	if res.err != nil {
		if errors.Is(res.err, detector.ErrResourceExhausted) {
			log.Error("hand detector exhausted, gesture input stopped for this session", "error", res.err)
			a.disableGestures(StatusFailed, res.err)
			return
		}
		log.Warn("inference failed", "error", res.err)
		return
	}

	var hand *detector.HandLandmarks
	if len(res.hands) > 0 {
		hand = &res.hands[0]
	}

	g := a.classifier.Classify(hand, res.at)
	a.handSeen = g.Present
	a.lastGesture = g

	logTransition("gesture", a.machine.HandleGesture(g, len(a.photos)))

	if g.Present {
		a.targetYaw = scene.CameraYaw(g.Directional)
		a.targetHeight = scene.CameraHeightFor(g.Directional)
	}
}

// storePreview JPEG-encodes frame for the camera preview stream.
func (a *App) storePreview(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Debug("preview encode failed", "error", err)
		return
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	a.preview.Store(&data)
}

// WatchPreview asks the inference worker to publish JPEG previews until the
// returned release func is called.
func (a *App) WatchPreview() (release func()) {
	a.previewer.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			if a.previewer.Add(-1) == 0 {
				a.preview.Store(nil)
			}
		})
	}
}

// Preview returns the latest JPEG preview, or nil when gestures are off or
// no one is watching.
func (a *App) Preview() []byte {
	p := a.preview.Load()
	if p == nil {
		return nil
	}
	return *p
}
