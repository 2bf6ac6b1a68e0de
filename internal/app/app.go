// Package app runs the hearttree frame loop: it owns the scene state
// machine, the layout engine and the gesture classifier, and connects them
// to the camera, the hand detector and the manual control surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/hearttree/internal/capture"
	"github.com/ayusman/hearttree/internal/config"
	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/geom"
	"github.com/ayusman/hearttree/internal/gesture"
	"github.com/ayusman/hearttree/internal/layout"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/scene"
	"github.com/ayusman/hearttree/internal/store"
)

// Loop timing defaults.
const (
	DefaultFrameRate         = 60
	DefaultInferenceInterval = 66 * time.Millisecond
	DefaultDetectTimeout     = 500 * time.Millisecond

	// maxFrameStep caps dt after a stall so particles do not teleport.
	maxFrameStep = 0.1
	// cameraRate is the exponential rate at which the orbit camera follows
	// the hand.
	cameraRate = 4.0
)

var (
	// ErrGesturesUnavailable is returned when gesture input cannot be
	// enabled: no detector, no camera, or the detector failed earlier.
	ErrGesturesUnavailable = errors.New("gesture input unavailable")

	// ErrStopped is returned by commands issued after Run has returned.
	ErrStopped = errors.New("app stopped")

	// ErrDetectTimeout is the inference error for a detector call that did
	// not return within DetectTimeout.
	ErrDetectTimeout = errors.New("hand detection timed out")
)

// GestureStatus is the user-facing state of gesture input.
type GestureStatus string

const (
	// StatusOff means gestures are disabled and manual controls apply.
	StatusOff GestureStatus = "off"
	// StatusActive means the camera is open and frames are being classified.
	StatusActive GestureStatus = "active"
	// StatusUnavailable means the last enable attempt failed; it can be
	// retried.
	StatusUnavailable GestureStatus = "unavailable"
	// StatusFailed means the detector exhausted its resources. Gesture input
	// stays off for the rest of the session.
	StatusFailed GestureStatus = "failed"
)

// Config holds the application dependencies and tuning.
type Config struct {
	// Store holds the photo list and settings. Required.
	Store *store.Store

	// Camera feeds the detector. Required for gesture input.
	Camera capture.Camera

	// Detector computes hand landmarks. A nil detector leaves gesture input
	// unavailable; manual controls still work.
	Detector detector.Detector

	Gesture gesture.Config

	ParticleCount int
	Seed          uint64

	FrameRate         int
	InferenceInterval time.Duration
	DetectTimeout     time.Duration

	// MotionThreshold enables the idle gate when positive: the percentage
	// of pixels that must change before an empty view is sent to the
	// detector.
	MotionThreshold float64

	// EnableGestures turns gesture input on when Run starts.
	EnableGestures bool

	// Now overrides the clock used to timestamp samples.
	Now func() time.Time
}

// Status is a consistent view of the app for readers outside the loop.
type Status struct {
	Scene         scene.Snapshot `json:"scene"`
	Gestures      GestureStatus  `json:"gestures"`
	GestureError  string         `json:"gesture_error,omitempty"`
	LastGesture   gesture.State  `json:"last_gesture"`
	ParticleCount int            `json:"particle_count"`
	PhotoCount    int            `json:"photo_count"`
}

type command struct {
	fn   func() error
	done chan error
}

// App is the hearttree controller. All scene, layout and classifier state
// is owned by the Run goroutine; other goroutines interact through
// commands, Status and LatestFrame.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	gate       *capture.MotionGate
	classifier *gesture.Classifier
	machine    *scene.Machine
	engine     *layout.Engine

	// Loop-owned.
	photos       []*store.Photo
	gestures     GestureStatus
	gestureErr   error
	lastGesture  gesture.State
	generation   uint64
	pending      bool
	handSeen     bool
	yaw, height  float64
	targetYaw    float64
	targetHeight float64

	// Set by the loop, cleared by the detect goroutine.
	detecting atomic.Bool

	// idle is whether the camera runs at capture.IdleFPS; activeFPS is the
	// rate restored when the gate reopens.
	idle      atomic.Bool
	activeFPS int

	cmds    chan command
	results chan inferenceResult
	done    chan struct{}
	running atomic.Bool

	mu     sync.RWMutex
	status Status

	frame     atomic.Pointer[layout.Frame]
	preview   atomic.Pointer[[]byte]
	previewer atomic.Int32
}

// New creates an App. It loads the photo list and the persisted particle
// count from the store but does not touch the camera.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.InferenceInterval <= 0 {
		cfg.InferenceInterval = DefaultInferenceInterval
	}
	if cfg.DetectTimeout <= 0 {
		cfg.DetectTimeout = DefaultDetectTimeout
	}
	if cfg.ParticleCount <= 0 {
		cfg.ParticleCount = config.Default().Scene.ParticleCount
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	count, err := cfg.Store.Settings().GetInt(store.SettingParticleCount, cfg.ParticleCount)
	if err != nil {
		return nil, fmt.Errorf("load particle count: %w", err)
	}
	if config.ValidateParticleCount(count) != nil {
		log.Warn("ignoring stored particle count", "count", count)
		count = cfg.ParticleCount
	}

	photos, err := cfg.Store.Photos().List()
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}

	a := &App{
		config:       cfg,
		camera:       cfg.Camera,
		detector:     cfg.Detector,
		classifier:   gesture.NewClassifier(cfg.Gesture),
		machine:      scene.NewMachine(),
		engine:       layout.NewEngine(count, cfg.Seed),
		photos:       photos,
		gestures:     StatusOff,
		height:       scene.CameraHeight,
		targetHeight: scene.CameraHeight,
		cmds:         make(chan command),
		results:      make(chan inferenceResult, 1),
		done:         make(chan struct{}),
	}
	if cfg.MotionThreshold > 0 {
		a.gate = capture.NewMotionGate(cfg.MotionThreshold, 0)
	}
	if cfg.Camera != nil {
		a.activeFPS = cfg.Camera.FPS()
	}

	a.engine.SetPhotos(a.photoIDs(), a.machine.State())
	a.publish()

	log.Info("app created", "particles", count, "photos", len(photos), "seed", cfg.Seed)
	return a, nil
}

// Run drives the frame loop until ctx is cancelled. It may be called once.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("app: already running")
	}
	defer close(a.done)
	defer a.shutdown()

	if a.config.EnableGestures {
		if err := a.enableGestures(); err != nil {
			log.Warn("gesture input not started", "error", err)
		}
		a.publish()
	}

	frameTicker := time.NewTicker(time.Second / time.Duration(a.config.FrameRate))
	defer frameTicker.Stop()

	gestureTicker := time.NewTicker(a.config.InferenceInterval)
	defer gestureTicker.Stop()

	last := time.Now()
	log.Info("frame loop started", "frame_rate", a.config.FrameRate, "inference_interval", a.config.InferenceInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("frame loop stopped")
			return nil

		case cmd := <-a.cmds:
			err := cmd.fn()
			a.publish()
			cmd.done <- err

		case res := <-a.results:
			a.applyResult(res)
			a.publish()

		case <-gestureTicker.C:
			a.gestureTick(ctx)

		case now := <-frameTicker.C:
			dt := now.Sub(last).Seconds()
			last = now
			a.renderFrame(dt)
		}
	}
}

// shutdown releases the camera and the detector when the loop exits.
func (a *App) shutdown() {
	if a.gestures == StatusActive {
		a.disableGestures(StatusOff, nil)
	}
	if a.gate != nil {
		a.gate.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Warn("error closing detector", "error", err)
		}
	}
	a.publish()
}

// do runs fn on the loop goroutine and waits for its result.
func (a *App) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}

	select {
	case a.cmds <- cmd:
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publish copies loop-owned state into the shared Status.
func (a *App) publish() {
	st := Status{
		Scene:         a.machine.Snapshot(),
		Gestures:      a.gestures,
		LastGesture:   a.lastGesture,
		ParticleCount: a.engine.Count(),
		PhotoCount:    len(a.photos),
	}
	if a.gestureErr != nil {
		st.GestureError = a.gestureErr.Error()
	}

	a.mu.Lock()
	a.status = st
	a.mu.Unlock()
}

// Status returns the latest published status.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// LatestFrame returns the most recently rendered frame, or nil before the
// first frame.
func (a *App) LatestFrame() *layout.Frame {
	return a.frame.Load()
}

// renderFrame eases the camera and advances the layout by dt seconds.
func (a *App) renderFrame(dt float64) {
	if dt > maxFrameStep {
		dt = maxFrameStep
	}

	f := geom.ApproachFactor(cameraRate, dt)
	a.yaw += (a.targetYaw - a.yaw) * f
	a.height += (a.targetHeight - a.height) * f

	cam := scene.OrbitCamera(a.yaw, a.height)
	frame := a.engine.Step(dt, a.machine.Snapshot(), cam)
	a.frame.Store(frame)
}

func (a *App) photoIDs() []string {
	ids := make([]string, len(a.photos))
	for i, p := range a.photos {
		ids[i] = p.ID
	}
	return ids
}

func (a *App) reloadPhotos() error {
	photos, err := a.config.Store.Photos().List()
	if err != nil {
		return fmt.Errorf("load photos: %w", err)
	}
	a.photos = photos
	a.engine.SetPhotos(a.photoIDs(), a.machine.State())
	return nil
}

func logTransition(source string, t scene.Transition) {
	if !t.Changed() {
		return
	}
	log.Info("scene transition",
		"source", source,
		"from", t.From,
		"to", t.To,
		"focused", t.Focused,
	)
}
