package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrResourceExhausted is returned (wrapped) when the detector ran out of
	// memory or a comparable resource. Callers must stop using the detector.
	ErrResourceExhausted = errors.New("detector resources exhausted")

	// ErrScriptNotFound is returned when the MediaPipe service script cannot
	// be located.
	ErrScriptNotFound = errors.New("mediapipe_service.py not found")
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the MediaPipe service script lookup.
	ScriptPath string

	// PythonPath overrides the interpreter lookup.
	PythonPath string
}

// DefaultConfig returns a Config tracking a single hand.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
