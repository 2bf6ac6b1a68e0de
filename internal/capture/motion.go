package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultIdleAfter is how long a static, empty scene must last before
	// the gate closes.
	DefaultIdleAfter = 2 * time.Second
	// IdleFPS is the capture rate while the gate is closed.
	IdleFPS = 5
)

// MotionGate decides whether a camera frame is worth sending to the hand
// detector. It stays open while there is motion or a hand was seen, and
// closes once the view has been static and empty for IdleAfter. A new or
// reset gate counts its first frame as activity.
//
// Motion is measured by frame differencing: grayscale, 21x21 Gaussian blur,
// absolute difference against the previous frame, binary threshold at 25,
// then the percentage of changed pixels.
type MotionGate struct {
	threshold float64
	idleAfter time.Duration

	mu          sync.Mutex
	prevGray    gocv.Mat
	initialized bool
	lastActive  time.Time
}

// NewMotionGate creates a gate. threshold is the percentage of pixels that
// must change to count as motion; 1.0 means 1%.
func NewMotionGate(threshold float64, idleAfter time.Duration) *MotionGate {
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	return &MotionGate{
		threshold: threshold,
		idleAfter: idleAfter,
		prevGray:  gocv.NewMat(),
	}
}

// Allow reports whether frame should be run through detection. handSeen is
// whether the previous detection found a hand; a tracked hand keeps the
// gate open even when it holds still.
func (m *MotionGate) Allow(frame *gocv.Mat, handSeen bool, now time.Time) bool {
	moved, _ := m.Detect(frame)

	m.mu.Lock()
	defer m.mu.Unlock()

	if moved || handSeen || m.lastActive.IsZero() {
		m.lastActive = now
		return true
	}
	return now.Sub(m.lastActive) < m.idleAfter
}

// Detect compares frame with the previous one and returns whether motion was
// detected and the percentage of pixels that changed. The first frame only
// sets the baseline.
func (m *MotionGate) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()
	changed := float64(nonZero) / float64(total) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame and the activity clock. Used whenever the
// camera is reopened.
func (m *MotionGate) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
	m.lastActive = time.Time{}
}

// Close releases the baseline frame.
func (m *MotionGate) Close() {
	m.Reset()
}
