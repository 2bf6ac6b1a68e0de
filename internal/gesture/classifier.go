// Package gesture turns hand landmark samples into discrete gesture labels
// and a continuous directional signal.
package gesture

import (
	"math"
	"time"

	"github.com/ayusman/hearttree/internal/detector"
	"github.com/ayusman/hearttree/internal/log"
)

// Label is a discrete hand gesture.
type Label string

const (
	// None means no hand, or a hand shape that is not a gesture.
	None Label = "none"
	// Fist is a closed hand: no fingers open.
	Fist Label = "fist"
	// Open is a flat hand: all four fingers open.
	Open Label = "open"
	// Pinch is the thumb tip touching the index tip while the hand is still.
	Pinch Label = "pinch"
)

// DirectionalRange is the magnitude bound of each Directional axis.
const DirectionalRange = 1.5

// Directional is the palm position mapped to [-1.5, 1.5] on both axes,
// mirrored horizontally so moving the hand right moves X right on screen.
type Directional struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the classifier output for one sample.
type State struct {
	Label         Label       `json:"label"`
	Directional   Directional `json:"directional"`
	Present       bool        `json:"present"`
	MovingFast    bool        `json:"moving_fast"`
	OpenFingers   int         `json:"open_fingers"`
	PinchDistance float64     `json:"pinch_distance"`
}

// Config holds the empirically tuned classifier thresholds.
type Config struct {
	// PinchThreshold is the maximum 3D thumb-to-index distance for a pinch,
	// in normalized frame units.
	PinchThreshold float64

	// FastMoveSpeed is the palm speed in frame widths per second above which
	// pinches are suppressed.
	FastMoveSpeed float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		PinchThreshold: 0.05,
		FastMoveSpeed:  1.0,
	}
}

// fingers lists the (tip, PIP joint) landmark pairs of the four non-thumb
// fingers.
var fingers = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// Classifier labels one hand sample at a time. It remembers only the last
// palm position and timestamp for the velocity gate.
//
// A Classifier is not safe for concurrent use.
type Classifier struct {
	config   Config
	lastPos  detector.Point3D
	lastTime time.Time
	hasLast  bool
}

// NewClassifier creates a Classifier. Non-positive thresholds are replaced
// by their defaults.
func NewClassifier(config Config) *Classifier {
	defaults := DefaultConfig()
	if config.PinchThreshold <= 0 {
		config.PinchThreshold = defaults.PinchThreshold
	}
	if config.FastMoveSpeed <= 0 {
		config.FastMoveSpeed = defaults.FastMoveSpeed
	}
	return &Classifier{config: config}
}

// Config returns the thresholds in use.
func (c *Classifier) Config() Config {
	return c.config
}

// Reset forgets the velocity memory.
func (c *Classifier) Reset() {
	c.hasLast = false
	c.lastTime = time.Time{}
	c.lastPos = detector.Point3D{}
}

// Classify labels a hand sample observed at now. A nil or malformed hand is
// treated as absence: the label is None and the velocity memory is reset so
// the next valid sample cannot register a jump.
func (c *Classifier) Classify(hand *detector.HandLandmarks, now time.Time) State {
	if hand == nil {
		c.Reset()
		return State{Label: None}
	}
	if !hand.Valid() {
		log.Debug("ignoring malformed hand sample", "handedness", hand.Handedness)
		c.Reset()
		return State{Label: None}
	}

	palm := hand.Points[detector.PalmCenter]

	fast := false
	if c.hasLast {
		dt := now.Sub(c.lastTime).Seconds()
		if dt > 0 {
			speed := math.Hypot(palm.X-c.lastPos.X, palm.Y-c.lastPos.Y) / dt
			fast = speed > c.config.FastMoveSpeed
		}
	}
	c.lastPos = palm
	c.lastTime = now
	c.hasLast = true

	open := OpenFingers(hand)
	pinch := detector.Distance3D(hand.Points[detector.ThumbTip], hand.Points[detector.IndexTip])

	label := None
	switch {
	case pinch < c.config.PinchThreshold && !fast:
		label = Pinch
	case open == 0:
		label = Fist
	case open >= 4:
		label = Open
	}

	return State{
		Label:         label,
		Directional:   DirectionalFrom(palm),
		Present:       true,
		MovingFast:    fast,
		OpenFingers:   open,
		PinchDistance: pinch,
	}
}

// OpenFingers counts the non-thumb fingers whose tip is above (smaller y
// than) its PIP joint.
func OpenFingers(hand *detector.HandLandmarks) int {
	n := 0
	for _, f := range fingers {
		if hand.Points[f[0]].Y < hand.Points[f[1]].Y {
			n++
		}
	}
	return n
}

// DirectionalFrom maps a normalized palm position to the directional signal.
// The camera image is mirrored relative to the screen, so X is flipped.
func DirectionalFrom(p detector.Point3D) Directional {
	scale := 2 * DirectionalRange
	return Directional{
		X: clamp((0.5-p.X)*scale, -DirectionalRange, DirectionalRange),
		Y: clamp((p.Y-0.5)*scale, -DirectionalRange, DirectionalRange),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
