// Package detector provides hand detection interfaces and types for gesture input.
package detector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// PalmCenter is the landmark used as a stable palm reference. The middle
// finger knuckle barely moves when the fingers curl or spread.
const PalmCenter = MiddleMCP

// landmarkMargin is how far outside the normalized 0..1 frame a landmark
// may sit before the sample is considered corrupt. MediaPipe extrapolates
// slightly past the frame edge for partially visible hands.
const landmarkMargin = 0.5

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// X and Y are normalized to the frame (0..1, y grows downward); Z is depth
// relative to the wrist.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// UnmarshalJSON decodes a hand and rejects landmark sets that are not
// exactly NumLandmarks long.
func (h *HandLandmarks) UnmarshalJSON(data []byte) error {
	var raw jsonHand
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lm, ok := raw.toHandLandmarks()
	if !ok {
		return fmt.Errorf("hand has %d landmarks, want %d", len(raw.Points), NumLandmarks)
	}
	*h = lm
	return nil
}

// Distance3D calculates the Euclidean distance between two 3D points.
func Distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Valid reports whether every landmark is finite and lies within the
// normalized frame (with a small margin). A nil hand is not valid.
func (h *HandLandmarks) Valid() bool {
	if h == nil {
		return false
	}

	for _, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return false
		}
		if p.X < -landmarkMargin || p.X > 1+landmarkMargin {
			return false
		}
		if p.Y < -landmarkMargin || p.Y > 1+landmarkMargin {
			return false
		}
	}

	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Translate returns a copy of the hand with every landmark shifted by
// (dx, dy) in normalized frame units.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
