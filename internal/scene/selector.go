package scene

import (
	"math"

	"github.com/ayusman/hearttree/internal/geom"
)

// SlotAngle returns the fixed angular position of photo slot index out of
// count: index × 2π/count.
func SlotAngle(index, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(index) * (2 * math.Pi / float64(count))
}

// Select returns the index of the evenly spaced photo slot closest to the
// given view angle, measured along the shorter arc. Ties go to the lower
// index. It returns (NoFocus, false) when count is zero.
func Select(viewAngle float64, count int) (int, bool) {
	if count <= 0 {
		return NoFocus, false
	}
	angles := make([]float64, count)
	for i := range angles {
		angles[i] = SlotAngle(i, count)
	}
	return selectAngles(viewAngle, angles)
}

// selectAngles is Select over arbitrary slot angles.
func selectAngles(viewAngle float64, slots []float64) (int, bool) {
	if len(slots) == 0 {
		return NoFocus, false
	}

	best := 0
	bestDiff := math.Inf(1)
	for i, a := range slots {
		d := geom.AngularDistance(viewAngle, a)
		if d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best, true
}
