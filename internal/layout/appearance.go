package layout

import (
	"math"

	"github.com/ayusman/hearttree/internal/geom"
)

// Category tints and the heart highlight.
var (
	tints = map[Category]geom.Color{
		Core:      {R: 1.00, G: 0.82, B: 0.40},
		Structure: {R: 0.12, G: 0.62, B: 0.28},
		Ribbon:    {R: 0.92, G: 0.12, B: 0.18},
		Ornament:  {R: 1.00, G: 0.94, B: 0.78},
	}

	// HeartTint replaces the category tint of heart members while scattered.
	HeartTint = geom.Color{R: 1.00, G: 0.28, B: 0.52}
)

// Idle sway applied on top of the interpolated position.
const (
	swayAmplitude = 0.06
	swaySpeed     = 0.9
)

// Tint returns the base tint of a category.
func Tint(c Category) geom.Color {
	return tints[c]
}

// Twinkle returns the record's twinkle scalar in [0, 1] at elapsed seconds.
func Twinkle(r ParticleRecord, elapsed float64) float64 {
	return 0.5 + 0.5*math.Sin(elapsed*r.TwinkleSpeed+r.TwinkleOffset)
}

// Appearance returns the scale and color of a particle for the scene state.
// It is a pure function of the record, the state and the clock.
func Appearance(r ParticleRecord, scattered bool, elapsed float64) (float64, geom.Color) {
	tw := Twinkle(r, elapsed)
	scale := r.SizeScale * (0.85 + 0.3*tw)
	intensity := r.BrightnessScale * (0.75 + 0.5*tw)

	if !scattered {
		return scale, Tint(r.Category).Scale(intensity)
	}

	if r.HeartMember {
		return scale * 1.1, HeartTint.Scale(intensity * 1.15)
	}
	return scale * 0.7, Tint(r.Category).Scale(intensity * 0.55)
}

// sway returns the small idle offset that keeps particles from sitting
// perfectly still once they have converged.
func sway(r ParticleRecord, elapsed float64) geom.Vec3 {
	return geom.Vec3{Y: swayAmplitude * math.Sin(elapsed*swaySpeed+r.Phase)}
}
