// Package layout assigns every particle and photo a gathered (tree) and a
// scattered (heart / gallery) target and interpolates rendered transforms
// between them frame by frame.
package layout

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ayusman/hearttree/internal/geom"
)

// Category is the visual role of a particle in the tree.
type Category int

const (
	// Core particles fill a thin column around the trunk axis.
	Core Category = iota
	// Structure particles make up the bulk of the spiral arms.
	Structure
	// Ribbon particles form the outer garland on every sixth arm slot.
	Ribbon
	// Ornament particles are the large baubles on every thirtieth index.
	Ornament
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case Core:
		return "core"
	case Structure:
		return "structure"
	case Ribbon:
		return "ribbon"
	case Ornament:
		return "ornament"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Tree and scatter geometry.
const (
	TreeHeight  = 14.0
	TreeBase    = -7.0
	TreeRadius  = 5.5
	SpiralArms  = 5
	SpiralTurns = 3.5

	CoreFraction  = 0.15
	CoreRadius    = 0.5
	RibbonEvery   = 6
	OrnamentEvery = 30

	HeartProbability = 0.6
	HeartScale       = 5.0
	HeartOffsetY     = 1.0
	HeartAttempts    = 200
	heartBound       = 1.5

	ShellInner = 10.0
	ShellOuter = 18.0
)

// categoryStyle holds the per-category base size and twinkle frequency.
var categoryStyle = map[Category]struct {
	size    float64
	twinkle float64
}{
	Core:      {size: 0.8, twinkle: 1.2},
	Structure: {size: 1.0, twinkle: 2.0},
	Ribbon:    {size: 0.9, twinkle: 3.5},
	Ornament:  {size: 2.2, twinkle: 0.8},
}

// ParticleRecord is one particle's immutable layout: both targets plus the
// per-particle animation parameters.
type ParticleRecord struct {
	Gathered        geom.Vec3 `json:"gathered"`
	Scattered       geom.Vec3 `json:"scattered"`
	Category        Category  `json:"category"`
	HeartMember     bool      `json:"heart_member"`
	SizeScale       float64   `json:"size_scale"`
	BrightnessScale float64   `json:"brightness_scale"`
	Phase           float64   `json:"phase"`
	TwinkleSpeed    float64   `json:"twinkle_speed"`
	TwinkleOffset   float64   `json:"twinkle_offset"`
	Rate            float64   `json:"rate"`
}

// Target returns the record's target position for the scattered flag.
func (r ParticleRecord) Target(scattered bool) geom.Vec3 {
	if scattered {
		return r.Scattered
	}
	return r.Gathered
}

// CoreCount returns how many of n particles are core particles.
func CoreCount(n int) int {
	return int(math.Floor(float64(n) * CoreFraction))
}

// CategoryFor returns the category of particle i out of n. Ornament wins
// over ribbon, and both win over structure.
func CategoryFor(i, n int) Category {
	core := CoreCount(n)
	if i < core {
		return Core
	}
	if i%OrnamentEvery == 0 {
		return Ornament
	}
	if (i-core)%RibbonEvery == 0 {
		return Ribbon
	}
	return Structure
}

// ConeRadius returns the tree silhouette radius at height y.
func ConeRadius(y float64) float64 {
	t := geom.Clamp((y-TreeBase)/TreeHeight, 0, 1)
	return TreeRadius * (1 - t)
}

// GenerateParticles builds n particle records. The result depends only on
// n and seed.
func GenerateParticles(n int, seed uint64) []ParticleRecord {
	if n <= 0 {
		return nil
	}

	r := rand.New(rand.NewPCG(seed, uint64(n)))
	core := CoreCount(n)
	arm := n - core

	records := make([]ParticleRecord, n)
	for i := range records {
		cat := CategoryFor(i, n)
		style := categoryStyle[cat]

		var gathered geom.Vec3
		if cat == Core {
			gathered = corePosition(r)
		} else {
			gathered = spiralPosition(r, i, i-core, arm, cat)
		}

		heart := r.Float64() < HeartProbability
		var scattered geom.Vec3
		if heart {
			scattered = heartPosition(r)
		} else {
			scattered = shellPosition(r)
		}

		records[i] = ParticleRecord{
			Gathered:        gathered,
			Scattered:       scattered,
			Category:        cat,
			HeartMember:     heart,
			SizeScale:       style.size * (0.6 + 0.8*r.Float64()),
			BrightnessScale: 0.7 + 0.6*r.Float64(),
			Phase:           r.Float64() * 2 * math.Pi,
			TwinkleSpeed:    style.twinkle * (0.8 + 0.4*r.Float64()),
			TwinkleOffset:   r.Float64() * 2 * math.Pi,
			Rate:            1.2 + 2.0*r.Float64(),
		}
	}

	return records
}

// corePosition fills a thin cylinder around the trunk axis.
func corePosition(r *rand.Rand) geom.Vec3 {
	radius := CoreRadius * math.Sqrt(r.Float64())
	angle := r.Float64() * 2 * math.Pi
	y := TreeBase + r.Float64()*TreeHeight*0.9
	return geom.Vec3{
		X: math.Cos(angle) * radius,
		Y: y,
		Z: math.Sin(angle) * radius,
	}
}

// spiralPosition places particle i (ordinal j among the m arm particles) on
// its spiral arm, climbing the cone as j grows.
func spiralPosition(r *rand.Rand, i, j, m int, cat Category) geom.Vec3 {
	t := float64(j) / float64(m)
	armOffset := float64(i%SpiralArms) * 2 * math.Pi / SpiralArms
	angle := armOffset + t*SpiralTurns*2*math.Pi

	y := TreeBase + t*TreeHeight
	cone := ConeRadius(y)

	var radius float64
	switch cat {
	case Ribbon:
		radius = cone*1.05 + 0.2
		angle += (r.Float64() - 0.5) * 0.05
	case Ornament:
		radius = cone
		angle += (r.Float64() - 0.5) * 0.3
	default:
		radius = cone * (0.55 + 0.45*r.Float64())
		angle += (r.Float64() - 0.5) * 0.4
		y += (r.Float64() - 0.5) * 0.3
	}

	return geom.Vec3{
		X: math.Cos(angle) * radius,
		Y: y,
		Z: math.Sin(angle) * radius,
	}
}

// InHeart reports whether p (in unit heart space, y up) lies inside the
// heart surface (x² + 9/4·z² + y² − 1)³ − x²·y³ − 9/80·z²·y³ ≤ 0.
func InHeart(p geom.Vec3) bool {
	x2, y3, z2 := p.X*p.X, p.Y*p.Y*p.Y, p.Z*p.Z
	a := x2 + 2.25*z2 + p.Y*p.Y - 1
	return a*a*a-x2*y3-0.1125*z2*y3 <= 0
}

// heartPosition rejection-samples a point inside the heart. After
// HeartAttempts misses it falls back to the heart's origin.
func heartPosition(r *rand.Rand) geom.Vec3 {
	p := geom.Vec3{}
	for attempt := 0; attempt < HeartAttempts; attempt++ {
		c := geom.Vec3{
			X: (r.Float64()*2 - 1) * heartBound,
			Y: (r.Float64()*2 - 1) * heartBound,
			Z: (r.Float64()*2 - 1) * heartBound,
		}
		if InHeart(c) {
			p = c
			break
		}
	}
	return geom.Vec3{
		X: p.X * HeartScale,
		Y: p.Y*HeartScale + HeartOffsetY,
		Z: p.Z * HeartScale,
	}
}

// shellPosition picks a uniformly random direction at a radius between
// ShellInner and ShellOuter.
func shellPosition(r *rand.Rand) geom.Vec3 {
	z := r.Float64()*2 - 1
	angle := r.Float64() * 2 * math.Pi
	ring := math.Sqrt(1 - z*z)
	radius := ShellInner + r.Float64()*(ShellOuter-ShellInner)
	return geom.Vec3{
		X: ring * math.Cos(angle) * radius,
		Y: z * radius,
		Z: ring * math.Sin(angle) * radius,
	}
}
