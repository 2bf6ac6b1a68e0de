package layout

import (
	"github.com/ayusman/hearttree/internal/geom"
	"github.com/ayusman/hearttree/internal/scene"
)

// Transform is what the renderer draws for one particle.
type Transform struct {
	Position geom.Vec3  `json:"p"`
	Scale    float64    `json:"s"`
	Color    geom.Color `json:"c"`
}

// PhotoTransform is what the renderer draws for one photo.
type PhotoTransform struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	Position geom.Vec3 `json:"position"`
	Scale    float64   `json:"scale"`
	Facing   geom.Vec3 `json:"facing"`
	Focused  bool      `json:"focused"`
}

// Frame is the complete per-frame output.
type Frame struct {
	Seq       uint64           `json:"seq"`
	Elapsed   float64          `json:"elapsed"`
	State     scene.State      `json:"state"`
	Focused   int              `json:"focused"`
	Camera    scene.Camera     `json:"camera"`
	Particles []Transform      `json:"particles"`
	Photos    []PhotoTransform `json:"photos"`
}

type photoState struct {
	id       string
	position geom.Vec3
	scale    float64
}

// Engine owns the particle arena and the current rendered positions.
// Records are immutable and indexed by particle id; only positions advance
// each frame. Appearance is recomputed from (record, state, clock).
//
// An Engine is not safe for concurrent use.
type Engine struct {
	seed      uint64
	records   []ParticleRecord
	positions []geom.Vec3
	photos    []photoState
	elapsed   float64
	seq       uint64
}

// NewEngine creates an engine with count particles.
func NewEngine(count int, seed uint64) *Engine {
	e := &Engine{seed: seed}
	e.Reset(count)
	return e
}

// Reset regenerates the whole particle set for count. Particles start at
// their gathered targets. Photos are kept.
func (e *Engine) Reset(count int) {
	e.records = GenerateParticles(count, e.seed)
	e.positions = make([]geom.Vec3, len(e.records))
	for i, r := range e.records {
		e.positions[i] = r.Gathered
	}
}

// Count returns the particle count.
func (e *Engine) Count() int {
	return len(e.records)
}

// Record returns particle id's record.
func (e *Engine) Record(id int) ParticleRecord {
	return e.records[id]
}

// Position returns particle id's current interpolated position.
func (e *Engine) Position(id int) geom.Vec3 {
	return e.positions[id]
}

// PhotoCount returns the number of photo slots.
func (e *Engine) PhotoCount() int {
	return len(e.photos)
}

// SetPhotos replaces the photo list. Photos that survive keep their current
// position so a renumbering never makes them jump; new photos appear at
// their slot for the given state.
func (e *Engine) SetPhotos(ids []string, state scene.State) {
	prev := make(map[string]photoState, len(e.photos))
	for _, p := range e.photos {
		prev[p.id] = p
	}

	next := make([]photoState, len(ids))
	for i, id := range ids {
		if p, ok := prev[id]; ok {
			next[i] = p
			continue
		}
		slot := PhotoSlotFor(i, len(ids))
		pos, scale, _ := photoTarget(slot, state, false, scene.Camera{})
		next[i] = photoState{id: id, position: pos, scale: scale}
	}
	e.photos = next
}

// Step advances the interpolation by dt seconds and returns the frame.
// Each particle covers 1-e^(-rate·dt) of its remaining distance, so an
// interrupted transition resumes from wherever the particle is.
func (e *Engine) Step(dt float64, snap scene.Snapshot, cam scene.Camera) *Frame {
	if dt < 0 {
		dt = 0
	}
	e.elapsed += dt
	e.seq++

	scattered := snap.State == scene.Scattered

	frame := &Frame{
		Seq:       e.seq,
		Elapsed:   e.elapsed,
		State:     snap.State,
		Focused:   snap.Focused,
		Camera:    cam,
		Particles: make([]Transform, len(e.records)),
		Photos:    make([]PhotoTransform, len(e.photos)),
	}

	for i, r := range e.records {
		f := geom.ApproachFactor(r.Rate, dt)
		e.positions[i] = e.positions[i].Lerp(r.Target(scattered), f)

		scale, color := Appearance(r, scattered, e.elapsed)
		frame.Particles[i] = Transform{
			Position: e.positions[i].Add(sway(r, e.elapsed)),
			Scale:    scale,
			Color:    color,
		}
	}

	f := geom.ApproachFactor(PhotoRate, dt)
	for i := range e.photos {
		p := &e.photos[i]
		focused := snap.Focused == i && scattered
		slot := PhotoSlotFor(i, len(e.photos))
		target, scale, facing := photoTarget(slot, snap.State, focused, cam)

		p.position = p.position.Lerp(target, f)
		p.scale += (scale - p.scale) * f

		frame.Photos[i] = PhotoTransform{
			ID:       p.id,
			Index:    i,
			Position: p.position,
			Scale:    p.scale,
			Facing:   facing,
			Focused:  focused,
		}
	}

	return frame
}
