package layout

import (
	"math"
	"testing"

	"github.com/ayusman/hearttree/internal/geom"
	"github.com/ayusman/hearttree/internal/scene"
)

var (
	gathered  = scene.Snapshot{State: scene.Gathered, Focused: scene.NoFocus}
	scattered = scene.Snapshot{State: scene.Scattered, Focused: scene.NoFocus}
	frontCam  = scene.OrbitCamera(0, scene.CameraHeight)
)

func TestEngine_StartsGathered(t *testing.T) {
	e := NewEngine(500, 1)

	if e.Count() != 500 {
		t.Fatalf("expected 500 particles, got %d", e.Count())
	}
	for i := 0; i < e.Count(); i++ {
		if e.Position(i) != e.Record(i).Gathered {
			t.Fatalf("particle %d does not start at its gathered target", i)
		}
	}
}

func TestEngine_ConvergesToScattered(t *testing.T) {
	e := NewEngine(300, 2)

	for i := 0; i < 600; i++ {
		e.Step(1.0/60, scattered, frontCam)
	}

	for i := 0; i < e.Count(); i++ {
		d := geom.Distance(e.Position(i), e.Record(i).Scattered)
		if d > 1e-3 {
			t.Fatalf("particle %d still %.4f from scattered target after 10s", i, d)
		}
	}
}

func TestEngine_StaggeredConvergence(t *testing.T) {
	e := NewEngine(300, 2)
	e.Step(0.3, scattered, frontCam)

	// Progress fraction differs per particle because rates differ.
	min, max := 1.0, 0.0
	for i := 0; i < e.Count(); i++ {
		r := e.Record(i)
		total := geom.Distance(r.Gathered, r.Scattered)
		if total < 1e-6 {
			continue
		}
		progress := 1 - geom.Distance(e.Position(i), r.Scattered)/total
		min = math.Min(min, progress)
		max = math.Max(max, progress)
	}
	if max-min < 0.1 {
		t.Errorf("expected staggered progress, spread was only %.3f", max-min)
	}
}

func TestEngine_InterruptedFlipHasNoJump(t *testing.T) {
	e := NewEngine(200, 9)
	dt := 1.0 / 60

	for i := 0; i < 20; i++ {
		e.Step(dt, scattered, frontCam)
	}

	before := make([]geom.Vec3, e.Count())
	for i := range before {
		before[i] = e.Position(i)
	}

	// Flip back mid-flight.
	e.Step(dt, gathered, frontCam)

	for i := range before {
		r := e.Record(i)
		moved := geom.Distance(before[i], e.Position(i))
		remaining := geom.Distance(before[i], r.Gathered)
		limit := remaining*geom.ApproachFactor(r.Rate, dt) + 1e-9
		if moved > limit {
			t.Fatalf("particle %d jumped %.4f (limit %.4f)", i, moved, limit)
		}
		after := geom.Distance(e.Position(i), r.Gathered)
		if after > remaining+1e-9 {
			t.Fatalf("particle %d moved away from the new target", i)
		}
	}
}

func TestEngine_ResetRegenerates(t *testing.T) {
	e := NewEngine(100, 4)
	e.Step(0.5, scattered, frontCam)

	e.Reset(250)
	if e.Count() != 250 {
		t.Fatalf("expected 250 particles, got %d", e.Count())
	}

	fresh := GenerateParticles(250, 4)
	for i := 0; i < e.Count(); i++ {
		if e.Record(i) != fresh[i] {
			t.Fatalf("record %d not regenerated from scratch", i)
		}
		if e.Position(i) != fresh[i].Gathered {
			t.Fatalf("particle %d not reset to its gathered target", i)
		}
	}
}

func TestEngine_FrameAppearance(t *testing.T) {
	e := NewEngine(400, 6)
	frame := e.Step(0.1, scattered, frontCam)

	if frame.Seq != 1 {
		t.Errorf("expected first frame seq 1, got %d", frame.Seq)
	}
	if len(frame.Particles) != 400 {
		t.Fatalf("expected 400 transforms, got %d", len(frame.Particles))
	}

	for i, tr := range frame.Particles {
		r := e.Record(i)
		if tr.Scale <= 0 {
			t.Fatalf("particle %d: non-positive scale", i)
		}
		if r.HeartMember {
			// Heart members share the highlight hue: channel ratios match.
			ratio := tr.Color.G / tr.Color.R
			want := HeartTint.G / HeartTint.R
			if math.Abs(ratio-want) > 1e-9 {
				t.Fatalf("particle %d: heart member not using highlight tint", i)
			}
		}
	}

	// The same records in the gathered state use their category tint.
	frame = e.Step(0.1, gathered, frontCam)
	for i, tr := range frame.Particles {
		tint := Tint(e.Record(i).Category)
		if tint.R == 0 {
			continue
		}
		if math.Abs(tr.Color.G/tr.Color.R-tint.G/tint.R) > 1e-9 {
			t.Fatalf("particle %d: gathered color not using category tint", i)
		}
	}
}

func TestTwinkle_Range(t *testing.T) {
	r := GenerateParticles(50, 8)
	for _, rec := range r {
		for _, ts := range []float64{0, 0.3, 1.7, 42} {
			tw := Twinkle(rec, ts)
			if tw < 0 || tw > 1 {
				t.Fatalf("twinkle %f out of range", tw)
			}
		}
	}
}

func TestEngine_Photos(t *testing.T) {
	t.Run("slots follow the scene state", func(t *testing.T) {
		e := NewEngine(10, 1)
		e.SetPhotos([]string{"a", "b", "c"}, scene.Gathered)

		var frame *Frame
		for i := 0; i < 400; i++ {
			frame = e.Step(1.0/60, scattered, frontCam)
		}

		for i, p := range frame.Photos {
			slot := PhotoSlotFor(i, 3)
			if geom.Distance(p.Position, slot.Scattered) > 1e-3 {
				t.Errorf("photo %d not at its gallery slot", i)
			}
			if math.Abs(p.Scale-PhotoScaleGallery) > 1e-3 {
				t.Errorf("photo %d scale %.3f, want %.1f", i, p.Scale, PhotoScaleGallery)
			}
			// Gallery photos face away from the centre.
			if p.Facing.X*slot.Scattered.X+p.Facing.Z*slot.Scattered.Z <= 0 {
				t.Errorf("photo %d does not face outward", i)
			}
		}
	})

	t.Run("focused photo moves in front of the camera", func(t *testing.T) {
		e := NewEngine(10, 1)
		e.SetPhotos([]string{"a", "b", "c", "d"}, scene.Scattered)

		snap := scene.Snapshot{State: scene.Scattered, Focused: 2}
		cam := scene.OrbitCamera(1.0, scene.CameraHeight)

		var frame *Frame
		for i := 0; i < 400; i++ {
			frame = e.Step(1.0/60, snap, cam)
		}

		p := frame.Photos[2]
		if !p.Focused {
			t.Fatal("expected photo 2 to be marked focused")
		}
		if geom.Distance(p.Position, FocusPoint(cam)) > 1e-3 {
			t.Errorf("focused photo at %+v, want %+v", p.Position, FocusPoint(cam))
		}
		// Facing points back at the camera.
		toCam := cam.Position.Sub(p.Position).Normalize()
		dot := toCam.X*p.Facing.X + toCam.Y*p.Facing.Y + toCam.Z*p.Facing.Z
		if dot < 0.999 {
			t.Errorf("focused photo does not face the camera (dot=%.4f)", dot)
		}
		for i, other := range frame.Photos {
			if i != 2 && other.Focused {
				t.Errorf("photo %d unexpectedly focused", i)
			}
		}
	})

	t.Run("removal keeps survivors in place", func(t *testing.T) {
		e := NewEngine(10, 1)
		e.SetPhotos([]string{"a", "b", "c", "d"}, scene.Gathered)
		frame := e.Step(0.2, scattered, frontCam)

		cPos := frame.Photos[2].Position
		e.SetPhotos([]string{"a", "b", "d"}, scene.Scattered)

		frame = e.Step(0, scattered, frontCam)
		if frame.Photos[2].ID != "d" {
			t.Fatalf("expected d renumbered to index 2, got %s", frame.Photos[2].ID)
		}
		dPos := frame.Photos[2].Position
		if geom.Distance(dPos, cPos) < 1e-9 {
			t.Error("d should not inherit c's position")
		}
		if e.PhotoCount() != 3 {
			t.Errorf("expected 3 photos, got %d", e.PhotoCount())
		}
	})

	t.Run("new photos appear at their slot", func(t *testing.T) {
		e := NewEngine(10, 1)
		e.SetPhotos([]string{"a"}, scene.Scattered)
		frame := e.Step(0, scattered, frontCam)

		want := PhotoSlotFor(0, 1).Scattered
		if geom.Distance(frame.Photos[0].Position, want) > 1e-9 {
			t.Errorf("new photo at %+v, want %+v", frame.Photos[0].Position, want)
		}
	})
}

func TestPhotoSlotFor(t *testing.T) {
	slots := PhotoSlots(10)
	for i, s := range slots {
		want := scene.SlotAngle(i, 10)
		if math.Abs(s.Angle-want) > 1e-12 {
			t.Errorf("slot %d angle %f, want %f", i, s.Angle, want)
		}
		if math.Abs(math.Hypot(s.Scattered.X, s.Scattered.Z)-GalleryRadius) > 1e-9 {
			t.Errorf("slot %d not on the gallery circle", i)
		}
		got := geom.NormalizeAngle(math.Atan2(s.Scattered.X, s.Scattered.Z))
		if geom.AngularDistance(got, want) > 1e-9 {
			t.Errorf("slot %d placed at angle %f, want %f", i, got, want)
		}
	}

	// Slot 0 sits on the +Z axis, in front of the default camera.
	if slots[0].Scattered.X != 0 || slots[0].Scattered.Z <= 0 {
		t.Errorf("expected slot 0 on +Z, got %+v", slots[0].Scattered)
	}

	if (PhotoSlotFor(0, 0) != PhotoSlot{}) {
		t.Error("expected zero slot for empty list")
	}
}
