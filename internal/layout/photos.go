package layout

import (
	"math"

	"github.com/ayusman/hearttree/internal/geom"
	"github.com/ayusman/hearttree/internal/scene"
)

// Photo placement.
const (
	PhotoRibbonTurns = 2.0
	PhotoRibbonGap   = 0.8
	GalleryRadius    = 12.0
	GalleryHeight    = 1.0
	FocusDistance    = 8.0

	PhotoRate          = 3.5
	PhotoScaleGathered = 0.9
	PhotoScaleGallery  = 1.6
	PhotoScaleFocused  = 3.0
)

// PhotoSlot is the pair of targets for one photo, derived from its index
// and the photo count.
type PhotoSlot struct {
	Gathered  geom.Vec3 `json:"gathered"`
	Scattered geom.Vec3 `json:"scattered"`
	Angle     float64   `json:"angle"`
}

// PhotoSlotFor returns the slot of photo index out of count.
//
// Gathered photos hang on a ribbon that winds up the tree just outside the
// cone. Scattered photos form a gallery circle whose angular positions are
// the ones the selector picks from.
func PhotoSlotFor(index, count int) PhotoSlot {
	if count <= 0 {
		return PhotoSlot{}
	}

	t := (float64(index) + 0.5) / float64(count)
	y := TreeBase + TreeHeight*(0.12+0.7*t)
	ribbonAngle := t * PhotoRibbonTurns * 2 * math.Pi
	ribbonRadius := ConeRadius(y) + PhotoRibbonGap

	angle := scene.SlotAngle(index, count)

	return PhotoSlot{
		Gathered: geom.Vec3{
			X: math.Sin(ribbonAngle) * ribbonRadius,
			Y: y,
			Z: math.Cos(ribbonAngle) * ribbonRadius,
		},
		Scattered: geom.Vec3{
			X: math.Sin(angle) * GalleryRadius,
			Y: GalleryHeight,
			Z: math.Cos(angle) * GalleryRadius,
		},
		Angle: angle,
	}
}

// PhotoSlots returns the slots for a list of count photos.
func PhotoSlots(count int) []PhotoSlot {
	slots := make([]PhotoSlot, count)
	for i := range slots {
		slots[i] = PhotoSlotFor(i, count)
	}
	return slots
}

// FocusPoint returns the point FocusDistance in front of the camera.
func FocusPoint(cam scene.Camera) geom.Vec3 {
	return cam.Position.Add(cam.Forward().Scale(FocusDistance))
}

// photoTarget returns the position, scale and facing a photo moves toward.
// A focused photo goes in front of the camera and faces it regardless of
// scene state. Others face away from the Y axis of their formation: off the
// trunk on the tree, toward the orbiting camera in the gallery.
func photoTarget(slot PhotoSlot, state scene.State, focused bool, cam scene.Camera) (geom.Vec3, float64, geom.Vec3) {
	if focused {
		return FocusPoint(cam), PhotoScaleFocused, cam.Forward().Scale(-1)
	}

	if state == scene.Scattered {
		return slot.Scattered, PhotoScaleGallery, radial(slot.Scattered)
	}
	return slot.Gathered, PhotoScaleGathered, radial(slot.Gathered)
}

// radial returns the horizontal unit direction from the Y axis to p.
func radial(p geom.Vec3) geom.Vec3 {
	return geom.Vec3{X: p.X, Z: p.Z}.Normalize()
}
