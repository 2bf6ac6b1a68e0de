package scene

import (
	"math"

	"github.com/ayusman/hearttree/internal/geom"
	"github.com/ayusman/hearttree/internal/gesture"
)

// Orbit camera geometry. The camera circles the Y axis looking at the
// origin.
const (
	// YawScale converts the directional X signal (±1.5) to a yaw in
	// radians (±3).
	YawScale = 2.0
	// OrbitRadius is the camera's distance from the Y axis.
	OrbitRadius = 24.0
	// CameraHeight is the camera's resting height.
	CameraHeight = 2.0
	// PitchScale converts the directional Y signal to a height offset.
	PitchScale = 3.0
)

// Camera is the orbit camera pose handed to the renderer.
type Camera struct {
	Yaw      float64   `json:"yaw"`
	Position geom.Vec3 `json:"position"`
	Target   geom.Vec3 `json:"target"`
}

// CameraYaw maps the directional signal to a camera yaw. Rotation control
// and pinch selection both go through this function so the photo picked is
// always the one the camera is looking at.
func CameraYaw(d gesture.Directional) float64 {
	return d.X * YawScale
}

// CameraHeightFor maps the directional signal to a camera height. Raising
// the hand (smaller Y) raises the camera.
func CameraHeightFor(d gesture.Directional) float64 {
	return CameraHeight - d.Y*PitchScale
}

// OrbitCamera returns the camera pose for a yaw and height.
func OrbitCamera(yaw, height float64) Camera {
	return Camera{
		Yaw: yaw,
		Position: geom.Vec3{
			X: math.Sin(yaw) * OrbitRadius,
			Y: height,
			Z: math.Cos(yaw) * OrbitRadius,
		},
	}
}

// Forward returns the unit direction the camera looks along.
func (c Camera) Forward() geom.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

// ViewAngle returns the azimuth of the camera around the Y axis, computed
// with atan2 from its position and normalized to [0, 2π). The photo slot at
// this angle sits directly between the camera and the origin.
func ViewAngle(c Camera) float64 {
	return geom.NormalizeAngle(math.Atan2(c.Position.X, c.Position.Z))
}

// DirectionalViewAngle is ViewAngle for the camera the directional signal
// would produce.
func DirectionalViewAngle(d gesture.Directional) float64 {
	return ViewAngle(OrbitCamera(CameraYaw(d), CameraHeightFor(d)))
}
