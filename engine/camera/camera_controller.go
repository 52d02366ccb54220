package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController provides the eye position and look-at target of a Camera.
//
// The default implementation orbits a target on a sphere: azimuth turns around the world Y
// axis (0 looks down -Z from +Z), elevation tilts up from the horizontal plane, and radius
// is the distance to the target.
type CameraController interface {
	// Position returns the eye position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the target
	Target() mgl32.Vec3

	// SetTarget moves the orbit center, keeping radius and angles.
	//
	// Parameters:
	//   - target: the new target
	SetTarget(target mgl32.Vec3)

	// Orbit turns the eye around the target. Elevation is clamped to the configured range.
	//
	// Parameters:
	//   - dAzimuth: change of azimuth in radians
	//   - dElevation: change of elevation in radians
	Orbit(dAzimuth, dElevation float32)

	// Drag orbits by a pointer movement in pixels, scaled by the orbit sensitivity.
	//
	// Parameters:
	//   - dx: horizontal movement
	//   - dy: vertical movement
	Drag(dx, dy float32)

	// DragPan pans by a pointer movement in pixels. The distance covered grows with the radius
	// so the scene follows the pointer at every zoom level.
	//
	// Parameters:
	//   - dx: horizontal movement, positive to the right
	//   - dy: vertical movement, positive downward
	DragPan(dx, dy float32)

	// Zoom moves the eye toward the target by delta scroll steps. Radius is clamped.
	//
	// Parameters:
	//   - delta: scroll steps, positive to move closer
	Zoom(delta float32)

	// Pan moves the target and eye together in the view plane.
	//
	// Parameters:
	//   - dx: movement along the camera's right axis
	//   - dy: movement along the camera's up axis
	Pan(dx, dy float32)

	// Frame places the target at a sphere's center and backs off until the sphere fits
	// a vertical field of view.
	//
	// Parameters:
	//   - center: the sphere center
	//   - radius: the sphere radius
	//   - fov: the vertical field of view in radians
	Frame(center mgl32.Vec3, radius, fov float32)

	// Radius returns the distance from the eye to the target.
	//
	// Returns:
	//   - float32: the radius
	Radius() float32

	// SetRadius sets the distance to the target, clamped to the configured range.
	//
	// Parameters:
	//   - radius: the distance
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle in radians.
	//
	// Returns:
	//   - float32: the azimuth
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	//
	// Returns:
	//   - float32: the elevation
	Elevation() float32
}
