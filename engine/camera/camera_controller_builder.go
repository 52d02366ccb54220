package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: the orbit radius
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.radius = radius
	}
}

// WithAngles sets the initial eye direction on the orbit sphere.
//
// Parameters:
//   - azimuth: turn around world Y in radians, 0 places the eye on +Z of the target
//   - elevation: tilt above the horizontal plane in radians
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithAngles(azimuth, elevation float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.azimuth = azimuth
		cc.elevation = elevation
	}
}

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: the point the camera looks at
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = target
	}
}

// WithRadiusBounds limits how close and how far Zoom and Frame may place the eye.
//
// Parameters:
//   - min: smallest radius
//   - max: largest radius
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minRadius, cc.maxRadius = min, max
	}
}

// WithElevationBounds limits the tilt reachable by Orbit.
//
// Parameters:
//   - min: lowest elevation in radians
//   - max: highest elevation in radians
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithElevationBounds(min, max float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minElevation, cc.maxElevation = min, max
	}
}

// WithSensitivity sets how far pointer drags move the camera.
//
// Parameters:
//   - orbit: radians turned per pixel of Drag
//   - pan: view plane distance per pixel of DragPan, as a fraction of the radius
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithSensitivity(orbit, pan float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.orbitSensitivity, cc.panSensitivity = orbit, pan
	}
}

// WithZoomSpeed sets the fraction of the radius covered by one scroll step.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}
