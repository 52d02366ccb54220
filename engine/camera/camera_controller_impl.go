package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSensitivity float32
	panSensitivity   float32
	zoomSpeed        float32
}

var _ CameraController = &cameraControllerImpl{}

// NewOrbitController creates an orbit CameraController looking at the origin from radius 10.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the new controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:        &sync.Mutex{},
		radius:    10,
		elevation: math32.Pi / 6,

		minRadius:    0.01,
		maxRadius:    10000,
		minElevation: -math32.Pi/2 + 0.01,
		maxElevation: math32.Pi/2 - 0.01,

		orbitSensitivity: 0.005,
		panSensitivity:   0.0015,
		zoomSpeed:        0.1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
	return cc
}

// updatePosition places the eye on the orbit sphere. Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

// viewAxes returns the camera's right and up axes. Caller must hold the mutex.
func (cc *cameraControllerImpl) viewAxes() (right, up mgl32.Vec3) {
	forward := cc.target.Sub(cc.position)
	if forward.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	forward = forward.Normalize()
	right = forward.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() < 1e-8 {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	return right, right.Cross(forward)
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = math32.Remainder(cc.azimuth+dAzimuth, 2*math32.Pi)
	cc.elevation = mgl32.Clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Drag(dx, dy float32) {
	cc.mu.Lock()
	s := cc.orbitSensitivity
	cc.mu.Unlock()
	cc.Orbit(-dx*s, dy*s)
}

func (cc *cameraControllerImpl) DragPan(dx, dy float32) {
	cc.mu.Lock()
	s := cc.panSensitivity * cc.radius
	cc.mu.Unlock()
	// dragging right pulls the scene right, so the target moves left
	cc.Pan(-dx*s, dy*s)
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	// scale rather than offset so zooming feels the same at every distance
	cc.radius = mgl32.Clamp(cc.radius*(1-delta*cc.zoomSpeed), cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, up := cc.viewAxes()
	offset := right.Mul(dx).Add(up.Mul(dy))
	cc.target = cc.target.Add(offset)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Frame(center mgl32.Vec3, radius, fov float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = center
	if radius > 0 && fov > 0 {
		cc.radius = mgl32.Clamp(radius/math32.Sin(fov/2), cc.minRadius, cc.maxRadius)
	}
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = mgl32.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
