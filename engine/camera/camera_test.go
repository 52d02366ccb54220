package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func TestOrbitPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithAngles(math32.Pi/2, 0), WithTarget(mgl32.Vec3{1, 2, 3}))
	got := cc.Position()
	if want := (mgl32.Vec3{11, 2, 3}); !got.ApproxEqualThreshold(want, eps) {
		t.Fatalf("position = %v, want %v", got, want)
	}
}

func TestOrbitClampsElevation(t *testing.T) {
	cc := NewOrbitController(WithElevationBounds(-0.5, 0.5))
	cc.Orbit(0, 10)
	if e := cc.Elevation(); e != 0.5 {
		t.Fatalf("elevation = %v, want 0.5", e)
	}
	cc.Orbit(0, -10)
	if e := cc.Elevation(); e != -0.5 {
		t.Fatalf("elevation = %v, want -0.5", e)
	}
}

func TestZoomClampsRadius(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithRadiusBounds(5, 20), WithZoomSpeed(0.5))
	cc.Zoom(1)
	if r := cc.Radius(); r != 5 {
		t.Fatalf("radius after zoom in = %v, want 5", r)
	}
	cc.Zoom(-10)
	if r := cc.Radius(); r != 20 {
		t.Fatalf("radius after zoom out = %v, want 20", r)
	}
}

func TestPanMovesTargetAndEye(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithAngles(0, 0))
	before := cc.Position()
	cc.Pan(2, 1)
	// looking down -Z, right is +X and up is +Y
	if got := cc.Target(); !got.ApproxEqualThreshold(mgl32.Vec3{2, 1, 0}, eps) {
		t.Fatalf("target = %v, want (2, 1, 0)", got)
	}
	if d := cc.Position().Sub(before); !d.ApproxEqualThreshold(mgl32.Vec3{2, 1, 0}, eps) {
		t.Fatalf("eye moved by %v, want (2, 1, 0)", d)
	}
}

func TestDragPanScalesWithRadius(t *testing.T) {
	near := NewOrbitController(WithRadius(2), WithAngles(0, 0), WithSensitivity(0.005, 0.01))
	far := NewOrbitController(WithRadius(20), WithAngles(0, 0), WithSensitivity(0.005, 0.01))
	near.DragPan(10, 0)
	far.DragPan(10, 0)
	// dragging right moves the target along -X
	if got := near.Target(); !got.ApproxEqualThreshold(mgl32.Vec3{-0.2, 0, 0}, eps) {
		t.Fatalf("near target = %v, want (-0.2, 0, 0)", got)
	}
	if got := far.Target(); !got.ApproxEqualThreshold(mgl32.Vec3{-2, 0, 0}, eps) {
		t.Fatalf("far target = %v, want (-2, 0, 0)", got)
	}
	// dragging down moves the target up
	near.DragPan(0, 10)
	if got := near.Target().Y(); math32.Abs(got-0.2) > eps {
		t.Fatalf("near target y = %v, want 0.2", got)
	}
}

func TestFrameFitsSphere(t *testing.T) {
	cc := NewOrbitController()
	fov := mgl32.DegToRad(60)
	cc.Frame(mgl32.Vec3{0, 1, 0}, 3, fov)
	if r := cc.Radius(); math32.Abs(r-6) > eps {
		t.Fatalf("radius = %v, want 6", r)
	}
	if got := cc.Target(); got != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("target = %v", got)
	}
}

func TestViewMatrixLooksAtTarget(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithAngles(1.1, 0.3), WithTarget(mgl32.Vec3{0, 1, 0}))
	cam := NewCamera(WithController(cc), WithAspect(16.0/9.0))

	target := cam.ViewMatrix().Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	// the target sits on the view's -Z axis at the orbit radius
	if !target.Vec3().ApproxEqualThreshold(mgl32.Vec3{0, 0, -5}, 1e-3) {
		t.Fatalf("target in view space = %v, want (0, 0, -5)", target)
	}

	clip := cam.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	if z := clip.Z() / clip.W(); z < 0 || z > 1 {
		t.Fatalf("target depth %v outside [0, 1]", z)
	}
}

func TestUpdateFollowsController(t *testing.T) {
	cc := NewOrbitController(WithRadius(5))
	cam := NewCamera(WithController(cc))
	before := cam.ViewMatrix()
	cc.Orbit(0.5, 0)
	if cam.ViewMatrix() != before {
		t.Fatal("view changed before Update")
	}
	cam.Update()
	if cam.ViewMatrix() == before {
		t.Fatal("view unchanged after Update")
	}
	if !cam.Position().ApproxEqualThreshold(cc.Position(), eps) {
		t.Fatalf("camera position %v, controller %v", cam.Position(), cc.Position())
	}
}

func TestSetAspectUpdatesProjection(t *testing.T) {
	cam := NewCamera()
	cam.SetAspect(2)
	p := cam.ProjectionMatrix()
	if math32.Abs(p[5]/p[0]-2) > eps {
		t.Fatalf("projection x/y scale ratio = %v, want 2", p[5]/p[0])
	}
}
