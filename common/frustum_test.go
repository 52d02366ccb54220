package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(mgl32.DegToRad(60), 1.5, 0.5, 100)
	tests := []struct {
		z, want float32
	}{
		{-0.5, 0},
		{-100, 1},
	}
	for _, tt := range tests {
		clip := p.Mul4x1(mgl32.Vec4{0, 0, tt.z, 1})
		if got := clip.Z() / clip.W(); math32.Abs(got-tt.want) > 1e-5 {
			t.Fatalf("depth at z=%v = %v, want %v", tt.z, got, tt.want)
		}
	}
}

func TestFrustumContainsSphere(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(Perspective(mgl32.DegToRad(60), 1, 1, 50).Mul4(view))

	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   bool
	}{
		{"origin", mgl32.Vec3{}, 1, true},
		{"behind eye", mgl32.Vec3{0, 0, 20}, 1, false},
		{"straddles near plane", mgl32.Vec3{0, 0, 9.5}, 1, true},
		{"past far plane", mgl32.Vec3{0, 0, -45}, 1, false},
		{"off to the side", mgl32.Vec3{100, 0, 0}, 1, false},
		{"large sphere off to the side", mgl32.Vec3{100, 0, 0}, 200, true},
	}
	for _, tt := range tests {
		if got := f.ContainsSphere(tt.center, tt.radius); got != tt.want {
			t.Errorf("%s: ContainsSphere = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	f := ExtractFrustum(Perspective(mgl32.DegToRad(45), 16.0/9, 0.1, 1000))
	for i, p := range f.Planes {
		if l := p.Normal.Len(); math32.Abs(l-1) > 1e-4 {
			t.Fatalf("plane %d normal length = %v", i, l)
		}
	}
}
