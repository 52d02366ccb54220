package animator

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/engine/model"
)

// sampleVector linearly interpolates a vector track at time t (ticks).
// A single key is returned unconditionally; times outside the keys clamp to the first or last key.
func sampleVector(keys []model.VectorKeyframe, t float32, fallback mgl32.Vec3) mgl32.Vec3 {
	switch len(keys) {
	case 0:
		return fallback
	case 1:
		return keys[0].Value
	}
	last := len(keys) - 1
	if t <= keys[0].Time {
		return keys[0].Value
	}
	if t >= keys[last].Time {
		return keys[last].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	k0, k1 := keys[i-1], keys[i]
	f := (t - k0.Time) / (k1.Time - k0.Time)
	return k0.Value.Add(k1.Value.Sub(k0.Value).Mul(f))
}

// sampleRotation spherically interpolates a rotation track at time t (ticks) along the shorter arc.
func sampleRotation(keys []model.QuaternionKeyframe, t float32) mgl32.Quat {
	switch len(keys) {
	case 0:
		return mgl32.QuatIdent()
	case 1:
		return keys[0].Value.Normalize()
	}
	last := len(keys) - 1
	if t <= keys[0].Time {
		return keys[0].Value.Normalize()
	}
	if t >= keys[last].Time {
		return keys[last].Value.Normalize()
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	k0, k1 := keys[i-1], keys[i]
	f := (t - k0.Time) / (k1.Time - k0.Time)

	q0, q1 := k0.Value.Normalize(), k1.Value.Normalize()
	// mgl32.QuatSlerp does not pick the shorter arc itself
	if q0.Dot(q1) < 0 {
		q1 = q1.Scale(-1)
	}
	return mgl32.QuatSlerp(q0, q1, f).Normalize()
}
