// Package camera implements the pose math used across the pipeline: look-at
// transforms for cameras on a fixed-radius sphere aimed at the origin, and the
// yaw/pitch/roll extraction the training manifest is built from.
//
// Conventions: Z-up world, row-major 4x4 camera-to-world transforms, camera -Z
// forward with Y up biased toward world Z. Angles are radians.
package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Vec3 is a 3-vector.
type Vec3 [3]float64

// Transform is a row-major 4x4 camera-to-world matrix.
type Transform [4][4]float64

// Angles is a camera orientation as yaw/pitch/roll.
type Angles struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product v x w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// SpherePoint places a camera on the sphere of the given radius: yaw rotates
// about world Z, pitch is the polar angle measured from +Z.
func SpherePoint(yaw, pitch, radius float64) Vec3 {
	return Vec3{
		radius * math.Sin(pitch) * math.Cos(yaw),
		radius * math.Sin(pitch) * math.Sin(yaw),
		radius * math.Cos(pitch),
	}
}

// LookAt builds the camera-to-world transform for a camera at pos aimed at the
// origin, -Z forward, Y up as close to world Z as the pose allows.
func LookAt(pos Vec3) Transform {
	back := pos.Normalize() // camera +Z points away from the look-at center
	right := Vec3{0, 0, 1}.Cross(back)
	if right.Norm() < 1e-12 {
		// Camera on the vertical axis; any horizontal right vector works.
		right = Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up := back.Cross(right)

	var t Transform
	for i := 0; i < 3; i++ {
		t[i][0] = right[i]
		t[i][1] = up[i]
		t[i][2] = back[i]
		t[i][3] = pos[i]
	}
	t[3][3] = 1
	return t
}

// Position returns the translation column of t.
func (t Transform) Position() Vec3 {
	return Vec3{t[0][3], t[1][3], t[2][3]}
}

// ViewDirection returns the unit vector the camera looks along (-Z axis).
func (t Transform) ViewDirection() Vec3 {
	return Vec3{-t[0][2], -t[1][2], -t[2][2]}.Normalize()
}

// EulerAngles extracts yaw/pitch/roll from a camera-to-world transform.
//
// Pitch comes out in [0, pi] for any camera on the upper-or-lower view sphere;
// tiny negative values from numerical noise are folded to their magnitude, and
// anything else means the transform does not describe an origin-facing camera.
func EulerAngles(t Transform) (Angles, error) {
	yaw := math.Atan2(t[1][0], t[0][0])
	pitch := math.Atan2(t[2][1], t[2][2])
	if pitch < 0 {
		if pitch > -1e-8 || math.Pi+pitch < 1e-8 {
			pitch = math.Abs(pitch)
		} else {
			return Angles{}, fmt.Errorf("cannot handle pitch value %v", pitch)
		}
	}
	roll := math.Atan2(-t[2][0], math.Hypot(t[2][1], t[2][2]))

	return Angles{Yaw: yaw, Pitch: pitch, Roll: roll}, nil
}

// Rotation rebuilds the rotation part of a transform from yaw/pitch/roll as
// Rz(yaw) * Ry(roll) * Rx(pitch), the factorisation EulerAngles inverts.
func Rotation(a Angles) Transform {
	cy, sy := math.Cos(a.Yaw), math.Sin(a.Yaw)
	cp, sp := math.Cos(a.Pitch), math.Sin(a.Pitch)
	cr, sr := math.Cos(a.Roll), math.Sin(a.Roll)

	var t Transform
	t[0][0] = cy * cr
	t[0][1] = cy*sr*sp - sy*cp
	t[0][2] = cy*sr*cp + sy*sp
	t[1][0] = sy * cr
	t[1][1] = sy*sr*sp + cy*cp
	t[1][2] = sy*sr*cp - cy*sp
	t[2][0] = -sr
	t[2][1] = cr * sp
	t[2][2] = cr * cp
	t[3][3] = 1
	return t
}

// DistanceStats returns the mean and standard deviation of the camera-to-origin
// distance over a set of transforms.
func DistanceStats(transforms []Transform) (mean, stddev float64) {
	if len(transforms) == 0 {
		return 0, 0
	}
	dists := make([]float64, len(transforms))
	for i, t := range transforms {
		dists[i] = t.Position().Norm()
	}
	return stat.Mean(dists, nil), stat.StdDev(dists, nil)
}
