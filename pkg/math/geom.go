// Package math provides float32 geometry and color helpers shared by the
// baker. Vector types come from mgl32; this package only adds what mgl32
// does not cover.
package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used for near-zero comparisons.
const Epsilon = 0.0001

// Barycentric returns the weights of p relative to the triangle (a, b, c).
// Degenerate triangles produce non-finite weights.
func Barycentric(p, a, b, c mgl32.Vec2) mgl32.Vec3 {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	return mgl32.Vec3{1 - v - w, v, w}
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Lerp3 interpolates three values with barycentric weights.
func Lerp3(w mgl32.Vec3, a, b, c float32) float32 {
	return a*w[0] + b*w[1] + c*w[2]
}

// Reflect mirrors d around the normal n.
func Reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// MulV multiplies two vectors component-wise.
func MulV(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// MulV4 multiplies a and b component-wise.
func MulV4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Basis builds a tangent frame around the unit normal n.
func Basis(n mgl32.Vec3) (tangent, bitangent mgl32.Vec3) {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n.Dot(up)) >= 1-Epsilon {
		up = mgl32.Vec3{1, 0, 0}
	}
	tangent = n.Cross(up).Normalize()
	bitangent = n.Cross(tangent).Normalize()
	return tangent, bitangent
}

// ToBasis transforms a local direction (z along n) into world space.
func ToBasis(local, n mgl32.Vec3) mgl32.Vec3 {
	t, b := Basis(n)
	return t.Mul(local[0]).Add(b.Mul(local[1])).Add(n.Mul(local[2]))
}

// TriangleNormal returns the unit normal of a counter-clockwise triangle.
func TriangleNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return n.Mul(1 / l)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}

// Clampf limits v to [lo, hi].
func Clampf(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
