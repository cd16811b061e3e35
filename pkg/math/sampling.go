package math

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// RandomInSphere returns a uniformly distributed point inside the unit sphere.
func RandomInSphere(rng *rand.Rand) mgl32.Vec3 {
	for {
		p := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
		}
		if p.Dot(p) <= 1 {
			return p
		}
	}
}

// RandomHemisphere returns a unit direction uniformly distributed over the
// hemisphere around the normal n. Points are drawn inside the upper half of
// the unit ball and projected onto the sphere.
func RandomHemisphere(rng *rand.Rand, n mgl32.Vec3) mgl32.Vec3 {
	var p mgl32.Vec3
	for {
		p = mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		d := p.Dot(p)
		if d <= 1 && d > Epsilon*Epsilon {
			break
		}
	}
	return ToBasis(p.Normalize(), n)
}

// RandomCone returns a unit direction uniformly distributed inside the cone
// around axis whose half angle has cosine cosHalf.
func RandomCone(rng *rand.Rand, axis mgl32.Vec3, cosHalf float32) mgl32.Vec3 {
	cosTheta := 1 - rng.Float32()*(1-cosHalf)
	sinTheta := math32.Sqrt(math32.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math32.Pi * rng.Float32()
	local := mgl32.Vec3{sinTheta * math32.Cos(phi), sinTheta * math32.Sin(phi), cosTheta}
	return ToBasis(local, axis)
}

// RandomDirection returns a uniformly distributed unit vector.
func RandomDirection(rng *rand.Rand) mgl32.Vec3 {
	z := 1 - 2*rng.Float32()
	r := math32.Sqrt(math32.Max(0, 1-z*z))
	phi := 2 * math32.Pi * rng.Float32()
	return mgl32.Vec3{r * math32.Cos(phi), r * math32.Sin(phi), z}
}
