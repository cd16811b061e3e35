// Package ambient holds ambient cube probes: six-sided radiance samples
// placed in free space, and a BVH for looking them up by position.
package ambient

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Sides of an ambient cube.
const (
	PositiveX = iota
	NegativeX
	PositiveY
	NegativeY
	PositiveZ
	NegativeZ

	Sides
)

var sideDirections = [Sides]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// cos(45°): half angle of a 90° cone.
const cone90 = 0.70710677

// SideDirection returns the outward axis of side.
func SideDirection(side int) mgl32.Vec3 {
	return sideDirections[side]
}

// RandomSideDirection90 returns a random direction inside the 90° cone
// around side.
func RandomSideDirection90(rng *rand.Rand, side int) mgl32.Vec3 {
	return lmath.RandomCone(rng, sideDirections[side], cone90)
}

// RandomSideDirection180 returns a random direction in the hemisphere
// around side.
func RandomSideDirection180(rng *rand.Rand, side int) mgl32.Vec3 {
	return lmath.RandomHemisphere(rng, sideDirections[side])
}

// AmbientCube stores the incoming radiance seen through each of its sides.
type AmbientCube struct {
	Side [Sides]mgl32.Vec3
}

// Sample evaluates the cube for a surface with unit normal n.
func (c *AmbientCube) Sample(n mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		w := n[axis] * n[axis]
		side := axis * 2
		if n[axis] < 0 {
			side++
		}
		out = out.Add(c.Side[side].Mul(w))
	}
	return out
}

// Lerp blends two cubes.
func Lerp(a, b *AmbientCube, t float32) AmbientCube {
	var out AmbientCube
	for i := range out.Side {
		out.Side[i] = a.Side[i].Mul(1 - t).Add(b.Side[i].Mul(t))
	}
	return out
}

// LightmapAmbientCube is a probe at a fixed position holding one ambient
// cube per light group.
type LightmapAmbientCube struct {
	Position mgl32.Vec3
	Radius   float32
	Cubes    []AmbientCube
}

// NewLightmapAmbientCube creates a probe with groups empty cubes.
func NewLightmapAmbientCube(position mgl32.Vec3, radius float32, groups int) *LightmapAmbientCube {
	return &LightmapAmbientCube{Position: position, Radius: radius, Cubes: make([]AmbientCube, groups)}
}

// Bounds returns the region the probe covers.
func (c *LightmapAmbientCube) Bounds() (min, max mgl32.Vec3) {
	r := mgl32.Vec3{c.Radius, c.Radius, c.Radius}
	return c.Position.Sub(r), c.Position.Add(r)
}
