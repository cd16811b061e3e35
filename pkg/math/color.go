package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Dither50 selects a checkerboard half of the texels.
func Dither50(x, y int) bool {
	return (x+y)%2 == 0
}

// Dither25 selects one texel out of every 2x2 block.
func Dither25(x, y int) bool {
	return x%2 == 0 && y%2 == 0
}

// Blend composites colors in order, each one drawn over the accumulated
// result of the previous ones. An empty list yields transparent black.
func Blend(colors []mgl32.Vec4) mgl32.Vec4 {
	if len(colors) == 0 {
		return mgl32.Vec4{}
	}
	out := colors[0]
	for _, src := range colors[1:] {
		alpha := src[3] + out[3]*(1-src[3])
		if alpha < 0.00001 {
			continue
		}
		inv := 1 / alpha
		out = mgl32.Vec4{
			(src[0]*src[3] + out[0]*out[3]*(1-src[3])) * inv,
			(src[1]*src[3] + out[1]*out[3]*(1-src[3])) * inv,
			(src[2]*src[3] + out[2]*out[3]*(1-src[3])) * inv,
			alpha,
		}
	}
	return out
}

// Transmittance returns the light passing through a layer of color c and
// opacity a: c*a + (1-a).
func Transmittance(c mgl32.Vec4) mgl32.Vec3 {
	a := c[3]
	return mgl32.Vec3{c[0]*a + (1 - a), c[1]*a + (1 - a), c[2]*a + (1 - a)}
}

// SRGBToLinear converts an 8-bit sRGB channel to linear space.
func SRGBToLinear(c uint8) float32 {
	return math32.Pow(float32(c)/255, 2.2)
}

// LinearToSRGB converts a linear channel to 8-bit sRGB, clamping to [0, 1].
func LinearToSRGB(c float32) uint8 {
	c = Clampf(c, 0, 1)
	return uint8(math32.Round(math32.Pow(c, 1/2.2) * 255))
}
