package bake

import (
	"github.com/go-gl/mathgl/mgl32"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// marginView exposes one island of an atlas buffer to the margin filter.
// A texel is empty unless one of its samples is filled without any of the
// ignore bits set.
type marginView struct {
	samples *sampleBuffers
	buf     texelBuffer
	rect    lmath.Rect
	ignore  State
}

func (v *marginView) Width() int  { return v.rect.LengthX() }
func (v *marginView) Height() int { return v.rect.LengthY() }

func (v *marginView) Empty(x, y int) bool {
	return !v.samples.covered(v.rect.MinX+x, v.rect.MinY+y, v.ignore)
}

func (v *marginView) Read(x, y int) mgl32.Vec4 {
	return v.buf.read4(v.rect.MinX+x, v.rect.MinY+y)
}

func (v *marginView) Write(x, y int, c mgl32.Vec4) {
	v.buf.write4(v.rect.MinX+x, v.rect.MinY+y, c)
}

// blurView exposes one island of an RGB buffer to the Gaussian blur. Texels
// without any filled sample are left out of the kernel.
type blurView struct {
	samples *sampleBuffers
	buf     *float3Image
	rect    lmath.Rect
}

func (v *blurView) Width() int  { return v.rect.LengthX() }
func (v *blurView) Height() int { return v.rect.LengthY() }

func (v *blurView) Ignore(x, y int) bool {
	return !v.samples.covered(v.rect.MinX+x, v.rect.MinY+y, 0)
}

func (v *blurView) Read(x, y int) mgl32.Vec3 {
	return v.buf.at(v.rect.MinX+x, v.rect.MinY+y)
}

func (v *blurView) Write(x, y int, c mgl32.Vec3) {
	v.buf.set(v.rect.MinX+x, v.rect.MinY+y, c)
}
