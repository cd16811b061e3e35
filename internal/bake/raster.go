package bake

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Samples closer than the ray offset to an opaque triangle facing away by
// more than this dot product are dropped.
const coplanarThreshold = 0.5

// rasterize projects every triangle into the atlas and records, for each
// covered sub-sample, its barycentric weights, triangle and state. Later
// triangles overwrite earlier ones, so this phase runs on the driver.
func (r *run) rasterize(ctx context.Context) error {
	triangles := len(r.l.mesh) / scene.TriangleSize
	r.phase("Rasterizing Barycentric Buffers", triangles)
	for t := 0; t < triangles; t++ {
		if t%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r.rasterizeTriangle(t)
		r.status.addProgress(1)
	}
	return nil
}

func (r *run) rasterizeTriangle(t int) {
	l := r.l
	mode := l.params.SamplingMode
	offset := l.params.RayOffset
	size := float32(r.size)
	normal := l.triangleNormal(t)

	var uv [3]mgl32.Vec2
	base := triangleBase(t) + scene.OffsetLightmapUV
	for j := range uv {
		v := base + j*scene.VertexSize
		uv[j] = mgl32.Vec2{l.mesh[v] * size, l.mesh[v+1] * size}
	}

	minX := int(math32.Floor(min(uv[0][0], uv[1][0], uv[2][0]))) - 1
	minY := int(math32.Floor(min(uv[0][1], uv[1][1], uv[2][1]))) - 1
	maxX := int(math32.Ceil(max(uv[0][0], uv[1][0], uv[2][0]))) + 1
	maxY := int(math32.Ceil(max(uv[0][1], uv[1][1], uv[2][1]))) + 1
	minX = lmath.Clamp(minX, 0, r.size-1)
	minY = lmath.Clamp(minY, 0, r.size-1)
	maxX = lmath.Clamp(maxX, 0, r.size-1)
	maxY = lmath.Clamp(maxY, 0, r.size-1)

	ignoreEnabled := true
	bounds := lmath.Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	for _, island := range l.atlas.Rects {
		if island.Intersects(bounds) && min(island.LengthX(), island.LengthY()) < IgnoreTriggerSize {
			ignoreEnabled = false
			break
		}
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			state := StateFilled
			if ignoreEnabled {
				if !lmath.Dither50(x, y) {
					state |= StateIgnoreShadow
				}
				if !lmath.Dither25(x, y) {
					state |= StateIgnoreAmbient
				}
			}

			for s := 0; s < mode.NumSamples(); s++ {
				sx, sy := mode.Offset(s)
				w := lmath.Barycentric(mgl32.Vec2{float32(x) + sx, float32(y) + sy}, uv[0], uv[1], uv[2])
				if !lmath.IsFinite(w) {
					// Degenerate in UV space.
					return
				}
				if w[0] < 0 || w[1] < 0 || w[2] < 0 {
					continue
				}

				position := l.lerp3(w, t, scene.OffsetPosition).Add(normal.Mul(offset))
				if r.nearForeignSurface(position, normal, offset) {
					continue
				}
				r.samples.write(x, y, s, w, t, state)
			}
		}
	}
}

// nearForeignSurface reports whether an opaque triangle within radius of
// position faces a clearly different way than normal.
func (r *run) nearForeignSurface(position, normal mgl32.Vec3, radius float32) bool {
	for _, other := range r.l.opaque.TestSphere(position, radius) {
		if normal.Dot(r.l.triangleNormal(other)) < coplanarThreshold {
			return true
		}
	}
	return false
}
