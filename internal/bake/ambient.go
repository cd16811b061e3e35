package bake

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/lightbaker/internal/ambient"
	"github.com/Faultbox/lightbaker/pkg/bvh"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// sceneBounds returns the union of the bounds of the non-empty BVHs.
func sceneBounds(trees ...*bvh.BVH) (lo, hi mgl32.Vec3, ok bool) {
	for _, b := range trees {
		if b.Empty() {
			continue
		}
		if !ok {
			lo, hi, ok = b.Min(), b.Max(), true
			continue
		}
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], b.Min()[i])
			hi[i] = max(hi[i], b.Max()[i])
		}
	}
	return lo, hi, ok
}

// probeGrid returns the number of grid cells along each axis of extent
// for the given spacing.
func probeGrid(extent mgl32.Vec3, spacing float32) (nx, ny, nz int) {
	cells := func(v float32) int {
		return max(int(math32.Ceil(v/spacing)), 1)
	}
	return cells(extent[0]), cells(extent[1]), cells(extent[2])
}

// placeAmbientCubes lays a regular grid over the scene bounds, growing the
// spacing until the grid fits the probe budget, and keeps the points that
// are clear of every surface and see no back face first in any direction.
func (r *run) placeAmbientCubes(ctx context.Context) error {
	l := r.l
	lo, hi, ok := sceneBounds(l.opaque, l.alpha)
	if !ok {
		r.phase("Placing Ambient Cubes (0, 0)", 0)
		return nil
	}
	pad := mgl32.Vec3{1, 1, 1}.Mul(AmbientCubeDistanceFromWalls * 2)
	lo, hi = lo.Sub(pad), hi.Add(pad)
	extent := hi.Sub(lo)

	var spacing float32
	var nx, ny, nz int
	for {
		spacing += AmbientCubeInitialRadius
		nx, ny, nz = probeGrid(extent, spacing)
		if int64(nx)*int64(ny)*int64(nz) <= int64(l.cfg.MaxAmbientCubes) {
			break
		}
	}
	total := nx * ny * nz
	r.phase(fmt.Sprintf("Placing Ambient Cubes (%d, %g)", total, spacing), total)

	stream := r.nextStream()
	lines := make([][]*ambient.LightmapAmbientCube, ny*nz)
	err := r.pool.Run(ctx, ny*nz, func(k int) error {
		rng := r.rng(stream, k)
		var rays int64
		y, z := k%ny, k/ny
		for x := 0; x < nx; x++ {
			p := lo.Add(mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(spacing))
			if r.acceptProbe(p, func(side int) mgl32.Vec3 {
				rays += 2
				return ambient.RandomSideDirection90(rng, side)
			}) {
				lines[k] = append(lines[k], ambient.NewLightmapAmbientCube(p, spacing, len(l.groups)))
			}
		}
		r.status.addRays(rays)
		return nil
	}, func(done int) {
		r.status.addProgress(done * nx)
	})
	if err != nil {
		return err
	}

	for _, line := range lines {
		r.cubes = append(r.cubes, line...)
	}
	r.log.Debug("Placed ambient cubes",
		zap.Int("accepted", len(r.cubes)),
		zap.Int("candidates", total),
		zap.Float32("spacing", spacing))
	return nil
}

// acceptProbe reports whether a probe at p is clear of surfaces and sees a
// front face first along every occlusion ray drawn from direction.
func (r *run) acceptProbe(p mgl32.Vec3, direction func(side int) mgl32.Vec3) bool {
	l := r.l
	if l.alpha.FastTestSphere(p, AmbientCubeDistanceFromWalls) || l.opaque.FastTestSphere(p, AmbientCubeDistanceFromWalls) {
		return false
	}
	for side := 0; side < ambient.Sides; side++ {
		for j := 0; j < l.cfg.OcclusionRaysPerSide; j++ {
			d := direction(side)
			nearest, found := nearestHit(l.opaque.TestRay(p, d), l.alpha.TestRay(p, d))
			if found && !nearest.FrontFace {
				return false
			}
		}
	}
	return true
}

func nearestHit(lists ...[]bvh.Hit) (bvh.Hit, bool) {
	var best bvh.Hit
	found := false
	for _, hits := range lists {
		for _, h := range hits {
			if !found || h.Distance < best.Distance {
				best, found = h, true
			}
		}
	}
	return best, found
}

// sampleAmbientCubes fills every probe's cube for group g from the finished
// lightmap, compositing the hits of each ray back to front over the group's
// ambient color.
func (r *run) sampleAmbientCubes(ctx context.Context, g *groupPass) error {
	l := r.l
	base := ambientColor(g.group)
	raysPerSide := l.cfg.AmbientRaysPerSide
	stream := r.nextStream()

	r.phase(fmt.Sprintf("%s - Sampling Ambient Cubes (%d)", g.group.DisplayName(), len(r.cubes)), len(r.cubes))
	return r.pool.Run(ctx, len(r.cubes), func(i int) error {
		rng := r.rng(stream, i)
		probe := r.cubes[i]
		cube := &probe.Cubes[g.index]
		var hits []bvh.Hit

		for side := 0; side < ambient.Sides; side++ {
			var sum mgl32.Vec3
			for k := 0; k < raysPerSide; k++ {
				d := ambient.RandomSideDirection180(rng, side)
				hits = append(hits[:0], l.opaque.TestRay(probe.Position, d)...)
				hits = append(hits, l.alpha.TestRay(probe.Position, d)...)
				bvh.SortHits(hits)

				final := base
				for j := len(hits) - 1; j >= 0; j-- {
					x, y := r.texel(hits[j])
					c := r.textureColors.at(x, y)
					light := g.lightmap.at(x, y)
					emitted := g.emissive.at(x, y)
					a := c[3]
					radiance := mgl32.Vec3{light[0]*c[0] + emitted[0], light[1]*c[1] + emitted[1], light[2]*c[2] + emitted[2]}.Mul(a)
					final = lmath.MulV(final, layerTransmittance(c)).Add(radiance)
				}
				sum = sum.Add(final)
			}
			cube.Side[side] = sum.Mul(1 / float32(raysPerSide))
		}
		r.status.addRays(int64(2 * ambient.Sides * raysPerSide))
		return nil
	}, r.status.addProgress)
}
