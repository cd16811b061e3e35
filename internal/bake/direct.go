package bake

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// bakeDirect evaluates the unshadowed contribution of one light, averaged
// over the filled samples of each texel.
func (r *run) bakeDirect(ctx context.Context, lp *lightPass) error {
	l := r.l
	samples := l.params.SamplingMode.NumSamples()
	attenuation := l.params.DirectAttenuation
	_, emissive := lp.light.(*scene.EmissiveLight)

	return r.rows(ctx, func(y int) error {
		for x := 0; x < r.size; x++ {
			var total mgl32.Vec3
			passed := 0
			for s := 0; s < samples; s++ {
				i := r.samples.index(x, y, s)
				if r.samples.states[i]&StateFilled == 0 {
					continue
				}
				w := r.samples.weights[i]
				t := int(r.samples.triangles[i])

				position := l.lerp3(w, t, scene.OffsetPosition)
				normal := l.lerp3(w, t, scene.OffsetNormal).Normalize()

				_, radiance := lp.light.CalculateDirect(position, normal, attenuation)
				if emissive {
					radiance = lmath.MulV(radiance, r.textureEmissive.at(x, y))
				}
				total = total.Add(radiance)
				passed++
			}
			if passed != 0 {
				total = total.Mul(1 / float32(passed))
			}
			lp.direct.set(x, y, total)
		}
		return nil
	})
}

// outputLight accumulates direct times visibility into the group lightmap.
// Emissive lights add their direct term to the emissive map and their
// gathered light to the lightmap. Without shadows, ambient and emissive
// lights gather nothing here.
func (r *run) outputLight(g *groupPass, lp *lightPass) {
	shadows := r.l.params.Shadows
	_, emissive := lp.light.(*scene.EmissiveLight)
	one := mgl32.Vec3{1, 1, 1}

	for y := 0; y < r.size; y++ {
		for x := 0; x < r.size; x++ {
			direct := lp.direct.at(x, y)
			visibility := lp.shadow.at(x, y)
			if !shadows && !isGathered(lp.light) {
				visibility = one
			}
			if emissive {
				g.emissive.set(x, y, g.emissive.at(x, y).Add(direct))
				direct = one
			}
			g.lightmap.set(x, y, g.lightmap.at(x, y).Add(lmath.MulV(direct, visibility)))
		}
		r.status.addProgress(1)
	}
}
