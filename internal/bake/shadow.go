package bake

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// shadowTracer is the per-row scratch of the shadow pass.
type shadowTracer struct {
	r      *run
	rays   int64
	colors []mgl32.Vec4
}

// blend returns the light transmitted through the alpha layers between
// position and length along direction. ok is false when no alpha surface
// lies in between.
func (t *shadowTracer) blend(position, direction mgl32.Vec3, length float32) (mgl32.Vec3, bool) {
	hits := t.r.l.alpha.TestRaySorted(position, direction, true)
	t.rays++

	t.colors = t.colors[:0]
	for _, h := range hits {
		if h.Distance > length {
			break
		}
		x, y := t.r.texel(h)
		t.colors = append(t.colors, t.r.textureColors.at(x, y))
	}
	if len(t.colors) == 0 {
		return mgl32.Vec3{}, false
	}
	// Layers are blended nearest first, so the farthest one ends on top.
	return lmath.Transmittance(lmath.Blend(t.colors)), true
}

// shadowBlurArea returns the denoise radius of the shadow of light.
func (r *run) shadowBlurArea(light scene.Light) float32 {
	switch l := light.(type) {
	case *scene.EmissiveLight:
		return l.BlurArea
	case *scene.AmbientLight:
		return l.BlurArea
	}
	if r.l.params.FastMode {
		return 0
	}
	return r.l.params.ShadowBlurArea
}

// bakeShadow computes the visibility of one light for every texel sample
// not flagged StateIgnoreShadow. For emissive lights it gathers the direct
// emissive term seen through the hemisphere instead.
func (r *run) bakeShadow(ctx context.Context, lp *lightPass) error {
	l := r.l
	p := &l.params
	samples := p.SamplingMode.NumSamples()
	stream := r.nextStream()

	size := lp.light.LightSize()
	rays := p.ShadowRaysPerSample
	if p.FastMode {
		size = 0
	}
	var emissive *scene.EmissiveLight
	hemisphere, positioned := false, true
	switch light := lp.light.(type) {
	case *scene.EmissiveLight:
		emissive = light
	case *scene.AmbientLight:
		rays = light.Rays
		hemisphere = true
	case *scene.DirectionalLight:
		positioned = false
	}
	if p.FastMode {
		rays = 1
	}

	return r.rows(ctx, func(y int) error {
		rng := r.rng(stream, y)
		t := &shadowTracer{r: r}
		for x := 0; x < r.size; x++ {
			var total mgl32.Vec3
			passed := 0
			for s := 0; s < samples; s++ {
				i := r.samples.index(x, y, s)
				st := r.samples.states[i]
				if st&StateFilled == 0 || st&StateIgnoreShadow != 0 {
					continue
				}
				w := r.samples.weights[i]
				tri := int(r.samples.triangles[i])
				normal := l.triangleNormal(tri)
				position := l.lerp3(w, tri, scene.OffsetPosition).Add(normal.Mul(p.RayOffset))

				if emissive != nil {
					for k := 0; k < emissive.Rays; k++ {
						direction := lmath.RandomHemisphere(rng, normal)
						hits := l.opaque.TestRaySorted(position, direction, true)
						t.rays++
						if len(hits) == 0 {
							continue
						}
						closest := hits[0]
						c := lp.direct.at(r.texel(closest))
						if c == (mgl32.Vec3{}) {
							continue
						}
						if b, ok := t.blend(position, direction, closest.Distance); ok {
							c = lmath.MulV(c, b)
						}
						total = total.Add(c)
					}
					passed += emissive.Rays
					continue
				}

				for k := 0; k < rays; k++ {
					length := math32.Inf(1)
					var direction mgl32.Vec3
					if hemisphere {
						direction = lmath.RandomHemisphere(rng, normal)
					} else {
						direction = lp.light.RandomLightDirection(rng, position, size)
						if positioned {
							length = direction.Len()
							if length <= lmath.Epsilon {
								// Sample sits on the light.
								total = total.Add(mgl32.Vec3{1, 1, 1})
								continue
							}
							direction = direction.Mul(1 / length)
						}
					}

					t.rays++
					if l.opaque.FastTestRay(position, direction, length) {
						continue
					}
					if b, ok := t.blend(position, direction, length); ok {
						total = total.Add(b)
					} else {
						total = total.Add(mgl32.Vec3{1, 1, 1})
					}
				}
				passed += rays
			}
			if passed != 0 {
				total = total.Mul(1 / float32(passed))
			}
			lp.shadow.set(x, y, total)
		}
		r.status.addRays(t.rays)
		return nil
	})
}
