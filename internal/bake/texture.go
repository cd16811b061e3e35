package bake

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
)

func (r *run) readTextureColors(ctx context.Context) error {
	r.phase("Reading Texture Colors", r.size)
	return r.readTexture(ctx, false, func(x, y int, c mgl32.Vec4) {
		r.textureColors.set(x, y, c)
	})
}

func (r *run) readTextureEmissiveColors(ctx context.Context) error {
	r.phase("Reading Texture Emissive Colors", r.size)
	return r.readTexture(ctx, true, func(x, y int, c mgl32.Vec4) {
		r.textureEmissive.set(x, y, c.Vec3())
	})
}

// readTexture averages the texture callback over the filled samples of each
// texel. The callback is not required to be safe for concurrent use, so
// rows are read in order on the driver.
func (r *run) readTexture(ctx context.Context, emissive bool, write func(x, y int, c mgl32.Vec4)) error {
	l := r.l
	samples := l.params.SamplingMode.NumSamples()
	for y := 0; y < r.size; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := 0; x < r.size; x++ {
			var total mgl32.Vec4
			passed := 0
			for s := 0; s < samples; s++ {
				i := r.samples.index(x, y, s)
				if r.samples.states[i]&StateFilled == 0 {
					continue
				}
				w := r.samples.weights[i]
				t := int(r.samples.triangles[i])
				u := l.lerp(w, t, scene.OffsetTextureUV)
				v := l.lerp(w, t, scene.OffsetTextureUV+1)
				total = total.Add(l.input.TextureColor(l.mesh, u, v, t, emissive))
				passed++
			}
			if passed != 0 {
				total = total.Mul(1 / float32(passed))
			}
			write(x, y, total)
		}
		r.status.addProgress(1)
	}
	return nil
}

func (r *run) generateTextureMargins(context.Context) error {
	generations := r.l.atlas.Margin * 2
	r.margins("Generating Texture Colors Margins", r.textureColors, 0, generations)
	r.margins("Generating Texture Emissive Colors Margins", r.textureEmissive, 0, generations)
	return nil
}
