package bake

import (
	"context"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
	"github.com/Faultbox/lightbaker/pkg/bvh"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// noNode marks a missing link in the indirect arena.
const noNode = -1

// indirectNode is one surface layer hit by an indirect ray. refracted links
// the next layer behind it along the same ray and reflected the first layer
// of its bounce. Links always point to higher indices.
type indirectNode struct {
	color     mgl32.Vec4
	light     mgl32.Vec3
	reflected int32
	refracted int32
}

type indirectJob struct {
	origin    mgl32.Vec3
	direction mgl32.Vec3
	depth     int
	parent    int32
}

// indirectTracer is the per-row scratch of the indirect pass. The hit tree
// of a ray is built breadth-first into nodes and collapsed in reverse.
type indirectTracer struct {
	r    *run
	g    *groupPass
	rng  *rand.Rand
	rays int64

	nodes  []indirectNode
	queue  []indirectJob
	values []mgl32.Vec3
	hits   []bvh.Hit
}

// layerTransmittance is the fraction of the light behind a layer of color
// c that passes through it.
func layerTransmittance(c mgl32.Vec4) mgl32.Vec3 {
	return lmath.Transmittance(c).Mul(1 - c[3])
}

// trace returns the light arriving at origin from direction, gathered over
// the configured number of bounces. ok is false when the ray escapes.
func (t *indirectTracer) trace(origin, direction mgl32.Vec3) (mgl32.Vec3, bool) {
	t.nodes = t.nodes[:0]
	t.queue = append(t.queue[:0], indirectJob{origin: origin, direction: direction, parent: noNode})

	for head := 0; head < len(t.queue); head++ {
		job := t.queue[head]
		first := t.layers(job)
		if job.parent != noNode {
			t.nodes[job.parent].reflected = first
		}
	}
	if len(t.nodes) == 0 {
		return mgl32.Vec3{}, false
	}
	return t.collapse(), true
}

// layers appends the chain of surfaces hit by job, nearest first, stopping
// at the first fully opaque one. It queues a bounce for every layer that is
// not fully transparent and returns the index of the first layer.
func (t *indirectTracer) layers(job indirectJob) int32 {
	r := t.r
	p := &r.l.params
	if job.depth >= p.IndirectBounces {
		return noNode
	}

	hits := append(t.hits[:0], r.l.opaque.TestRay(job.origin, job.direction)...)
	hits = append(hits, r.l.alpha.TestRay(job.origin, job.direction)...)
	t.hits = hits
	t.rays += 2
	if len(hits) == 0 {
		return noNode
	}
	bvh.SortHits(hits)

	first, prev := int32(noNode), int32(noNode)
	for _, h := range hits {
		x, y := r.texel(h)
		color := r.textureColors.at(x, y)

		idx := int32(len(t.nodes))
		t.nodes = append(t.nodes, indirectNode{
			color:     color,
			light:     t.g.lightmap.at(x, y),
			reflected: noNode,
			refracted: noNode,
		})
		if prev == noNode {
			first = idx
		} else {
			t.nodes[prev].refracted = idx
		}
		prev = idx

		if color[3] > 0 {
			normal := h.Lerp3(scene.OffsetTriangleNormal)
			if !h.FrontFace {
				normal = normal.Mul(-1)
			}
			t.queue = append(t.queue, indirectJob{
				origin:    h.Point.Add(normal.Mul(p.RayOffset)),
				direction: lmath.Reflect(job.direction, normal),
				depth:     job.depth + 1,
				parent:    idx,
			})
		}
		if color[3] >= 1 {
			break
		}
	}
	return first
}

// collapse composites the arena back to front and returns the light of the
// root chain.
func (t *indirectTracer) collapse() mgl32.Vec3 {
	if cap(t.values) < len(t.nodes) {
		t.values = make([]mgl32.Vec3, len(t.nodes))
	}
	values := t.values[:len(t.nodes)]
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := &t.nodes[i]
		var behind, bounce mgl32.Vec3
		if n.refracted != noNode {
			behind = values[n.refracted]
		}
		if n.reflected != noNode {
			bounce = values[n.reflected]
		}
		a := n.color[3]
		reflectance := mgl32.Vec3{n.color[0] * a, n.color[1] * a, n.color[2] * a}
		values[i] = lmath.MulV(behind, layerTransmittance(n.color)).Add(lmath.MulV(n.light.Add(bounce), reflectance))
	}
	return values[0]
}

// bakeIndirect traces bounce light for every sample not flagged
// StateIgnoreAmbient into the group's indirect buffer.
func (r *run) bakeIndirect(ctx context.Context, g *groupPass) error {
	l := r.l
	p := &l.params
	samples := p.SamplingMode.NumSamples()
	stream := r.nextStream()

	r.phase(g.group.DisplayName()+" - Baking Indirect", r.size)
	return r.rows(ctx, func(y int) error {
		t := &indirectTracer{r: r, g: g, rng: r.rng(stream, y)}
		for x := 0; x < r.size; x++ {
			var total mgl32.Vec3
			passed := 0
			for s := 0; s < samples; s++ {
				i := r.samples.index(x, y, s)
				st := r.samples.states[i]
				if st&StateFilled == 0 || st&StateIgnoreAmbient != 0 {
					continue
				}
				w := r.samples.weights[i]
				tri := int(r.samples.triangles[i])
				normal := l.triangleNormal(tri)
				position := l.lerp3(w, tri, scene.OffsetPosition).Add(normal.Mul(p.RayOffset))

				for k := 0; k < p.IndirectRaysPerSample; k++ {
					direction := lmath.RandomHemisphere(t.rng, normal)
					if light, ok := t.trace(position, direction); ok {
						total = total.Add(light.Mul(p.IndirectReflectionFactor))
					}
				}
				passed += p.IndirectRaysPerSample
			}
			if passed != 0 {
				total = total.Mul(1 / float32(passed))
			}
			g.indirect.set(x, y, total)
		}
		r.status.addRays(t.rays)
		return nil
	})
}

// outputIndirect adds the indirect buffer to the lightmap, or replaces the
// lightmap with it when direct lighting is off. Without indirect lighting
// the group's ambient color can stand in for it.
func (r *run) outputIndirect(g *groupPass) {
	p := &r.l.params
	enabled := p.IndirectLighting && !p.FastMode

	var fill mgl32.Vec3
	if p.FillEmptyValuesWithLightColors && !enabled {
		fill = ambientColor(g.group)
	}

	r.phase(g.group.DisplayName()+" - Writing Indirect to Lightmap", r.size)
	for y := 0; y < r.size; y++ {
		for x := 0; x < r.size; x++ {
			indirect := fill
			if enabled {
				indirect = g.indirect.at(x, y)
			}
			if p.DirectLighting {
				g.lightmap.set(x, y, g.lightmap.at(x, y).Add(indirect))
			} else {
				g.lightmap.set(x, y, indirect)
			}
		}
		r.status.addProgress(1)
	}
}

// ambientColor sums the diffuse colors of the ambient lights in group.
func ambientColor(group scene.Group) mgl32.Vec3 {
	var c mgl32.Vec3
	for _, light := range group.Lights {
		if a, ok := light.(*scene.AmbientLight); ok {
			c = c.Add(a.Diffuse)
		}
	}
	return c
}
