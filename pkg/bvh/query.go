package bvh

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Hit describes a ray/triangle intersection.
type Hit struct {
	Triangle  int
	Distance  float32
	Point     mgl32.Vec3
	FrontFace bool

	// u and v are the barycentric weights of the second and third vertex.
	u, v float32
	bvh  *BVH
}

// Weights returns the barycentric weights of the hit point.
func (h Hit) Weights() mgl32.Vec3 {
	return mgl32.Vec3{1 - h.u - h.v, h.u, h.v}
}

// Lerp interpolates the vertex attribute at offset across the hit triangle.
func (h Hit) Lerp(offset int) float32 {
	w := h.Weights()
	verts := h.bvh.vertices
	return verts[h.bvh.Vertex(h.Triangle, 0)+offset]*w[0] +
		verts[h.bvh.Vertex(h.Triangle, 1)+offset]*w[1] +
		verts[h.bvh.Vertex(h.Triangle, 2)+offset]*w[2]
}

// Lerp3 interpolates a three component attribute starting at offset.
func (h Hit) Lerp3(offset int) mgl32.Vec3 {
	return mgl32.Vec3{h.Lerp(offset), h.Lerp(offset + 1), h.Lerp(offset + 2)}
}

type ray struct {
	origin mgl32.Vec3
	dir    mgl32.Vec3
	inv    mgl32.Vec3
}

func newRay(origin, dir mgl32.Vec3) ray {
	return ray{origin: origin, dir: dir, inv: mgl32.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}}
}

// slab returns whether the ray enters the box before maxDistance.
func (r *ray) slab(min, max mgl32.Vec3, maxDistance float32) bool {
	tmin := float32(0)
	tmax := maxDistance
	for i := 0; i < 3; i++ {
		t1 := (min[i] - r.origin[i]) * r.inv[i]
		t2 := (max[i] - r.origin[i]) * r.inv[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		// NaN appears when the origin lies on a slab of a flat box.
		if !math32.IsNaN(t1) {
			tmin = math32.Max(tmin, t1)
		}
		if !math32.IsNaN(t2) {
			tmax = math32.Min(tmax, t2)
		}
		if tmin > tmax {
			return false
		}
	}
	return true
}

// intersect runs Möller–Trumbore against both faces of t.
func (r *ray) intersect(t *triangle) (dist, u, v float32, front, ok bool) {
	const eps = 1e-8
	e1 := t.b.Sub(t.a)
	e2 := t.c.Sub(t.a)
	p := r.dir.Cross(e2)
	det := e1.Dot(p)
	if det > -eps && det < eps {
		return 0, 0, 0, false, false
	}
	inv := 1 / det
	s := r.origin.Sub(t.a)
	u = s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false, false
	}
	q := s.Cross(e1)
	v = r.dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false, false
	}
	dist = e2.Dot(q) * inv
	if dist <= 0 {
		return 0, 0, 0, false, false
	}
	return dist, u, v, det > 0, true
}

// visit walks every leaf the ray reaches before maxDistance. fn returns
// false to stop the walk.
func (b *BVH) visit(r *ray, maxDistance float32, fn func(tri int32) bool) {
	if b.Empty() {
		return
	}
	var stack [maxStack]int32
	sp := 0
	stack[sp] = 0
	sp++
	for sp > 0 {
		sp--
		idx := stack[sp]
		n := &b.nodes[idx]
		if !r.slab(n.min, n.max, maxDistance) {
			continue
		}
		if n.count > 0 {
			for _, t := range b.order[n.start : n.start+n.count] {
				if !fn(t) {
					return
				}
			}
			continue
		}
		stack[sp] = n.right
		stack[sp+1] = idx + 1
		sp += 2
	}
}

// TestRay returns every intersection along the ray in no particular order.
func (b *BVH) TestRay(origin, dir mgl32.Vec3) []Hit {
	var hits []Hit
	r := newRay(origin, dir)
	b.visit(&r, math32.Inf(1), func(t int32) bool {
		if d, u, v, front, ok := r.intersect(&b.triangles[t]); ok {
			hits = append(hits, Hit{
				Triangle:  int(t),
				Distance:  d,
				Point:     origin.Add(dir.Mul(d)),
				FrontFace: front,
				u:         u,
				v:         v,
				bvh:       b,
			})
		}
		return true
	})
	return hits
}

// TestRaySorted returns intersections ordered by ascending distance. With
// frontFaceOnly set, back faces are dropped.
func (b *BVH) TestRaySorted(origin, dir mgl32.Vec3, frontFaceOnly bool) []Hit {
	hits := b.TestRay(origin, dir)
	if frontFaceOnly {
		kept := hits[:0]
		for _, h := range hits {
			if h.FrontFace {
				kept = append(kept, h)
			}
		}
		hits = kept
	}
	SortHits(hits)
	return hits
}

// FastTestRay reports whether anything intersects the ray closer than
// maxDistance. Use math32.Inf(1) for an unbounded ray.
func (b *BVH) FastTestRay(origin, dir mgl32.Vec3, maxDistance float32) bool {
	found := false
	r := newRay(origin, dir)
	b.visit(&r, maxDistance, func(t int32) bool {
		if d, _, _, _, ok := r.intersect(&b.triangles[t]); ok && d < maxDistance {
			found = true
			return false
		}
		return true
	})
	return found
}

// SortHits orders hits by ascending distance.
func SortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
}
