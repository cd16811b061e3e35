package bvh

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// TestSphere returns the indices of all triangles within radius of center.
func (b *BVH) TestSphere(center mgl32.Vec3, radius float32) []int {
	var out []int
	b.visitSphere(center, radius, func(t int32) bool {
		out = append(out, int(t))
		return true
	})
	return out
}

// FastTestSphere reports whether any triangle lies within radius of center.
func (b *BVH) FastTestSphere(center mgl32.Vec3, radius float32) bool {
	found := false
	b.visitSphere(center, radius, func(int32) bool {
		found = true
		return false
	})
	return found
}

func (b *BVH) visitSphere(center mgl32.Vec3, radius float32, fn func(int32) bool) {
	if b.Empty() {
		return
	}
	r2 := radius * radius
	var stack [maxStack]int32
	sp := 1
	for sp > 0 {
		sp--
		idx := stack[sp]
		n := &b.nodes[idx]
		if boxDistance2(center, n.min, n.max) > r2 {
			continue
		}
		if n.count > 0 {
			for _, t := range b.order[n.start : n.start+n.count] {
				tri := &b.triangles[t]
				if boxDistance2(center, tri.min, tri.max) > r2 {
					continue
				}
				p := closestPoint(center, tri.a, tri.b, tri.c)
				d := p.Sub(center)
				if d.Dot(d) <= r2 {
					if !fn(t) {
						return
					}
				}
			}
			continue
		}
		stack[sp] = n.right
		stack[sp+1] = idx + 1
		sp += 2
	}
}

func boxDistance2(p, min, max mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		v := math32.Max(math32.Max(min[i]-p[i], 0), p[i]-max[i])
		d += v * v
	}
	return d
}

// closestPoint returns the point of triangle abc nearest to p.
func closestPoint(p, a, b, c mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return b.Add(c.Sub(b).Mul((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}
