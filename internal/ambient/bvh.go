package ambient

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const leafSize = 4

type node struct {
	min, max mgl32.Vec3
	right    int32
	first    int32
	count    int32
}

// BVH indexes probes by the region each one covers.
type BVH struct {
	cubes []*LightmapAmbientCube
	nodes []node
}

// NewBVH builds a BVH over cubes. The slice is reordered.
func NewBVH(cubes []*LightmapAmbientCube) *BVH {
	b := &BVH{cubes: cubes}
	if len(cubes) > 0 {
		b.build(0, len(cubes))
	}
	return b
}

func (b *BVH) build(first, end int) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{})

	n := node{first: int32(first), count: int32(end - first)}
	n.min, n.max = b.cubes[first].Bounds()
	cmin, cmax := b.cubes[first].Position, b.cubes[first].Position
	for _, c := range b.cubes[first+1 : end] {
		lo, hi := c.Bounds()
		n.min = vmin(n.min, lo)
		n.max = vmax(n.max, hi)
		cmin = vmin(cmin, c.Position)
		cmax = vmax(cmax, c.Position)
	}

	extent := cmax.Sub(cmin)
	axis := 0
	if extent[1] > extent[0] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}
	if end-first <= leafSize || extent[axis] <= 0 {
		b.nodes[idx] = n
		return idx
	}

	part := b.cubes[first:end]
	sort.Slice(part, func(i, j int) bool {
		return part[i].Position[axis] < part[j].Position[axis]
	})
	mid := first + (end-first)/2
	b.build(first, mid)
	n.right = b.build(mid, end)
	n.count = 0
	b.nodes[idx] = n
	return idx
}

// Len returns the number of probes.
func (b *BVH) Len() int {
	return len(b.cubes)
}

// Cubes returns every probe.
func (b *BVH) Cubes() []*LightmapAmbientCube {
	return b.cubes
}

// Query returns the probes whose region contains p.
func (b *BVH) Query(p mgl32.Vec3) []*LightmapAmbientCube {
	var out []*LightmapAmbientCube
	b.walk(func(n *node) bool {
		return contains(n.min, n.max, p)
	}, func(c *LightmapAmbientCube) {
		lo, hi := c.Bounds()
		if contains(lo, hi, p) {
			out = append(out, c)
		}
	})
	return out
}

// Nearest returns the probe closest to p, or nil when the BVH is empty.
func (b *BVH) Nearest(p mgl32.Vec3) *LightmapAmbientCube {
	var best *LightmapAmbientCube
	bestDist := math32.Inf(1)
	b.walk(func(n *node) bool {
		return boxDistance2(p, n.min, n.max) < bestDist
	}, func(c *LightmapAmbientCube) {
		d := c.Position.Sub(p)
		if l := d.Dot(d); l < bestDist {
			bestDist = l
			best = c
		}
	})
	return best
}

// Sample returns the ambient lighting of group at p for a surface with unit
// normal n. Probes containing p are blended by inverse distance; outside
// every probe the nearest one is used.
func (b *BVH) Sample(p mgl32.Vec3, group int, n mgl32.Vec3) mgl32.Vec3 {
	cubes := b.Query(p)
	if len(cubes) == 0 {
		c := b.Nearest(p)
		if c == nil || group < 0 || group >= len(c.Cubes) {
			return mgl32.Vec3{}
		}
		return c.Cubes[group].Sample(n)
	}
	var sum mgl32.Vec3
	var weight float32
	for _, c := range cubes {
		if group < 0 || group >= len(c.Cubes) {
			continue
		}
		w := 1 / (c.Position.Sub(p).Len() + 1e-4)
		sum = sum.Add(c.Cubes[group].Sample(n).Mul(w))
		weight += w
	}
	if weight == 0 {
		return mgl32.Vec3{}
	}
	return sum.Mul(1 / weight)
}

func (b *BVH) walk(enter func(*node) bool, leaf func(*LightmapAmbientCube)) {
	if len(b.nodes) == 0 {
		return
	}
	stack := make([]int32, 1, 64)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &b.nodes[idx]
		if !enter(n) {
			continue
		}
		if n.count > 0 {
			for _, c := range b.cubes[n.first : n.first+n.count] {
				leaf(c)
			}
			continue
		}
		// Left last so it is visited first.
		stack = append(stack, n.right, idx+1)
	}
}

func contains(min, max, p mgl32.Vec3) bool {
	return p[0] >= min[0] && p[0] <= max[0] &&
		p[1] >= min[1] && p[1] <= max[1] &&
		p[2] >= min[2] && p[2] <= max[2]
}

func boxDistance2(p, min, max mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		v := math32.Max(math32.Max(min[i]-p[i], 0), p[i]-max[i])
		d += v * v
	}
	return d
}

func vmin(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])}
}

func vmax(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])}
}
