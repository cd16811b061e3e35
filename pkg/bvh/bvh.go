// Package bvh implements a bounding volume hierarchy over a flat triangle
// vertex buffer. It answers ray and sphere queries for the baker.
//
// The tree is immutable after New and safe for concurrent queries.
package bvh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrInvalidStride is returned when the stride or position offset does
	// not describe the vertex buffer.
	ErrInvalidStride = errors.New("bvh: invalid vertex stride")
	// ErrNotTriangles is returned when the index count is not a multiple of 3.
	ErrNotTriangles = errors.New("bvh: index count is not a multiple of 3")
	// ErrIndexRange is returned when an index points past the vertex buffer.
	ErrIndexRange = errors.New("bvh: index out of range")
)

// Leaf threshold: nodes with this many triangles or fewer become leaves.
const leafThreshold = 8

const maxStack = 64

type triangle struct {
	a, b, c  mgl32.Vec3
	min, max mgl32.Vec3
	centroid mgl32.Vec3
}

type node struct {
	min, max mgl32.Vec3

	// right is the index of the right child; the left child follows the
	// node directly. Leaves have count > 0.
	right int32
	start int32
	count int32
}

// BVH is a triangle bounding volume hierarchy.
type BVH struct {
	vertices []float32
	indices  []int32
	stride   int
	offset   int

	triangles []triangle
	order     []int32
	nodes     []node
}

// New builds a BVH over vertices. Every vertex is stride floats wide and its
// position starts at offset. A nil indices slice means the vertices are
// already laid out as consecutive triangles.
func New(vertices []float32, indices []int32, stride, offset int) (*BVH, error) {
	if stride <= 0 || offset < 0 || offset+3 > stride || len(vertices)%stride != 0 {
		return nil, fmt.Errorf("%w: stride %d, offset %d, %d floats", ErrInvalidStride, stride, offset, len(vertices))
	}
	vertexCount := len(vertices) / stride
	if indices == nil {
		indices = make([]int32, vertexCount)
		for i := range indices {
			indices[i] = int32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", ErrNotTriangles, len(indices))
	}

	b := &BVH{
		vertices:  vertices,
		indices:   indices,
		stride:    stride,
		offset:    offset,
		triangles: make([]triangle, len(indices)/3),
		order:     make([]int32, len(indices)/3),
	}

	for i := range b.triangles {
		var p [3]mgl32.Vec3
		for j := 0; j < 3; j++ {
			idx := int(indices[i*3+j])
			if idx < 0 || idx >= vertexCount {
				return nil, fmt.Errorf("%w: %d", ErrIndexRange, idx)
			}
			base := idx*stride + offset
			p[j] = mgl32.Vec3{vertices[base], vertices[base+1], vertices[base+2]}
		}
		t := triangle{a: p[0], b: p[1], c: p[2]}
		t.min = minVec(minVec(p[0], p[1]), p[2])
		t.max = maxVec(maxVec(p[0], p[1]), p[2])
		t.centroid = p[0].Add(p[1]).Add(p[2]).Mul(1.0 / 3.0)
		b.triangles[i] = t
		b.order[i] = int32(i)
	}

	if len(b.triangles) > 0 {
		b.nodes = make([]node, 0, 2*len(b.triangles)/leafThreshold+1)
		b.build(0, int32(len(b.order)))
	}
	return b, nil
}

// build appends the subtree covering order[start:end] and returns its index.
func (b *BVH) build(start, end int32) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{})

	n := node{start: start, count: end - start}
	n.min = b.triangles[b.order[start]].min
	n.max = b.triangles[b.order[start]].max
	cmin := b.triangles[b.order[start]].centroid
	cmax := cmin
	for _, t := range b.order[start+1 : end] {
		tri := &b.triangles[t]
		n.min = minVec(n.min, tri.min)
		n.max = maxVec(n.max, tri.max)
		cmin = minVec(cmin, tri.centroid)
		cmax = maxVec(cmax, tri.centroid)
	}

	extent := cmax.Sub(cmin)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}

	if n.count <= leafThreshold || extent[axis] <= 0 {
		b.nodes[idx] = n
		return idx
	}

	// Median split on the longest centroid axis.
	part := b.order[start:end]
	sort.Slice(part, func(i, j int) bool {
		return b.triangles[part[i]].centroid[axis] < b.triangles[part[j]].centroid[axis]
	})
	mid := start + n.count/2

	b.build(start, mid)
	n.right = b.build(mid, end)
	n.count = 0
	b.nodes[idx] = n
	return idx
}

// Len returns the number of triangles.
func (b *BVH) Len() int {
	return len(b.triangles)
}

// Empty reports whether the BVH holds no triangles.
func (b *BVH) Empty() bool {
	return len(b.triangles) == 0
}

// Min returns the lower corner of the bounds. It is the zero vector when
// the BVH is empty.
func (b *BVH) Min() mgl32.Vec3 {
	if b.Empty() {
		return mgl32.Vec3{}
	}
	return b.nodes[0].min
}

// Max returns the upper corner of the bounds.
func (b *BVH) Max() mgl32.Vec3 {
	if b.Empty() {
		return mgl32.Vec3{}
	}
	return b.nodes[0].max
}

// Vertices returns the vertex buffer the BVH was built from.
func (b *BVH) Vertices() []float32 {
	return b.vertices
}

// Vertex returns the buffer offset of vertex j (0..2) of triangle t.
func (b *BVH) Vertex(t, j int) int {
	return int(b.indices[t*3+j]) * b.stride
}

func minVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])}
}

func maxVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])}
}
