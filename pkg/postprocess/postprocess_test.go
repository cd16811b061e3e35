package postprocess

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

type grid struct {
	w, h   int
	filled []bool
	color  []mgl32.Vec4
	writes int
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, filled: make([]bool, w*h), color: make([]mgl32.Vec4, w*h)}
}

func (g *grid) set(x, y int, c mgl32.Vec4) {
	g.filled[x+y*g.w] = true
	g.color[x+y*g.w] = c
}

func (g *grid) Width() int                   { return g.w }
func (g *grid) Height() int                  { return g.h }
func (g *grid) Empty(x, y int) bool          { return !g.filled[x+y*g.w] }
func (g *grid) Read(x, y int) mgl32.Vec4     { return g.color[x+y*g.w] }
func (g *grid) Write(x, y int, c mgl32.Vec4) { g.color[x+y*g.w] = c; g.writes++ }

type blurGrid struct {
	w, h   int
	ignore []bool
	color  []mgl32.Vec3
}

func (g *blurGrid) Width() int                   { return g.w }
func (g *blurGrid) Height() int                  { return g.h }
func (g *blurGrid) Ignore(x, y int) bool         { return g.ignore[x+y*g.w] }
func (g *blurGrid) Read(x, y int) mgl32.Vec3     { return g.color[x+y*g.w] }
func (g *blurGrid) Write(x, y int, c mgl32.Vec3) { g.color[x+y*g.w] = c }

func TestMarginZeroGenerations(t *testing.T) {
	g := newGrid(8, 8)
	g.set(3, 3, mgl32.Vec4{1, 2, 3, 1})
	g.set(4, 3, mgl32.Vec4{4, 5, 6, 1})
	before := append([]mgl32.Vec4(nil), g.color...)

	GenerateMargin(g, 0)

	assert.Equal(t, before, g.color)
}

func TestMarginOneRingPerGeneration(t *testing.T) {
	g := newGrid(9, 9)
	c := mgl32.Vec4{0.5, 0.25, 1, 1}
	g.set(4, 4, c)

	GenerateMargin(g, 1)

	assert.Equal(t, c, g.color[4+3*9])
	assert.Equal(t, c, g.color[3+4*9])
	// Diagonals are filled through the diagonal fallback.
	assert.Equal(t, c, g.color[3+3*9])
	assert.Equal(t, mgl32.Vec4{}, g.color[4+2*9])
}

func TestMarginAveragesNeighbors(t *testing.T) {
	g := newGrid(3, 1)
	g.set(0, 0, mgl32.Vec4{0, 0, 0, 1})
	g.set(2, 0, mgl32.Vec4{1, 1, 1, 1})

	GenerateMargin(g, 1)

	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 1}, g.color[1])
}

func TestMarginFillsIsland(t *testing.T) {
	g := newGrid(16, 12)
	for y := 5; y < 7; y++ {
		for x := 6; x < 9; x++ {
			g.set(x, y, mgl32.Vec4{1, 0, 0, 1})
		}
	}

	// The island diagonal in texels bounds the generations needed.
	GenerateMargin(g, 16+12)

	for i, c := range g.color {
		assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, c, "texel %d", i)
	}
}

func TestMarginUnlimited(t *testing.T) {
	g := newGrid(32, 4)
	g.set(0, 0, mgl32.Vec4{0, 1, 0, 1})

	GenerateMargin(g, -1)

	assert.Equal(t, mgl32.Vec4{0, 1, 0, 1}, g.color[31+3*32])
}

func TestBlurConstantField(t *testing.T) {
	g := &blurGrid{w: 10, h: 10, ignore: make([]bool, 100), color: make([]mgl32.Vec3, 100)}
	for i := range g.color {
		g.color[i] = mgl32.Vec3{0.3, 0.6, 0.9}
	}
	GaussianBlur(g, DefaultKernelSize, 2)
	for _, c := range g.color {
		assert.InDelta(t, 0.3, c[0], 1e-5)
		assert.InDelta(t, 0.6, c[1], 1e-5)
		assert.InDelta(t, 0.9, c[2], 1e-5)
	}
}

func TestBlurMask(t *testing.T) {
	g := &blurGrid{w: 4, h: 1, ignore: make([]bool, 4), color: make([]mgl32.Vec3, 4)}
	g.color[0] = mgl32.Vec3{1, 1, 1}
	g.color[1] = mgl32.Vec3{1, 1, 1}
	g.ignore[2] = true
	g.color[2] = mgl32.Vec3{100, 100, 100}
	g.color[3] = mgl32.Vec3{0, 0, 0}

	GaussianBlur(g, 5, 1)

	// The ignored texel neither contributes nor changes.
	assert.Equal(t, mgl32.Vec3{100, 100, 100}, g.color[2])
	assert.InDelta(t, 1, g.color[0][0], 1e-3)
	assert.Less(t, g.color[3][0], float32(1))
}

func TestBlurDisabled(t *testing.T) {
	g := &blurGrid{w: 2, h: 1, ignore: make([]bool, 2), color: []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}}}
	GaussianBlur(g, DefaultKernelSize, 0)
	assert.Equal(t, []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}}, g.color)
}

func TestKernelNormalized(t *testing.T) {
	k := Kernel(50, 4)
	assert.Len(t, k, 51)
	var sum float32
	for _, w := range k {
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-5)
	assert.Greater(t, k[25], k[24])
}
