// Package postprocess holds the 2D filters applied to baked atlas regions:
// margin dilation and masked Gaussian blur. Both work on an abstract buffer
// view so callers can run them over any sub-rectangle of any buffer.
package postprocess

import "github.com/go-gl/mathgl/mgl32"

// MarginIO is a view over a 2D region processed by GenerateMargin.
type MarginIO interface {
	Width() int
	Height() int
	// Empty reports whether the texel holds no valid color.
	Empty(x, y int) bool
	Read(x, y int) mgl32.Vec4
	Write(x, y int, c mgl32.Vec4)
}

// BoundedMarginIO lets a view exclude texels inside its width and height.
type BoundedMarginIO interface {
	MarginIO
	OutOfBounds(x, y int) bool
}

var neighbors = [4][2]int{{0, 1}, {0, -1}, {-1, 0}, {1, 0}}

var diagonals = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}

type margin struct {
	io     MarginIO
	bounds func(x, y int) bool
	width  int
	height int

	color     []mgl32.Vec4
	empty     []bool
	nextColor []mgl32.Vec4
	nextEmpty []bool
}

// GenerateMargin grows the valid region of io outward by one texel ring per
// generation. Each empty texel takes the average of its non-empty edge
// neighbors, or of its diagonal neighbors when no edge neighbor is set.
// A negative generation count runs until nothing changes. Only texels that
// end up non-empty are written back.
func GenerateMargin(io MarginIO, generations int) {
	m := &margin{io: io, width: io.Width(), height: io.Height()}
	m.bounds = func(x, y int) bool {
		return x < 0 || x >= m.width || y < 0 || y >= m.height
	}
	if b, ok := io.(BoundedMarginIO); ok {
		m.bounds = func(x, y int) bool {
			return x < 0 || x >= m.width || y < 0 || y >= m.height || b.OutOfBounds(x, y)
		}
	}
	m.load()
	for i := 0; generations < 0 || i < generations; i++ {
		if !m.step() {
			break
		}
		m.color, m.nextColor = m.nextColor, m.color
		m.empty, m.nextEmpty = m.nextEmpty, m.empty
	}
	m.output()
}

func (m *margin) load() {
	n := m.width * m.height
	m.color = make([]mgl32.Vec4, n)
	m.empty = make([]bool, n)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := x + y*m.width
			if m.bounds(x, y) {
				m.empty[i] = true
				continue
			}
			if m.io.Empty(x, y) {
				m.empty[i] = true
				continue
			}
			m.color[i] = m.io.Read(x, y)
		}
	}
	m.nextColor = make([]mgl32.Vec4, n)
	m.nextEmpty = make([]bool, n)
}

// step computes one generation into the next buffers and reports whether
// any texel was filled.
func (m *margin) step() bool {
	copy(m.nextColor, m.color)
	copy(m.nextEmpty, m.empty)
	changed := false
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := x + y*m.width
			if !m.empty[i] || m.bounds(x, y) {
				continue
			}
			sum, count := m.gather(x, y, neighbors)
			if count == 0 {
				sum, count = m.gather(x, y, diagonals)
			}
			if count == 0 {
				continue
			}
			m.nextColor[i] = sum.Mul(1 / float32(count))
			m.nextEmpty[i] = false
			changed = true
		}
	}
	return changed
}

func (m *margin) gather(x, y int, offsets [4][2]int) (mgl32.Vec4, int) {
	var sum mgl32.Vec4
	count := 0
	for _, o := range offsets {
		sx, sy := x+o[0], y+o[1]
		if m.bounds(sx, sy) || m.empty[sx+sy*m.width] {
			continue
		}
		sum = sum.Add(m.color[sx+sy*m.width])
		count++
	}
	return sum, count
}

func (m *margin) output() {
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := x + y*m.width
			if m.empty[i] {
				continue
			}
			m.io.Write(x, y, m.color[i])
		}
	}
}
