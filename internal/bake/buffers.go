package bake

import "github.com/go-gl/mathgl/mgl32"

// State is the per-sample rasterization bitmask.
type State uint8

const (
	// StateFilled marks a sample covered by a triangle.
	StateFilled State = 1 << iota
	// StateIgnoreShadow skips the sample in the shadow pass.
	StateIgnoreShadow
	// StateIgnoreAmbient skips the sample in the indirect pass.
	StateIgnoreAmbient
)

// texelBuffer is an atlas-sized image read and written as RGBA.
type texelBuffer interface {
	read4(x, y int) mgl32.Vec4
	write4(x, y int, c mgl32.Vec4)
}

// float3Image is a size*size RGB float image, row-major.
type float3Image struct {
	size int
	data []float32
}

func newFloat3Image(size int) *float3Image {
	return &float3Image{size: size, data: make([]float32, size*size*3)}
}

func (b *float3Image) at(x, y int) mgl32.Vec3 {
	i := (x + y*b.size) * 3
	return mgl32.Vec3{b.data[i], b.data[i+1], b.data[i+2]}
}

func (b *float3Image) set(x, y int, c mgl32.Vec3) {
	i := (x + y*b.size) * 3
	b.data[i], b.data[i+1], b.data[i+2] = c[0], c[1], c[2]
}

func (b *float3Image) read4(x, y int) mgl32.Vec4 {
	return b.at(x, y).Vec4(1)
}

func (b *float3Image) write4(x, y int, c mgl32.Vec4) {
	b.set(x, y, c.Vec3())
}

// float4Image is a size*size RGBA float image, row-major.
type float4Image struct {
	size int
	data []float32
}

func newFloat4Image(size int) *float4Image {
	return &float4Image{size: size, data: make([]float32, size*size*4)}
}

func (b *float4Image) at(x, y int) mgl32.Vec4 {
	i := (x + y*b.size) * 4
	return mgl32.Vec4{b.data[i], b.data[i+1], b.data[i+2], b.data[i+3]}
}

func (b *float4Image) set(x, y int, c mgl32.Vec4) {
	i := (x + y*b.size) * 4
	b.data[i], b.data[i+1], b.data[i+2], b.data[i+3] = c[0], c[1], c[2], c[3]
}

func (b *float4Image) read4(x, y int) mgl32.Vec4     { return b.at(x, y) }
func (b *float4Image) write4(x, y int, c mgl32.Vec4) { b.set(x, y, c) }

// sampleBuffers holds the rasterizer output: for every texel and sub-sample
// the barycentric weights, the covering triangle and the state bits.
type sampleBuffers struct {
	size    int
	samples int

	weights   []mgl32.Vec3
	triangles []int32
	states    []State
}

func newSampleBuffers(size, samples int) *sampleBuffers {
	n := size * size * samples
	return &sampleBuffers{
		size:      size,
		samples:   samples,
		weights:   make([]mgl32.Vec3, n),
		triangles: make([]int32, n),
		states:    make([]State, n),
	}
}

func (b *sampleBuffers) index(x, y, s int) int {
	return (x+y*b.size)*b.samples + s
}

func (b *sampleBuffers) write(x, y, s int, weights mgl32.Vec3, triangle int, state State) {
	i := b.index(x, y, s)
	b.weights[i] = weights
	b.triangles[i] = int32(triangle)
	b.states[i] = state
}

// state returns the state of sample s of texel (x, y).
func (b *sampleBuffers) state(x, y, s int) State {
	return b.states[b.index(x, y, s)]
}

// covered reports whether any sample of the texel is filled and carries
// none of the ignore bits.
func (b *sampleBuffers) covered(x, y int, ignore State) bool {
	i := b.index(x, y, 0)
	for _, st := range b.states[i : i+b.samples] {
		if st&StateFilled != 0 && st&ignore == 0 {
			return true
		}
	}
	return false
}
