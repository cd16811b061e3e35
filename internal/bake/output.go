package bake

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/ambient"
)

// Output is the result of a bake. Every buffer is Size*Size texels,
// row-major, with the atlas origin at texel (0, 0).
type Output struct {
	Size int
	// Names holds the light group names; index i names Lightmaps[i] and
	// Emissive[i].
	Names []string
	// Lightmaps holds the diffuse lighting of each group as RGB floats.
	Lightmaps [][]float32
	// Emissive holds the direct emissive lighting of each group as RGB floats.
	Emissive [][]float32
	// Color is the averaged surface base color as RGBA floats.
	Color []float32
	// AmbientCubes indexes the probes; each holds one cube per group.
	AmbientCubes *ambient.BVH
}

// Group returns the index of the group called name, or -1.
func (o *Output) Group(name string) int {
	for i, n := range o.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Lightmap returns the diffuse light of group at texel (x, y).
func (o *Output) Lightmap(group, x, y int) mgl32.Vec3 {
	return rgb(o.Lightmaps[group], x+y*o.Size)
}

// EmissiveAt returns the emissive light of group at texel (x, y).
func (o *Output) EmissiveAt(group, x, y int) mgl32.Vec3 {
	return rgb(o.Emissive[group], x+y*o.Size)
}

// ColorAt returns the base color at texel (x, y).
func (o *Output) ColorAt(x, y int) mgl32.Vec4 {
	i := (x + y*o.Size) * 4
	return mgl32.Vec4{o.Color[i], o.Color[i+1], o.Color[i+2], o.Color[i+3]}
}

func rgb(data []float32, texel int) mgl32.Vec3 {
	i := texel * 3
	return mgl32.Vec3{data[i], data[i+1], data[i+2]}
}

// ApproximateMemoryUsage estimates the bytes a bake allocates for an atlas
// of size texels per side with the given samples per texel and light groups.
func ApproximateMemoryUsage(size, samples, groups int) int64 {
	texels := int64(size) * int64(size)
	const (
		rgbBytes  = 3 * 4
		rgbaBytes = 4 * 4
	)
	var memory int64

	// Output lightmaps and emissive maps.
	memory += 2 * rgbBytes * texels * int64(groups)

	// Sample weights, triangles and states.
	memory += (rgbBytes + 4 + 1) * texels * int64(samples)

	// Texture colors and emissive colors.
	memory += (rgbaBytes + rgbBytes) * texels

	// Group lightmap, indirect and emissive buffers.
	memory += 3 * rgbBytes * texels

	// Light direct and shadow buffers.
	memory += 2 * rgbBytes * texels

	return memory
}
