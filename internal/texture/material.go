package texture

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Material is a flat color optionally modulated by a texture, plus an
// emissive color optionally modulated by its own texture.
type Material struct {
	Name            string
	Color           mgl32.Vec4
	Emissive        mgl32.Vec3
	Texture         *Image
	EmissiveTexture *Image
}

// Library resolves the material of a triangle from the first user channel
// of its vertices. It satisfies bake.TextureInput.
type Library struct {
	Materials []Material
	// Fallback is returned for triangles naming an unknown material.
	Fallback mgl32.Vec4
}

// NewLibrary returns a library over materials with a white fallback.
func NewLibrary(materials []Material) *Library {
	return &Library{Materials: materials, Fallback: mgl32.Vec4{1, 1, 1, 1}}
}

// MaterialIndex returns the material index stored on triangle in mesh.
func MaterialIndex(mesh []float32, triangle int) int {
	return int(mesh[triangle*scene.TriangleSize+scene.OffsetUser])
}

// TextureColor returns the base color, or with emissive set the emissive
// color in rgb, of triangle at texture coordinates (u, v).
func (l *Library) TextureColor(mesh []float32, u, v float32, triangle int, emissive bool) mgl32.Vec4 {
	i := MaterialIndex(mesh, triangle)
	if i < 0 || i >= len(l.Materials) {
		if emissive {
			return mgl32.Vec4{}
		}
		return l.Fallback
	}
	m := &l.Materials[i]

	if emissive {
		e := m.Emissive.Vec4(1)
		if m.EmissiveTexture != nil {
			e = lmath.MulV4(e, m.EmissiveTexture.At(u, v))
		}
		return e
	}
	c := m.Color
	if m.Texture != nil {
		c = lmath.MulV4(c, m.Texture.At(u, v))
	}
	return c
}
