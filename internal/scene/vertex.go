package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Interleaved vertex layout, in float32 components.
const (
	OffsetPosition       = 0
	OffsetLightmapUV     = OffsetPosition + 3
	OffsetTextureUV      = OffsetLightmapUV + 2
	OffsetTriangleNormal = OffsetTextureUV + 2
	OffsetNormal         = OffsetTriangleNormal + 3
	OffsetUser           = OffsetNormal + 3

	VertexSize   = OffsetUser + 2
	TriangleSize = VertexSize * 3
)

var (
	// ErrInvalidVertexSize is returned when a mesh length is not a whole
	// number of vertices.
	ErrInvalidVertexSize = errors.New("invalid vertex size")
	// ErrNotTriangles is returned when a mesh vertex count is not a multiple of 3.
	ErrNotTriangles = errors.New("mesh does not contain triangles")
)

// CheckMesh verifies that mesh is a whole number of triangles.
func CheckMesh(mesh []float32) error {
	if len(mesh)%VertexSize != 0 {
		return fmt.Errorf("%w: %d floats is not a multiple of %d", ErrInvalidVertexSize, len(mesh), VertexSize)
	}
	if (len(mesh)/VertexSize)%3 != 0 {
		return fmt.Errorf("%w: %d vertices", ErrNotTriangles, len(mesh)/VertexSize)
	}
	return nil
}

// PrepareMesh returns a validated copy of mesh with the triangle normal
// written into every vertex. Vertex normals are normalized and replaced by
// the triangle normal when they are not finite.
func PrepareMesh(mesh []float32) ([]float32, error) {
	if err := CheckMesh(mesh); err != nil {
		return nil, err
	}
	out := make([]float32, len(mesh))
	copy(out, mesh)

	for i := 0; i < len(out); i += TriangleSize {
		a := position(out, i)
		b := position(out, i+VertexSize)
		c := position(out, i+2*VertexSize)
		n := lmath.TriangleNormal(a, b, c)
		for j := 0; j < 3; j++ {
			base := i + j*VertexSize + OffsetTriangleNormal
			out[base], out[base+1], out[base+2] = n[0], n[1], n[2]
		}
	}

	for i := 0; i < len(out); i += VertexSize {
		n := mgl32.Vec3{out[i+OffsetNormal], out[i+OffsetNormal+1], out[i+OffsetNormal+2]}
		l := n.Len()
		if l > 0 {
			n = n.Mul(1 / l)
		}
		if l == 0 || !lmath.IsFinite(n) {
			n = mgl32.Vec3{out[i+OffsetTriangleNormal], out[i+OffsetTriangleNormal+1], out[i+OffsetTriangleNormal+2]}
		}
		out[i+OffsetNormal], out[i+OffsetNormal+1], out[i+OffsetNormal+2] = n[0], n[1], n[2]
	}
	return out, nil
}

func position(mesh []float32, base int) mgl32.Vec3 {
	return mgl32.Vec3{mesh[base+OffsetPosition], mesh[base+OffsetPosition+1], mesh[base+OffsetPosition+2]}
}

// Vertex is a convenience builder for one interleaved vertex.
type Vertex struct {
	Position   mgl32.Vec3
	LightmapUV mgl32.Vec2
	TextureUV  mgl32.Vec2
	Normal     mgl32.Vec3
	User       mgl32.Vec2
}

// AppendVertex appends v to mesh in the interleaved layout. The triangle
// normal slot is left zero for PrepareMesh to fill.
func AppendVertex(mesh []float32, v Vertex) []float32 {
	return append(mesh,
		v.Position[0], v.Position[1], v.Position[2],
		v.LightmapUV[0], v.LightmapUV[1],
		v.TextureUV[0], v.TextureUV[1],
		0, 0, 0,
		v.Normal[0], v.Normal[1], v.Normal[2],
		v.User[0], v.User[1],
	)
}
