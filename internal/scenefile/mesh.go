package scenefile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
)

// ErrDegenerate is returned for primitives without area.
var ErrDegenerate = errors.New("degenerate primitive")

// face is a planar parallelogram that becomes one UV island.
type face struct {
	origin, u, v mgl32.Vec3
	material     int
	alpha        bool
	uvScale      float32
}

func (f *face) normal() mgl32.Vec3 {
	return f.u.Cross(f.v).Normalize()
}

func (f *face) area() float32 {
	return f.u.Cross(f.v).Len()
}

// faces expands the primitive into its faces.
func (d *MeshDoc) faces(material int) ([]face, error) {
	scale := d.UVScale
	if scale == 0 {
		scale = 1
	}
	mk := func(origin, u, v mgl32.Vec3) face {
		return face{origin: origin, u: u, v: v, material: material, alpha: d.Alpha, uvScale: scale}
	}

	var out []face
	switch strings.ToLower(d.Type) {
	case "quad":
		out = append(out, mk(mgl32.Vec3(d.Origin), mgl32.Vec3(d.U), mgl32.Vec3(d.V)))
	case "box":
		lo, hi := mgl32.Vec3(d.Min), mgl32.Vec3(d.Max)
		dx := mgl32.Vec3{hi[0] - lo[0], 0, 0}
		dy := mgl32.Vec3{0, hi[1] - lo[1], 0}
		dz := mgl32.Vec3{0, 0, hi[2] - lo[2]}
		sides := [6][3]mgl32.Vec3{
			{{hi[0], lo[1], lo[2]}, dy, dz}, // +X
			{lo, dz, dy},                    // -X
			{{lo[0], hi[1], lo[2]}, dz, dx}, // +Y
			{lo, dx, dz},                    // -Y
			{{lo[0], lo[1], hi[2]}, dx, dy}, // +Z
			{lo, dy, dx},                    // -Z
		}
		for _, s := range sides {
			if d.Inward {
				s[1], s[2] = s[2], s[1]
			}
			out = append(out, mk(s[0], s[1], s[2]))
		}
	default:
		return nil, fmt.Errorf("unknown mesh type %q", d.Type)
	}

	for _, f := range out {
		if f.area() <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDegenerate, d.Type)
		}
	}
	return out, nil
}

// appendFace emits the two triangles of f with lightmap coordinates mapped
// onto the atlas region [uv0, uv1].
func appendFace(mesh []float32, f *face, uv0, uv1 mgl32.Vec2) []float32 {
	n := f.normal()
	lu, lv := f.u.Len(), f.v.Len()
	corner := func(s, t float32) scene.Vertex {
		return scene.Vertex{
			Position:   f.origin.Add(f.u.Mul(s)).Add(f.v.Mul(t)),
			LightmapUV: mgl32.Vec2{uv0[0] + (uv1[0]-uv0[0])*s, uv0[1] + (uv1[1]-uv0[1])*t},
			TextureUV:  mgl32.Vec2{s * lu * f.uvScale, t * lv * f.uvScale},
			Normal:     n,
			User:       mgl32.Vec2{float32(f.material), 0},
		}
	}
	a, b, c, d := corner(0, 0), corner(1, 0), corner(1, 1), corner(0, 1)
	for _, v := range [6]scene.Vertex{a, b, c, a, c, d} {
		mesh = scene.AppendVertex(mesh, v)
	}
	return mesh
}
