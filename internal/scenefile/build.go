package scenefile

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	"github.com/Faultbox/lightbaker/internal/bake"
	"github.com/Faultbox/lightbaker/internal/scene"
	"github.com/Faultbox/lightbaker/internal/texture"
)

// Options are the settings the scene file may override.
type Options struct {
	Size   int
	Margin int
	Params scene.Params
}

// Result is a bake request built from a scene file.
type Result struct {
	Scene   *scene.Scene
	Atlas   bake.Atlas
	Library *texture.Library
	// Density is the lightmap resolution in texels per world unit.
	Density float32
}

// Build resolves materials, lights and meshes and packs the atlas.
func (f *File) Build(opts Options) (*Result, error) {
	params := opts.Params
	if f.Params.Kind != 0 {
		if err := f.Params.Decode(&params); err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
	}
	size, margin := opts.Size, opts.Margin
	if f.Size > 0 {
		size = f.Size
	}
	if f.Margin != nil {
		margin = *f.Margin
	}

	materials, index, err := f.materials()
	if err != nil {
		return nil, err
	}

	var lights []scene.Light
	for i := range f.Lights {
		l, e := f.Lights[i].light()
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("light %d: %w", i, e))
			continue
		}
		lights = append(lights, l)
	}

	var faces []face
	for i := range f.Meshes {
		m := &f.Meshes[i]
		mat, ok := index[m.Material]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("mesh %d: unknown material %q", i, m.Material))
			continue
		}
		fs, e := m.faces(mat)
		if e != nil {
			err = multierr.Append(err, fmt.Errorf("mesh %d: %w", i, e))
			continue
		}
		faces = append(faces, fs...)
	}
	if err != nil {
		return nil, err
	}

	rects, density, err := layout(faces, size, margin, f.TexelsPerUnit)
	if err != nil {
		return nil, fmt.Errorf("packing %d islands into %dx%d: %w", len(faces), size, size, err)
	}

	sc := &scene.Scene{Lights: lights, Params: params}
	texel := 1 / float32(size)
	for i := range faces {
		r := rects[i]
		uv0 := mgl32.Vec2{float32(r.MinX+margin) * texel, float32(r.MinY+margin) * texel}
		uv1 := mgl32.Vec2{float32(r.MaxX-margin) * texel, float32(r.MaxY-margin) * texel}
		if faces[i].alpha {
			sc.Alpha = appendFace(sc.Alpha, &faces[i], uv0, uv1)
		} else {
			sc.Opaque = appendFace(sc.Opaque, &faces[i], uv0, uv1)
		}
	}

	return &Result{
		Scene:   sc,
		Atlas:   bake.Atlas{Size: size, Margin: margin, Rects: rects},
		Library: texture.NewLibrary(materials),
		Density: density,
	}, nil
}

// materials loads every material and its textures. A material named
// "default" is appended when the file defines none.
func (f *File) materials() ([]texture.Material, map[string]int, error) {
	docs := f.Materials
	if len(docs) == 0 {
		docs = []MaterialDoc{{Name: "default"}}
	}

	var err error
	out := make([]texture.Material, 0, len(docs))
	index := make(map[string]int, len(docs))
	for i := range docs {
		d := &docs[i]
		if _, dup := index[d.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("material %q defined twice", d.Name))
			continue
		}
		m := texture.Material{
			Name:     d.Name,
			Color:    mgl32.Vec4{1, 1, 1, 1},
			Emissive: mgl32.Vec3(d.Emissive),
		}
		if d.Color != nil {
			m.Color = mgl32.Vec4(*d.Color)
		}
		var e error
		if d.Texture != "" {
			if m.Texture, e = texture.Load(f.path(d.Texture), d.ColorKey); e != nil {
				err = multierr.Append(err, fmt.Errorf("material %q: %w", d.Name, e))
			}
		}
		if d.EmissiveTexture != "" {
			if m.EmissiveTexture, e = texture.Load(f.path(d.EmissiveTexture), false); e != nil {
				err = multierr.Append(err, fmt.Errorf("material %q: %w", d.Name, e))
			}
		}
		index[d.Name] = len(out)
		out = append(out, m)
	}
	if len(f.Materials) == 0 {
		index[""] = 0
	}
	return out, index, err
}

func (f *File) path(p string) string {
	if filepath.IsAbs(p) || f.Dir == "" {
		return p
	}
	return filepath.Join(f.Dir, p)
}
