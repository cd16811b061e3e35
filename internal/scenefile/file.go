// Package scenefile reads the YAML scene description used by the command
// line baker and turns it into a bake request: meshes built from simple
// primitives, lights, materials and a packed lightmap atlas.
package scenefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// File is a parsed scene description.
type File struct {
	// Dir resolves relative texture paths.
	Dir string `yaml:"-"`

	Size          int     `yaml:"size"`
	Margin        *int    `yaml:"margin"`
	TexelsPerUnit float32 `yaml:"texels_per_unit"`
	// Params overrides individual bake parameters.
	Params yaml.Node `yaml:"params"`

	Materials []MaterialDoc `yaml:"materials"`
	Lights    []LightDoc    `yaml:"lights"`
	Meshes    []MeshDoc     `yaml:"meshes"`
}

// MaterialDoc describes one material.
type MaterialDoc struct {
	Name            string `yaml:"name"`
	Color           *vec4  `yaml:"color"`
	Emissive        vec3   `yaml:"emissive"`
	Texture         string `yaml:"texture"`
	EmissiveTexture string `yaml:"emissive_texture"`
	// ColorKey makes magenta texture texels transparent.
	ColorKey bool `yaml:"color_key"`
}

// LightDoc describes one light. Type is directional, point, spot, ambient
// or emissive; fields that do not apply to the type are ignored.
type LightDoc struct {
	Type       string   `yaml:"type"`
	Group      string   `yaml:"group"`
	Diffuse    *vec3    `yaml:"diffuse"`
	Size       *float32 `yaml:"size"`
	Position   vec3     `yaml:"position"`
	Direction  *vec3    `yaml:"direction"`
	Range      *float32 `yaml:"range"`
	InnerAngle *float32 `yaml:"inner_angle"`
	OuterAngle *float32 `yaml:"outer_angle"`
	Rays       int      `yaml:"rays"`
	BlurArea   *float32 `yaml:"blur_area"`
}

// MeshDoc describes one primitive. A quad spans Origin+s*U+t*V and faces
// along U x V. A box spans Min to Max and faces outwards unless Inward is set.
type MeshDoc struct {
	Type     string  `yaml:"type"`
	Material string  `yaml:"material"`
	Alpha    bool    `yaml:"alpha"`
	UVScale  float32 `yaml:"uv_scale"`

	Origin vec3 `yaml:"origin"`
	U      vec3 `yaml:"u"`
	V      vec3 `yaml:"v"`

	Min    vec3 `yaml:"min"`
	Max    vec3 `yaml:"max"`
	Inward bool `yaml:"inward"`
}

// ErrEmpty is returned for a scene file without content.
var ErrEmpty = errors.New("empty scene file")

// Load reads and parses the scene file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Dir = filepath.Dir(path)
	return f, nil
}

// Parse decodes a scene description. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	f := &File{}
	if err := dec.Decode(f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	return f, nil
}

type vec3 mgl32.Vec3

func (v *vec3) UnmarshalYAML(n *yaml.Node) error {
	var f []float32
	if err := n.Decode(&f); err != nil {
		return err
	}
	if len(f) != 3 {
		return fmt.Errorf("line %d: expected 3 components, got %d", n.Line, len(f))
	}
	copy(v[:], f)
	return nil
}

// vec4 accepts rgb or rgba; alpha defaults to 1.
type vec4 mgl32.Vec4

func (v *vec4) UnmarshalYAML(n *yaml.Node) error {
	var f []float32
	if err := n.Decode(&f); err != nil {
		return err
	}
	switch len(f) {
	case 3:
		f = append(f, 1)
	case 4:
	default:
		return fmt.Errorf("line %d: expected 3 or 4 components, got %d", n.Line, len(f))
	}
	copy(v[:], f)
	return nil
}
