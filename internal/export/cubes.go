package export

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/lightbaker/internal/ambient"
	"github.com/Faultbox/lightbaker/internal/bake"
)

// CubesDoc is the on-disk form of the ambient cube probes. Each cube lists
// one set of six side colors per group, in Groups order; sides follow
// +X, -X, +Y, -Y, +Z, -Z.
type CubesDoc struct {
	Groups []string  `yaml:"groups"`
	Cubes  []CubeDoc `yaml:"cubes"`
}

// CubeDoc is one probe.
type CubeDoc struct {
	Position [3]float32             `yaml:"position,flow"`
	Radius   float32                `yaml:"radius"`
	Sides    [][ambient.Sides]Color `yaml:"sides,flow"`
}

// Color is an rgb triple.
type Color [3]float32

// AmbientCubesDoc converts the probes of out.
func AmbientCubesDoc(out *bake.Output) *CubesDoc {
	doc := &CubesDoc{Groups: out.Names, Cubes: []CubeDoc{}}
	if out.AmbientCubes == nil {
		return doc
	}
	for _, c := range out.AmbientCubes.Cubes() {
		cd := CubeDoc{Position: c.Position, Radius: c.Radius}
		for g := range c.Cubes {
			var sides [ambient.Sides]Color
			for s := range sides {
				sides[s] = Color(c.Cubes[g].Side[s])
			}
			cd.Sides = append(cd.Sides, sides)
		}
		doc.Cubes = append(doc.Cubes, cd)
	}
	return doc
}

// ErrCubeGroups is returned when a cube's side sets do not match the
// group list.
var ErrCubeGroups = errors.New("cube group count mismatch")

// ReadAmbientCubes loads probes written by Export and indexes them.
func ReadAmbientCubes(path string) (*ambient.BVH, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading ambient cubes: %w", err)
	}
	var doc CubesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing ambient cubes: %w", err)
	}

	cubes := make([]*ambient.LightmapAmbientCube, len(doc.Cubes))
	for i, cd := range doc.Cubes {
		if len(cd.Sides) != len(doc.Groups) {
			return nil, nil, fmt.Errorf("cube %d: %w: %d sets for %d groups", i, ErrCubeGroups, len(cd.Sides), len(doc.Groups))
		}
		c := ambient.NewLightmapAmbientCube(mgl32.Vec3(cd.Position), cd.Radius, len(doc.Groups))
		for g, sides := range cd.Sides {
			for s, col := range sides {
				c.Cubes[g].Side[s] = mgl32.Vec3(col)
			}
		}
		cubes[i] = c
	}
	return ambient.NewBVH(cubes), doc.Groups, nil
}
