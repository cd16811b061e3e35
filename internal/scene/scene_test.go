package scene

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

func triangle(normal mgl32.Vec3) []float32 {
	var mesh []float32
	mesh = AppendVertex(mesh, Vertex{Position: mgl32.Vec3{0, 0, 0}, Normal: normal})
	mesh = AppendVertex(mesh, Vertex{Position: mgl32.Vec3{1, 0, 0}, Normal: normal})
	mesh = AppendVertex(mesh, Vertex{Position: mgl32.Vec3{0, 1, 0}, Normal: normal})
	return mesh
}

func TestPrepareMeshNormals(t *testing.T) {
	mesh := triangle(mgl32.Vec3{0, 0, 2})
	mesh[OffsetNormal+VertexSize] = float32(math32.NaN())

	out, err := PrepareMesh(mesh)
	require.NoError(t, err)

	for v := 0; v < 3; v++ {
		base := v * VertexSize
		assert.Equal(t, []float32{0, 0, 1}, out[base+OffsetTriangleNormal:base+OffsetTriangleNormal+3])
		assert.Equal(t, []float32{0, 0, 1}, out[base+OffsetNormal:base+OffsetNormal+3])
	}
	assert.True(t, math32.IsNaN(mesh[OffsetNormal+VertexSize]), "input must not be modified")
}

func TestPrepareMeshZeroNormal(t *testing.T) {
	out, err := PrepareMesh(triangle(mgl32.Vec3{}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, out[OffsetNormal:OffsetNormal+3])
}

func TestCheckMesh(t *testing.T) {
	assert.NoError(t, CheckMesh(nil))
	assert.True(t, errors.Is(CheckMesh(make([]float32, VertexSize+1)), ErrInvalidVertexSize))
	assert.True(t, errors.Is(CheckMesh(make([]float32, VertexSize*2)), ErrNotTriangles))
}

func TestSamplingModes(t *testing.T) {
	tests := []struct {
		mode SamplingMode
		n    int
	}{
		{Sample1, 1},
		{Sample5, 5},
		{Sample9, 9},
		{Sample16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.n, tt.mode.NumSamples())
			for s := 0; s < tt.n; s++ {
				x, y := tt.mode.Offset(s)
				assert.True(t, x > 0 && x < 1 && y > 0 && y < 1)
			}
			parsed, err := ParseSamplingMode(tt.mode.String())
			require.NoError(t, err)
			assert.Equal(t, tt.mode, parsed)
		})
	}
	x, y := Sample1.Offset(0)
	assert.Equal(t, float32(0.5), x)
	assert.Equal(t, float32(0.5), y)

	_, err := ParseSamplingMode("sample7")
	assert.Error(t, err)
}

func TestSamplingModeYAML(t *testing.T) {
	var p Params
	require.NoError(t, yaml.Unmarshal([]byte("sampling_mode: sample5\n"), &p))
	assert.Equal(t, Sample5, p.SamplingMode)

	data, err := yaml.Marshal(Params{SamplingMode: Sample16})
	require.NoError(t, err)
	assert.Contains(t, string(data), "sampling_mode: sample16")
}

func TestDirectionalLight(t *testing.T) {
	l := NewDirectionalLight("")
	l.Direction = mgl32.Vec3{0, -1, 0}

	dir, rad := l.CalculateDirect(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0.75)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dir)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, rad)

	_, rad = l.CalculateDirect(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}, 0.75)
	assert.Equal(t, mgl32.Vec3{}, rad)

	rng := rand.New(rand.NewPCG(1, 1))
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, l.RandomLightDirection(rng, mgl32.Vec3{}, 0))
	d := l.RandomLightDirection(rng, mgl32.Vec3{}, 0.05)
	assert.InDelta(t, 1, d.Len(), 1e-5)
	assert.Greater(t, d[1], float32(0.99))
}

func TestPointLight(t *testing.T) {
	l := NewPointLight("g", mgl32.Vec3{0, 2, 0})
	dir, rad := l.CalculateDirect(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0.75)
	assert.True(t, dir.ApproxEqual(mgl32.Vec3{0, 1, 0}))
	window := 1 - math32.Pow(0.2, 4)
	assert.InDelta(t, window/(1+0.75*4), rad[0], 1e-5)

	_, rad = l.CalculateDirect(mgl32.Vec3{0, -20, 0}, mgl32.Vec3{0, 1, 0}, 0.75)
	assert.Equal(t, float32(0), rad[0])

	rng := rand.New(rand.NewPCG(2, 2))
	v := l.RandomLightDirection(rng, mgl32.Vec3{}, 0)
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, v)
}

func TestSpotLight(t *testing.T) {
	l := NewSpotLight("", mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, -1, 0})
	_, center := l.CalculateDirect(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0)
	assert.InDelta(t, 1-math32.Pow(0.2, 4), center[0], 1e-4)

	// Far outside the outer cone.
	_, side := l.CalculateDirect(mgl32.Vec3{8, 1.9, 0}, mgl32.Vec3{1, 0, 0}.Mul(-1), 0)
	assert.Equal(t, float32(0), side[0])

	assert.Equal(t, float32(1), SpotIntensity(1, 0.9, 0.4))
	assert.Equal(t, float32(0), SpotIntensity(0.3, 0.9, 0.4))
	assert.InDelta(t, 0.25, SpotIntensity(0.65, 0.9, 0.4), 1e-5)
}

func TestSceneValidateAggregates(t *testing.T) {
	spot := NewSpotLight("", mgl32.Vec3{}, mgl32.Vec3{0, -1, 0})
	spot.InnerCone, spot.OuterCone = 0.2, 0.8
	ambient := NewAmbientLight("", mgl32.Vec3{0.1, 0.1, 0.1})
	ambient.Rays = 0

	params := DefaultParams()
	params.RayOffset = 0

	s := &Scene{
		Opaque: make([]float32, VertexSize*2),
		Lights: []Light{spot, ambient},
		Params: params,
	}
	err := s.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.True(t, errors.Is(err, ErrNotTriangles))
}

func TestLightValidateAggregates(t *testing.T) {
	spot := NewSpotLight("", mgl32.Vec3{}, mgl32.Vec3{0, -1, 0})
	spot.Size = -1
	spot.Range = -1
	spot.InnerCone, spot.OuterCone = 0.2, 0.8
	errs := multierr.Errors(spot.Validate())
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "negative light size")
	assert.Contains(t, errs[2].Error(), "inner cone")

	assert.NoError(t, NewDirectionalLight("").Validate())
}

func TestGroups(t *testing.T) {
	s := &Scene{Lights: []Light{
		NewDirectionalLight("day"),
		NewPointLight("night", mgl32.Vec3{}),
		NewAmbientLight("day", mgl32.Vec3{0.1, 0.1, 0.1}),
		NewEmissiveLight(""),
	}}
	groups := s.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, "day", groups[0].Name)
	assert.Len(t, groups[0].Lights, 2)
	assert.Equal(t, "night", groups[1].Name)
	assert.Equal(t, "(Unnamed)", groups[2].DisplayName())
}

func TestDefaultParamsValid(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
}
