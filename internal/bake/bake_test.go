package bake

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/lightbaker/internal/scene"
	"github.com/Faultbox/lightbaker/internal/workers"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// quad appends a z-constant rectangle [x0,x1]x[y0,y1] whose lightmap
// coordinates span uv0..uv1. With up set the front face points to +Z.
func quad(mesh []float32, x0, y0, x1, y1, z float32, uv0, uv1 mgl32.Vec2, up bool) []float32 {
	n := mgl32.Vec3{0, 0, 1}
	if !up {
		n = mgl32.Vec3{0, 0, -1}
	}
	corner := func(fx, fy float32) scene.Vertex {
		return scene.Vertex{
			Position:   mgl32.Vec3{x0 + (x1-x0)*fx, y0 + (y1-y0)*fy, z},
			LightmapUV: mgl32.Vec2{uv0[0] + (uv1[0]-uv0[0])*fx, uv0[1] + (uv1[1]-uv0[1])*fy},
			TextureUV:  mgl32.Vec2{fx, fy},
			Normal:     n,
		}
	}
	a, b, c, d := corner(0, 0), corner(1, 0), corner(1, 1), corner(0, 1)
	order := []scene.Vertex{a, b, c, a, c, d}
	if !up {
		order = []scene.Vertex{a, c, b, a, d, c}
	}
	for _, v := range order {
		mesh = scene.AppendVertex(mesh, v)
	}
	return mesh
}

func white(_ []float32, _, _ float32, _ int, emissive bool) mgl32.Vec4 {
	if emissive {
		return mgl32.Vec4{}
	}
	return mgl32.Vec4{1, 1, 1, 1}
}

func testParams() scene.Params {
	p := scene.DefaultParams()
	p.IndirectLighting = false
	return p
}

func testConfig() Config {
	return Config{Threads: 4, Seed: 7, AmbientRaysPerSide: 4, OcclusionRaysPerSide: 4}
}

func sun(diffuse mgl32.Vec3) *scene.DirectionalLight {
	l := scene.NewDirectionalLight("")
	l.Direction = mgl32.Vec3{0, 0, -1}
	l.Diffuse = diffuse
	l.Size = 0
	return l
}

func TestNewValidation(t *testing.T) {
	sc := &scene.Scene{Params: testParams()}
	atlas := Atlas{Size: 16, Margin: 1}

	_, err := New(nil, sc, atlas, Config{})
	assert.ErrorIs(t, err, ErrNoTextureInput)

	_, err = New(TextureFunc(white), sc, Atlas{Size: 0}, Config{})
	assert.ErrorIs(t, err, ErrAtlasSize)

	_, err = New(TextureFunc(white), sc, Atlas{Size: 16, Rects: []lmath.Rect{lmath.NewRect(8, 8, 16, 4)}}, Config{})
	assert.ErrorIs(t, err, ErrAtlasRect)

	bad := &scene.Scene{Opaque: make([]float32, scene.VertexSize+1), Params: testParams()}
	_, err = New(TextureFunc(white), bad, atlas, Config{})
	assert.ErrorIs(t, err, scene.ErrInvalidVertexSize)

	l, err := New(TextureFunc(white), sc, atlas, Config{})
	require.NoError(t, err)
	assert.Equal(t, MaxAmbientCubes, l.cfg.MaxAmbientCubes)
	assert.Equal(t, AmbientCubeRaysPerSide, l.cfg.AmbientRaysPerSide)
}

func TestRasterizeCoverage(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0.25, 0.25}, mgl32.Vec2{0.75, 0.75}, true)
	sc := &scene.Scene{Opaque: mesh, Params: testParams()}
	sc.Params.SamplingMode = scene.Sample1
	l, err := New(TextureFunc(white), sc, Atlas{Size: 16, Rects: []lmath.Rect{lmath.NewRect(2, 2, 12, 12)}}, Config{})
	require.NoError(t, err)

	r := l.newRun(newStatus())
	require.NoError(t, r.rasterize(context.Background()))

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			inside := x >= 4 && x < 12 && y >= 4 && y < 12
			st := r.samples.state(x, y, 0)
			assert.Equal(t, inside, st&StateFilled != 0, "texel %d,%d", x, y)
			if !inside {
				continue
			}
			// The weights reproduce the world position of the texel center.
			i := r.samples.index(x, y, 0)
			p := l.lerp3(r.samples.weights[i], int(r.samples.triangles[i]), scene.OffsetPosition)
			assert.InDelta(t, (float32(x)+0.5-4)/8, p[0], 1e-4)
			assert.InDelta(t, (float32(y)+0.5-4)/8, p[1], 1e-4)
		}
	}
}

func TestRasterizeDither(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, true)
	sc := &scene.Scene{Opaque: mesh, Params: testParams()}
	sc.Params.SamplingMode = scene.Sample1

	tests := []struct {
		name   string
		rects  []lmath.Rect
		dither bool
	}{
		{"large island", []lmath.Rect{lmath.NewRect(0, 0, 64, 64)}, true},
		{"small island nearby", []lmath.Rect{lmath.NewRect(0, 0, 64, 64), lmath.NewRect(10, 10, 8, 8)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(TextureFunc(white), sc, Atlas{Size: 64, Rects: tt.rects}, Config{})
			require.NoError(t, err)
			r := l.newRun(newStatus())
			require.NoError(t, r.rasterize(context.Background()))

			for _, texel := range [][2]int{{2, 0}, {3, 0}, {3, 1}, {0, 1}, {4, 2}} {
				x, y := texel[0], texel[1]
				st := r.samples.state(x, y, 0)
				require.NotZero(t, st&StateFilled)
				if !tt.dither {
					assert.Equal(t, StateFilled, st)
					continue
				}
				assert.Equal(t, !lmath.Dither50(x, y), st&StateIgnoreShadow != 0)
				assert.Equal(t, !lmath.Dither25(x, y), st&StateIgnoreAmbient != 0)
			}
		})
	}
}

func TestBakeSingleQuad(t *testing.T) {
	diffuse := mgl32.Vec3{0.8, 0.6, 0.4}
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{8.0 / 64, 8.0 / 64}, mgl32.Vec2{56.0 / 64, 56.0 / 64}, true)
	sc := &scene.Scene{
		Opaque: mesh,
		Lights: []scene.Light{sun(diffuse)},
		Params: testParams(),
	}
	atlas := Atlas{Size: 64, Margin: 2, Rects: []lmath.Rect{lmath.NewRect(4, 4, 56, 56)}}
	l, err := New(TextureFunc(white), sc, atlas, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Lightmaps, 1)
	assert.Equal(t, []string{""}, out.Names)
	assert.Len(t, out.Lightmaps[0], 64*64*3)
	assert.Len(t, out.Color, 64*64*4)

	for y := 4; y < 60; y++ {
		for x := 4; x < 60; x++ {
			c := out.Lightmap(0, x, y)
			for i := 0; i < 3; i++ {
				require.InDelta(t, diffuse[i], c[i], 1e-3, "texel %d,%d", x, y)
			}
		}
	}
	// Outside the island nothing is written.
	assert.Equal(t, mgl32.Vec3{}, out.Lightmap(0, 1, 1))
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, out.ColorAt(32, 32))
}

// floorAndCover builds a unit floor facing up and a larger cover above it
// facing down. The floor uses the left half of the atlas and the cover the
// right half.
func floorAndCover() (floor, cover []float32, rects []lmath.Rect) {
	floor = quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{0.5, 1}, true)
	cover = quad(nil, -1, -1, 2, 2, 0.5, mgl32.Vec2{0.5, 0}, mgl32.Vec2{1, 1}, false)
	rects = []lmath.Rect{lmath.NewRect(0, 0, 32, 64), lmath.NewRect(32, 0, 32, 64)}
	return floor, cover, rects
}

func TestBakeOpaqueOccluder(t *testing.T) {
	floor, cover, rects := floorAndCover()
	sc := &scene.Scene{
		Opaque: append(floor, cover...),
		Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})},
		Params: testParams(),
	}
	l, err := New(TextureFunc(white), sc, Atlas{Size: 64, Margin: 1, Rects: rects}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	for y := 2; y < 62; y++ {
		for x := 2; x < 30; x++ {
			assert.InDelta(t, 0, out.Lightmap(0, x, y).Len(), 1e-4, "texel %d,%d", x, y)
		}
	}
}

func TestBakeAlphaShadowBlend(t *testing.T) {
	floor, cover, rects := floorAndCover()
	sc := &scene.Scene{
		Opaque: floor,
		Alpha:  cover,
		Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})},
		Params: testParams(),
	}
	// Floor triangles come first; the two cover triangles are red glass.
	texture := TextureFunc(func(_ []float32, _, _ float32, triangle int, emissive bool) mgl32.Vec4 {
		switch {
		case emissive:
			return mgl32.Vec4{}
		case triangle >= 2:
			return mgl32.Vec4{1, 0, 0, 0.5}
		}
		return mgl32.Vec4{1, 1, 1, 1}
	})
	l, err := New(texture, sc, Atlas{Size: 64, Margin: 1, Rects: rects}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)

	want := mgl32.Vec3{1, 0.5, 0.5}
	for y := 2; y < 62; y++ {
		for x := 2; x < 30; x++ {
			c := out.Lightmap(0, x, y)
			for i := 0; i < 3; i++ {
				require.InDelta(t, want[i], c[i], 1e-3, "texel %d,%d", x, y)
			}
		}
	}
}

func TestBakeShadowsDisabled(t *testing.T) {
	floor, cover, rects := floorAndCover()
	sc := &scene.Scene{
		Opaque: append(floor, cover...),
		Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})},
		Params: testParams(),
	}
	sc.Params.Shadows = false
	l, err := New(TextureFunc(white), sc, Atlas{Size: 64, Margin: 1, Rects: rects}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Lightmap(0, 16, 32)[0], 1e-4)
}

func TestBakeAmbientFillWithoutShadows(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, true)
	sc := &scene.Scene{
		Opaque: mesh,
		Lights: []scene.Light{scene.NewAmbientLight("", mgl32.Vec3{0.2, 0.2, 0.2})},
		Params: testParams(),
	}
	sc.Params.Shadows = false
	sc.Params.FillEmptyValuesWithLightColors = true
	l, err := New(TextureFunc(white), sc, Atlas{Size: 16, Margin: 1, Rects: []lmath.Rect{lmath.NewRect(0, 0, 16, 16)}}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	// Only the fill contributes; the ambient light itself is not traced.
	c := out.Lightmap(0, 8, 8)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0.2, c[i], 1e-4)
	}
}

func TestBakeAlphaLayerOrder(t *testing.T) {
	floor := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{0.5, 1}, true)
	red := quad(nil, -1, -1, 2, 2, 0.5, mgl32.Vec2{0.5, 0}, mgl32.Vec2{0.75, 1}, false)
	blue := quad(nil, -1, -1, 2, 2, 0.75, mgl32.Vec2{0.75, 0}, mgl32.Vec2{1, 1}, false)
	sc := &scene.Scene{
		Opaque: floor,
		Alpha:  append(red, blue...),
		Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})},
		Params: testParams(),
	}
	texture := TextureFunc(func(_ []float32, _, _ float32, triangle int, emissive bool) mgl32.Vec4 {
		switch {
		case emissive:
			return mgl32.Vec4{}
		case triangle >= 4:
			return mgl32.Vec4{0, 0, 1, 0.5}
		case triangle >= 2:
			return mgl32.Vec4{1, 0, 0, 0.5}
		}
		return mgl32.Vec4{1, 1, 1, 1}
	})
	rects := []lmath.Rect{lmath.NewRect(0, 0, 32, 64), lmath.NewRect(32, 0, 16, 64), lmath.NewRect(48, 0, 16, 64)}
	l, err := New(texture, sc, Atlas{Size: 64, Margin: 1, Rects: rects}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)

	// Red is nearest to the floor and blended first; blue ends on top.
	want := mgl32.Vec3{0.5, 0.25, 0.75}
	c := out.Lightmap(0, 16, 32)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], c[i], 1e-3)
	}
}

func TestBakeEmissive(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, true)
	sc := &scene.Scene{
		Opaque: mesh,
		Lights: []scene.Light{scene.NewEmissiveLight("glow")},
		Params: testParams(),
	}
	texture := TextureFunc(func(_ []float32, _, _ float32, _ int, emissive bool) mgl32.Vec4 {
		if emissive {
			return mgl32.Vec4{0.5, 0.25, 0, 1}
		}
		return mgl32.Vec4{1, 1, 1, 1}
	})
	l, err := New(texture, sc, Atlas{Size: 32, Margin: 1, Rects: []lmath.Rect{lmath.NewRect(0, 0, 32, 32)}}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Group("glow"))
	e := out.EmissiveAt(0, 16, 16)
	assert.InDelta(t, 0.5, e[0], 1e-4)
	assert.InDelta(t, 0.25, e[1], 1e-4)
	// Nothing else in the scene receives the emitted light.
	assert.InDelta(t, 0, out.Lightmap(0, 16, 16).Len(), 1e-4)
}

func TestBakeDeterministicAcrossThreads(t *testing.T) {
	floor, cover, _ := floorAndCover()
	point := scene.NewPointLight("", mgl32.Vec3{0.5, 0.5, 0.25})
	sc := &scene.Scene{
		Opaque: floor,
		Alpha:  cover,
		Lights: []scene.Light{point, scene.NewAmbientLight("", mgl32.Vec3{0.1, 0.1, 0.1})},
		Params: testParams(),
	}
	sc.Params.IndirectLighting = true
	sc.Params.IndirectBounces = 2
	sc.Params.IndirectRaysPerSample = 2
	sc.Params.SamplingMode = scene.Sample1

	bake := func(threads int) *Output {
		cfg := testConfig()
		cfg.Threads = threads
		l, err := New(TextureFunc(white), sc, Atlas{Size: 32, Margin: 1, Rects: []lmath.Rect{lmath.NewRect(0, 0, 16, 32), lmath.NewRect(16, 0, 16, 32)}}, cfg)
		require.NoError(t, err)
		out, err := l.Bake(context.Background())
		require.NoError(t, err)
		return out
	}

	a, b := bake(1), bake(3)
	assert.Equal(t, a.Lightmaps, b.Lightmaps)
	assert.Equal(t, a.AmbientCubes.Len(), b.AmbientCubes.Len())
}

func TestAmbientCubePlacement(t *testing.T) {
	floor, cover, rects := floorAndCover()
	sc := &scene.Scene{
		Opaque: floor,
		Alpha:  cover,
		Lights: []scene.Light{scene.NewAmbientLight("sky", mgl32.Vec3{0.2, 0.3, 0.4})},
		Params: testParams(),
	}
	l, err := New(TextureFunc(white), sc, Atlas{Size: 64, Margin: 1, Rects: rects}, testConfig())
	require.NoError(t, err)

	out, err := l.Bake(context.Background())
	require.NoError(t, err)
	require.NotZero(t, out.AmbientCubes.Len())
	for _, c := range out.AmbientCubes.Cubes() {
		assert.False(t, l.opaque.FastTestSphere(c.Position, AmbientCubeDistanceFromWalls))
		assert.False(t, l.alpha.FastTestSphere(c.Position, AmbientCubeDistanceFromWalls))
		assert.Len(t, c.Cubes, 1)
	}
}

// box appends a closed box [lo, hi] with outward facing triangles. All
// lightmap coordinates collapse to uv.
func box(mesh []float32, lo, hi mgl32.Vec3, uv mgl32.Vec2) []float32 {
	size := hi.Sub(lo)
	dx, dy, dz := mgl32.Vec3{size[0], 0, 0}, mgl32.Vec3{0, size[1], 0}, mgl32.Vec3{0, 0, size[2]}
	faces := []struct{ origin, u, v mgl32.Vec3 }{
		{lo, dy, dx},
		{lo.Add(dz), dx, dy},
		{lo, dz, dy},
		{lo.Add(dx), dy, dz},
		{lo, dx, dz},
		{lo.Add(dy), dz, dx},
	}
	for _, f := range faces {
		n := f.u.Cross(f.v).Normalize()
		a, b, c, d := f.origin, f.origin.Add(f.u), f.origin.Add(f.u).Add(f.v), f.origin.Add(f.v)
		for _, p := range []mgl32.Vec3{a, b, c, a, c, d} {
			mesh = scene.AppendVertex(mesh, scene.Vertex{Position: p, LightmapUV: uv, Normal: n})
		}
	}
	return mesh
}

func TestAmbientCubePlacementRandomScenes(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	for seed := 0; seed < 5; seed++ {
		// Boxes sit in separate slots along X so they never overlap.
		var mesh []float32
		var boxes [][2]mgl32.Vec3
		n := 1 + rng.IntN(3)
		for i := 0; i < n; i++ {
			lo := mgl32.Vec3{float32(i)*4 + rng.Float32(), rng.Float32()*2 - 1, rng.Float32()*2 - 1}
			hi := lo.Add(mgl32.Vec3{0.5 + rng.Float32()*1.5, 0.5 + rng.Float32()*1.5, 0.5 + rng.Float32()*1.5})
			mesh = box(mesh, lo, hi, mgl32.Vec2{0.5, 0.5})
			boxes = append(boxes, [2]mgl32.Vec3{lo, hi})
		}

		sc := &scene.Scene{Opaque: mesh, Params: testParams()}
		cfg := testConfig()
		cfg.MaxAmbientCubes = 2000
		cfg.Seed = uint64(seed)
		l, err := New(TextureFunc(white), sc, Atlas{Size: 16, Rects: []lmath.Rect{lmath.NewRect(0, 0, 16, 16)}}, cfg)
		require.NoError(t, err)

		r := l.newRun(newStatus())
		require.NoError(t, r.placeAmbientCubes(context.Background()))
		require.NotEmpty(t, r.cubes, "scene %d", seed)
		for _, c := range r.cubes {
			p := c.Position
			assert.False(t, l.opaque.FastTestSphere(p, AmbientCubeDistanceFromWalls), "scene %d cube at %v", seed, p)
			for _, b := range boxes {
				inside := p[0] > b[0][0] && p[0] < b[1][0] && p[1] > b[0][1] && p[1] < b[1][1] && p[2] > b[0][2] && p[2] < b[1][2]
				assert.False(t, inside, "scene %d cube at %v inside box %v", seed, p, b)
			}
		}
	}
}

func TestAmbientCubeGrid(t *testing.T) {
	nx, ny, nz := probeGrid(mgl32.Vec3{2, 0.1, 0}, 0.5)
	assert.Equal(t, [3]int{4, 1, 1}, [3]int{nx, ny, nz})
	nx, _, _ = probeGrid(mgl32.Vec3{2.01, 0, 0}, 0.5)
	assert.Equal(t, 5, nx)
}

func TestProbeBudget(t *testing.T) {
	floor, _, rects := floorAndCover()
	sc := &scene.Scene{Opaque: floor, Params: testParams()}
	cfg := testConfig()
	cfg.MaxAmbientCubes = 4
	l, err := New(TextureFunc(white), sc, Atlas{Size: 64, Rects: rects}, cfg)
	require.NoError(t, err)

	r := l.newRun(newStatus())
	require.NoError(t, r.placeAmbientCubes(context.Background()))
	assert.LessOrEqual(t, len(r.cubes), 4)
	_, total := r.status.ProgressCount()
	assert.LessOrEqual(t, total, int64(4))
}

func TestIndirectCollapse(t *testing.T) {
	tr := &indirectTracer{}

	// One opaque grey layer lit with white.
	tr.nodes = []indirectNode{{color: mgl32.Vec4{0.5, 0.5, 0.5, 1}, light: mgl32.Vec3{1, 1, 1}, reflected: noNode, refracted: noNode}}
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, tr.collapse())

	// Half transparent red glass in front of a lit white wall.
	tr.nodes = []indirectNode{
		{color: mgl32.Vec4{1, 0, 0, 0.5}, reflected: noNode, refracted: 1},
		{color: mgl32.Vec4{1, 1, 1, 1}, light: mgl32.Vec3{1, 1, 1}, reflected: noNode, refracted: noNode},
	}
	got := tr.collapse()
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0.25, got[1], 1e-6)
	assert.InDelta(t, 0.25, got[2], 1e-6)

	// A bounce adds to the light reflected by its layer.
	tr.nodes = []indirectNode{
		{color: mgl32.Vec4{1, 1, 1, 1}, light: mgl32.Vec3{0.5, 0.5, 0.5}, reflected: 1, refracted: noNode},
		{color: mgl32.Vec4{0.5, 0.5, 0.5, 1}, light: mgl32.Vec3{1, 1, 1}, reflected: noNode, refracted: noNode},
	}
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.collapse())
}

func TestBakeCancelled(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, true)
	sc := &scene.Scene{Opaque: mesh, Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})}, Params: testParams()}
	l, err := New(TextureFunc(white), sc, Atlas{Size: 16, Rects: []lmath.Rect{lmath.NewRect(0, 0, 16, 16)}}, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status := l.BakeAsync(ctx)

	wait, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	out, err := status.Wait(wait)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, status.IsDone())
	assert.ErrorIs(t, status.Err(), context.Canceled)
}

func TestBakePanicBecomesError(t *testing.T) {
	mesh := quad(nil, 0, 0, 1, 1, 0, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 1}, true)
	sc := &scene.Scene{Opaque: mesh, Lights: []scene.Light{sun(mgl32.Vec3{1, 1, 1})}, Params: testParams()}
	texture := TextureFunc(func([]float32, float32, float32, int, bool) mgl32.Vec4 {
		panic("missing material")
	})
	l, err := New(texture, sc, Atlas{Size: 16, Rects: []lmath.Rect{lmath.NewRect(0, 0, 16, 16)}}, testConfig())
	require.NoError(t, err)

	status := l.BakeAsync(context.Background())
	<-status.Done()
	require.Error(t, status.Err())
	assert.True(t, errors.Is(status.Err(), workers.ErrTaskPanic))
	assert.Contains(t, status.Err().Error(), "missing material")
	assert.Nil(t, status.Output())
}

func TestApproximateMemoryUsage(t *testing.T) {
	assert.Equal(t, int64(1183744), ApproximateMemoryUsage(64, 9, 2))
	assert.Greater(t, ApproximateMemoryUsage(64, 9, 3), ApproximateMemoryUsage(64, 9, 2))
	assert.Greater(t, ApproximateMemoryUsage(128, 9, 2), ApproximateMemoryUsage(64, 9, 2))
}

func TestStatus(t *testing.T) {
	s := newStatus()
	assert.Equal(t, "Idle", s.Phase())
	assert.Equal(t, 0.0, s.Progress())
	assert.Equal(t, "[..........]", s.ProgressBar(10))

	s.setPhase("Baking", 4)
	s.addProgress(2)
	s.addRays(100)
	assert.Equal(t, "Baking", s.Phase())
	assert.Equal(t, 0.5, s.Progress())
	assert.Equal(t, "[#####.....]", s.ProgressBar(10))
	assert.Equal(t, int64(100), s.Rays())
	assert.GreaterOrEqual(t, s.Remaining(), time.Duration(0))
	assert.Contains(t, s.String(), "Baking")

	s.setPhase("Next", 1)
	assert.Equal(t, int64(0), s.Rays())
	assert.False(t, s.IsDone())

	s.finish(&Output{Size: 1}, nil)
	assert.True(t, s.IsDone())
	out, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Size)
	assert.NotEqual(t, s.ID.String(), newStatus().ID.String())
}
