// Package bake is the offline lightmapper. It rasterizes a scene into a UV
// atlas, traces direct, shadowed and indirect lighting per light group, and
// samples ambient cube probes for dynamic objects.
package bake

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/lightbaker/internal/ambient"
	"github.com/Faultbox/lightbaker/internal/scene"
	"github.com/Faultbox/lightbaker/internal/workers"
	"github.com/Faultbox/lightbaker/pkg/bvh"
	lmath "github.com/Faultbox/lightbaker/pkg/math"
	"github.com/Faultbox/lightbaker/pkg/postprocess"
)

// Bake constants.
const (
	// DefaultMarginIterations is the dilation depth applied between passes.
	DefaultMarginIterations = 4
	// IgnoreTriggerSize is the island side below which dithered sample
	// skipping is disabled for overlapping triangles.
	IgnoreTriggerSize = 32

	AmbientCubeInitialRadius        = 0.5
	AmbientCubeDistanceFromWalls    = 0.05
	MaxAmbientCubes                 = 1_000_000
	MaxAmbientCubesFastMode         = 10_000
	AmbientCubeOcclusionRaysPerSide = 24
	AmbientCubeRaysPerSide          = 1024
)

var (
	// ErrAtlasSize is returned for a non-positive atlas size or negative margin.
	ErrAtlasSize = errors.New("invalid atlas size")
	// ErrAtlasRect is returned when an island rectangle leaves the atlas.
	ErrAtlasRect = errors.New("island rectangle outside atlas")
	// ErrNoTextureInput is returned when no texture callback is given.
	ErrNoTextureInput = errors.New("no texture input")
)

// TextureInput supplies surface colors. TextureColor returns the base color
// (or, with emissive set, the emissive color in rgb) of triangle at texture
// coordinates (u, v). mesh is the combined opaque then alpha vertex buffer
// and triangle indexes its triangles. It is only called from the bake
// driver goroutine.
type TextureInput interface {
	TextureColor(mesh []float32, u, v float32, triangle int, emissive bool) mgl32.Vec4
}

// TextureFunc adapts a function to TextureInput.
type TextureFunc func(mesh []float32, u, v float32, triangle int, emissive bool) mgl32.Vec4

// TextureColor calls f.
func (f TextureFunc) TextureColor(mesh []float32, u, v float32, triangle int, emissive bool) mgl32.Vec4 {
	return f(mesh, u, v, triangle, emissive)
}

// Atlas describes the lightmap layout: a square of Size texels holding the
// UV islands in Rects, with Margin texels of padding around each.
type Atlas struct {
	Size   int
	Margin int
	Rects  []lmath.Rect
}

// Config holds the execution settings of a bake. Zero values select the
// defaults.
type Config struct {
	// Threads is the worker pool size; zero uses every CPU.
	Threads int
	// Seed makes the stochastic passes reproducible.
	Seed uint64
	// Logger receives phase transitions at debug level.
	Logger *zap.Logger

	MaxAmbientCubes      int
	AmbientRaysPerSide   int
	OcclusionRaysPerSide int
}

// Lightmapper holds a validated bake request. It is immutable; each Bake
// call allocates its own working buffers.
type Lightmapper struct {
	input  TextureInput
	params scene.Params
	atlas  Atlas
	cfg    Config
	log    *zap.Logger

	mesh        []float32
	opaqueCount int
	opaque      *bvh.BVH
	alpha       *bvh.BVH
	groups      []scene.Group
}

// New validates the scene and atlas and builds the acceleration structures.
// Malformed input fails here, before any bake work.
func New(input TextureInput, sc *scene.Scene, atlas Atlas, cfg Config) (*Lightmapper, error) {
	if input == nil {
		return nil, ErrNoTextureInput
	}
	if atlas.Size <= 0 || atlas.Margin < 0 {
		return nil, fmt.Errorf("%w: size %d, margin %d", ErrAtlasSize, atlas.Size, atlas.Margin)
	}
	bounds := lmath.NewRect(0, 0, atlas.Size, atlas.Size)
	for i, r := range atlas.Rects {
		if r.Empty() || r.MinX < bounds.MinX || r.MinY < bounds.MinY || r.MaxX > bounds.MaxX || r.MaxY > bounds.MaxY {
			return nil, fmt.Errorf("%w: rect %d %+v", ErrAtlasRect, i, r)
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene: %w", err)
	}

	opaqueMesh, err := scene.PrepareMesh(sc.Opaque)
	if err != nil {
		return nil, fmt.Errorf("opaque mesh: %w", err)
	}
	alphaMesh, err := scene.PrepareMesh(sc.Alpha)
	if err != nil {
		return nil, fmt.Errorf("alpha mesh: %w", err)
	}
	opaque, err := bvh.New(opaqueMesh, nil, scene.VertexSize, scene.OffsetPosition)
	if err != nil {
		return nil, fmt.Errorf("opaque bvh: %w", err)
	}
	alpha, err := bvh.New(alphaMesh, nil, scene.VertexSize, scene.OffsetPosition)
	if err != nil {
		return nil, fmt.Errorf("alpha bvh: %w", err)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxAmbientCubes <= 0 {
		cfg.MaxAmbientCubes = MaxAmbientCubes
		if sc.Params.FastMode {
			cfg.MaxAmbientCubes = MaxAmbientCubesFastMode
		}
	}
	if cfg.AmbientRaysPerSide <= 0 {
		cfg.AmbientRaysPerSide = AmbientCubeRaysPerSide
	}
	if cfg.OcclusionRaysPerSide <= 0 {
		cfg.OcclusionRaysPerSide = AmbientCubeOcclusionRaysPerSide
	}

	mesh := make([]float32, 0, len(opaqueMesh)+len(alphaMesh))
	mesh = append(append(mesh, opaqueMesh...), alphaMesh...)

	return &Lightmapper{
		input:       input,
		params:      sc.Params,
		atlas:       atlas,
		cfg:         cfg,
		log:         cfg.Logger,
		mesh:        mesh,
		opaqueCount: opaque.Len(),
		opaque:      opaque,
		alpha:       alpha,
		groups:      sc.Groups(),
	}, nil
}

// Groups returns the light groups in output order.
func (l *Lightmapper) Groups() []scene.Group {
	return l.groups
}

// Triangles returns the number of opaque and alpha triangles.
func (l *Lightmapper) Triangles() (opaque, alpha int) {
	return l.opaque.Len(), l.alpha.Len()
}

// MemoryUsage estimates the bytes allocated by one bake.
func (l *Lightmapper) MemoryUsage() int64 {
	return ApproximateMemoryUsage(l.atlas.Size, l.params.SamplingMode.NumSamples(), len(l.groups))
}

// Bake runs the whole pipeline and returns its output. Cancellation is
// observed between worker batches and phases.
func (l *Lightmapper) Bake(ctx context.Context) (*Output, error) {
	status := newStatus()
	out, err := l.bake(ctx, status)
	status.finish(out, err)
	return out, err
}

// BakeAsync starts the pipeline on a new goroutine and returns its status
// for polling. The status carries the output or the error once done.
func (l *Lightmapper) BakeAsync(ctx context.Context) *Status {
	status := newStatus()
	go func() {
		out, err := l.bake(ctx, status)
		status.finish(out, err)
	}()
	return status
}

func (l *Lightmapper) bake(ctx context.Context, status *Status) (out *Output, err error) {
	r := l.newRun(status)
	log := r.log

	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("%w: bake driver: %v", workers.ErrTaskPanic, p)
		}
		if err != nil {
			log.Error("Bake failed", zap.Error(err), zap.String("phase", status.Phase()))
		}
	}()

	opaque, alpha := l.Triangles()
	log.Info("Bake started",
		zap.Int("size", l.atlas.Size),
		zap.Int("islands", len(l.atlas.Rects)),
		zap.Int("opaque_triangles", opaque),
		zap.Int("alpha_triangles", alpha),
		zap.Int("groups", len(l.groups)),
		zap.Int("threads", r.pool.Size()))
	start := time.Now()

	out, err = r.execute(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Bake finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("ambient_cubes", out.AmbientCubes.Len()))
	return out, nil
}

// run is the mutable state of a single bake.
type run struct {
	l      *Lightmapper
	status *Status
	log    *zap.Logger
	pool   *workers.Pool
	size   int

	// stream numbers the stochastic passes for seeding.
	stream uint64

	samples         *sampleBuffers
	textureColors   *float4Image
	textureEmissive *float3Image
	cubes           []*ambient.LightmapAmbientCube
}

// groupPass holds the buffers of the light group being baked.
type groupPass struct {
	index    int
	group    scene.Group
	lightmap *float3Image
	indirect *float3Image
	emissive *float3Image
}

// lightPass holds the buffers of the light being baked.
type lightPass struct {
	index  int
	light  scene.Light
	direct *float3Image
	shadow *float3Image
}

func (l *Lightmapper) newRun(status *Status) *run {
	return &run{
		l:      l,
		status: status,
		log:    l.log.With(zap.String("bake", status.ID.String())),
		pool:   workers.New(l.cfg.Threads),
		size:   l.atlas.Size,

		samples:         newSampleBuffers(l.atlas.Size, l.params.SamplingMode.NumSamples()),
		textureColors:   newFloat4Image(l.atlas.Size),
		textureEmissive: newFloat3Image(l.atlas.Size),
	}
}

func (r *run) phase(name string, total int) {
	r.log.Debug("Phase", zap.String("phase", name), zap.Int("total", total))
	r.status.setPhase(name, total)
}

// rng returns the generator of one task of the current stream.
func (r *run) rng(stream uint64, task int) *rand.Rand {
	return rand.New(rand.NewPCG(r.l.cfg.Seed^(stream*0x9e3779b97f4a7c15), uint64(task)))
}

func (r *run) nextStream() uint64 {
	r.stream++
	return r.stream
}

// rows runs fn for every atlas row on the pool, reporting one progress unit
// per row.
func (r *run) rows(ctx context.Context, fn func(y int) error) error {
	return r.pool.Run(ctx, r.size, fn, r.status.addProgress)
}

func (r *run) execute(ctx context.Context) (*Output, error) {
	l := r.l
	steps := []func(context.Context) error{
		r.rasterize,
		r.readTextureColors,
		r.readTextureEmissiveColors,
		r.generateTextureMargins,
		r.placeAmbientCubes,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	out := &Output{
		Size:      r.size,
		Names:     make([]string, len(l.groups)),
		Lightmaps: make([][]float32, len(l.groups)),
		Emissive:  make([][]float32, len(l.groups)),
	}
	for i, group := range l.groups {
		if err := r.bakeGroup(ctx, out, i, group); err != nil {
			return nil, err
		}
	}

	r.phase("Generating Ambient Cube BVH", 1)
	out.AmbientCubes = ambient.NewBVH(r.cubes)
	r.status.addProgress(1)

	out.Color = r.textureColors.data
	r.phase("Done", 1)
	r.status.addProgress(1)
	return out, nil
}

func (r *run) bakeGroup(ctx context.Context, out *Output, index int, group scene.Group) error {
	p := &r.l.params
	name := group.DisplayName()

	r.phase("Preparing Lightmap "+name, 1)
	g := &groupPass{
		index:    index,
		group:    group,
		lightmap: newFloat3Image(r.size),
		indirect: newFloat3Image(r.size),
		emissive: newFloat3Image(r.size),
	}
	r.status.addProgress(1)

	for i, light := range group.Lights {
		if p.FastMode && isGathered(light) {
			continue
		}
		if err := r.bakeLight(ctx, g, i, light); err != nil {
			return err
		}
	}

	r.margins(name+" - Finishing Lightmap Margins", g.lightmap, 0, r.l.atlas.Margin*2)
	r.margins(name+" - Finishing Emissive Margins", g.emissive, 0, r.l.atlas.Margin*2)

	if p.IndirectLighting && !p.FastMode {
		if err := r.bakeIndirect(ctx, g); err != nil {
			return err
		}
		r.margins(name+" - Generating Indirect Margins", g.indirect, StateIgnoreAmbient, DefaultMarginIterations)
		r.denoise(name+" - Denoising Indirect", g.indirect, p.IndirectBlurArea)
		r.margins(name+" - Finishing Indirect Margins", g.indirect, 0, r.l.atlas.Margin*2)
	}
	r.outputIndirect(g)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.sampleAmbientCubes(ctx, g); err != nil {
		return err
	}

	r.phase(name+" - Finishing Lightmap", 1)
	out.Names[index] = group.Name
	out.Lightmaps[index] = g.lightmap.data
	out.Emissive[index] = g.emissive.data
	r.status.addProgress(1)
	return nil
}

func (r *run) bakeLight(ctx context.Context, g *groupPass, index int, light scene.Light) error {
	p := &r.l.params
	lp := &lightPass{
		index:  index,
		light:  light,
		direct: newFloat3Image(r.size),
		shadow: newFloat3Image(r.size),
	}
	label := func(step string) string {
		return fmt.Sprintf("%s - %s - %d, %s", g.group.DisplayName(), step, index, lightKind(light))
	}

	r.phase(label("Baking Direct"), r.size)
	if err := r.bakeDirect(ctx, lp); err != nil {
		return err
	}
	r.margins(label("Generating Direct Margins"), lp.direct, 0, DefaultMarginIterations)

	if p.Shadows {
		r.phase(label("Baking Shadow"), r.size)
		if err := r.bakeShadow(ctx, lp); err != nil {
			return err
		}
		r.margins(label("Generating Shadow Margins"), lp.shadow, StateIgnoreShadow, DefaultMarginIterations)
		r.denoise(label("Denoising Shadow"), lp.shadow, r.shadowBlurArea(light))
	}

	r.phase(label("Writing to Lightmap"), r.size)
	r.outputLight(g, lp)
	return ctx.Err()
}

// isGathered reports whether the light is integrated over the hemisphere
// rather than sampled along a light direction.
func isGathered(light scene.Light) bool {
	switch light.(type) {
	case *scene.AmbientLight, *scene.EmissiveLight:
		return true
	}
	return false
}

func lightKind(light scene.Light) string {
	switch light.(type) {
	case *scene.DirectionalLight:
		return "DirectionalLight"
	case *scene.PointLight:
		return "PointLight"
	case *scene.SpotLight:
		return "SpotLight"
	case *scene.AmbientLight:
		return "AmbientLight"
	case *scene.EmissiveLight:
		return "EmissiveLight"
	}
	return fmt.Sprintf("%T", light)
}

// margins dilates buf inside every island for the given generations. Texels
// without a filled sample free of ignore count as empty.
func (r *run) margins(name string, buf texelBuffer, ignore State, generations int) {
	r.phase(name, len(r.l.atlas.Rects))
	for _, rect := range r.l.atlas.Rects {
		postprocess.GenerateMargin(&marginView{samples: r.samples, buf: buf, rect: rect, ignore: ignore}, generations)
		r.status.addProgress(1)
	}
}

// denoise blurs buf inside every island. A zero area skips the phase.
func (r *run) denoise(name string, buf *float3Image, area float32) {
	if area <= 0 {
		return
	}
	r.phase(name, len(r.l.atlas.Rects))
	for _, rect := range r.l.atlas.Rects {
		postprocess.GaussianBlur(&blurView{samples: r.samples, buf: buf, rect: rect}, postprocess.DefaultKernelSize, area)
		r.status.addProgress(1)
	}
}

// triangleBase returns the offset of triangle t in the combined mesh.
func triangleBase(t int) int {
	return t * scene.TriangleSize
}

// lerp interpolates the attribute at offset across triangle t.
func (l *Lightmapper) lerp(w mgl32.Vec3, t, offset int) float32 {
	base := triangleBase(t) + offset
	return lmath.Lerp3(w, l.mesh[base], l.mesh[base+scene.VertexSize], l.mesh[base+2*scene.VertexSize])
}

func (l *Lightmapper) lerp3(w mgl32.Vec3, t, offset int) mgl32.Vec3 {
	return mgl32.Vec3{l.lerp(w, t, offset), l.lerp(w, t, offset+1), l.lerp(w, t, offset+2)}
}

// triangleNormal returns the stored face normal of triangle t.
func (l *Lightmapper) triangleNormal(t int) mgl32.Vec3 {
	base := triangleBase(t) + scene.OffsetTriangleNormal
	return mgl32.Vec3{l.mesh[base], l.mesh[base+1], l.mesh[base+2]}
}

// texel maps a hit to the atlas texel under its lightmap coordinates.
func (r *run) texel(h bvh.Hit) (x, y int) {
	s := float32(r.size)
	x = lmath.Clamp(int(h.Lerp(scene.OffsetLightmapUV)*s), 0, r.size-1)
	y = lmath.Clamp(int(h.Lerp(scene.OffsetLightmapUV+1)*s), 0, r.size-1)
	return x, y
}
