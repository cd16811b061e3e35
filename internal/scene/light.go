package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Light defaults.
const (
	DefaultLightSize  = 0.05
	DefaultRange      = 10
	DefaultInnerAngle = 25
	DefaultOuterAngle = 65
	DefaultLightRays  = 32
	DefaultLightBlur  = 4
)

// Light is one of DirectionalLight, PointLight, SpotLight, AmbientLight or
// EmissiveLight. The set is closed; callers switch on the concrete type.
type Light interface {
	// CalculateDirect returns the unit direction towards the light and the
	// unshadowed radiance reaching a surface at position with normal.
	CalculateDirect(position, normal mgl32.Vec3, attenuation float32) (direction, radiance mgl32.Vec3)
	// RandomLightDirection returns a jittered direction towards a random
	// point of a light of radius size. For lights with a position the
	// vector is not normalized and its length is the distance to the point.
	RandomLightDirection(rng *rand.Rand, position mgl32.Vec3, size float32) mgl32.Vec3
	GroupName() string
	LightSize() float32
	Validate() error

	isLight()
}

// Base holds the fields shared by every light.
type Base struct {
	Group   string
	Size    float32
	Diffuse mgl32.Vec3
}

func (b *Base) GroupName() string  { return b.Group }
func (b *Base) LightSize() float32 { return b.Size }
func (*Base) isLight()             {}

func (b *Base) validate() error {
	var err error
	if b.Size < 0 {
		err = multierr.Append(err, fmt.Errorf("negative light size %v", b.Size))
	}
	if !lmath.IsFinite(b.Diffuse) {
		err = multierr.Append(err, fmt.Errorf("non-finite diffuse color %v", b.Diffuse))
	}
	return err
}

func newBase(group string) Base {
	return Base{Group: group, Size: DefaultLightSize, Diffuse: mgl32.Vec3{1, 1, 1}}
}

// DirectionalLight is an infinitely distant light such as the sun.
type DirectionalLight struct {
	Base
	// Direction is the direction the light travels in.
	Direction mgl32.Vec3
}

// NewDirectionalLight returns a white sun light with the default direction.
func NewDirectionalLight(group string) *DirectionalLight {
	return &DirectionalLight{
		Base:      newBase(group),
		Direction: mgl32.Vec3{0, -1, -0.5}.Normalize(),
	}
}

func (l *DirectionalLight) CalculateDirect(_, normal mgl32.Vec3, _ float32) (mgl32.Vec3, mgl32.Vec3) {
	dir := l.Direction.Normalize().Mul(-1)
	ndotl := math32.Max(normal.Dot(dir), 0)
	return dir, l.Diffuse.Mul(ndotl)
}

func (l *DirectionalLight) RandomLightDirection(rng *rand.Rand, _ mgl32.Vec3, size float32) mgl32.Vec3 {
	dir := l.Direction.Normalize().Mul(-1)
	if size > 0 {
		dir = dir.Add(lmath.RandomInSphere(rng).Mul(size))
	}
	return dir.Normalize()
}

func (l *DirectionalLight) Validate() error {
	err := l.validate()
	if l.Direction.Len() == 0 || !lmath.IsFinite(l.Direction) {
		err = multierr.Append(err, fmt.Errorf("invalid direction %v", l.Direction))
	}
	return err
}

// PointLight radiates in every direction from a position.
type PointLight struct {
	Base
	Position mgl32.Vec3
	// Range fades the light to zero at this distance. Zero disables the fade.
	Range float32
}

// NewPointLight returns a white point light at position.
func NewPointLight(group string, position mgl32.Vec3) *PointLight {
	return &PointLight{Base: newBase(group), Position: position, Range: DefaultRange}
}

func (l *PointLight) CalculateDirect(position, normal mgl32.Vec3, attenuation float32) (mgl32.Vec3, mgl32.Vec3) {
	dir, factor := pointFactor(l.Position, l.Range, position, normal, attenuation)
	return dir, l.Diffuse.Mul(factor)
}

func (l *PointLight) RandomLightDirection(rng *rand.Rand, position mgl32.Vec3, size float32) mgl32.Vec3 {
	return jitter(rng, l.Position, position, size)
}

func (l *PointLight) Validate() error {
	err := l.validate()
	if l.Range < 0 {
		err = multierr.Append(err, fmt.Errorf("negative range %v", l.Range))
	}
	return err
}

// SpotLight is a point light restricted to a cone.
type SpotLight struct {
	Base
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Range     float32
	// InnerCone and OuterCone are cosines of the cone half angles.
	InnerCone float32
	OuterCone float32
}

// NewSpotLight returns a white spot light at position pointing along direction.
func NewSpotLight(group string, position, direction mgl32.Vec3) *SpotLight {
	return &SpotLight{
		Base:      newBase(group),
		Position:  position,
		Direction: direction.Normalize(),
		Range:     DefaultRange,
		InnerCone: math32.Cos(mgl32.DegToRad(DefaultInnerAngle)),
		OuterCone: math32.Cos(mgl32.DegToRad(DefaultOuterAngle)),
	}
}

func (l *SpotLight) CalculateDirect(position, normal mgl32.Vec3, attenuation float32) (mgl32.Vec3, mgl32.Vec3) {
	dir, factor := pointFactor(l.Position, l.Range, position, normal, attenuation)
	theta := dir.Mul(-1).Dot(l.Direction.Normalize())
	return dir, l.Diffuse.Mul(factor * SpotIntensity(theta, l.InnerCone, l.OuterCone))
}

func (l *SpotLight) RandomLightDirection(rng *rand.Rand, position mgl32.Vec3, size float32) mgl32.Vec3 {
	return jitter(rng, l.Position, position, size)
}

func (l *SpotLight) Validate() error {
	err := l.validate()
	if l.Range < 0 {
		err = multierr.Append(err, fmt.Errorf("negative range %v", l.Range))
	}
	if l.Direction.Len() == 0 || !lmath.IsFinite(l.Direction) {
		err = multierr.Append(err, fmt.Errorf("invalid direction %v", l.Direction))
	}
	if l.InnerCone <= l.OuterCone {
		err = multierr.Append(err, fmt.Errorf("inner cone %v must be narrower than outer cone %v", l.InnerCone, l.OuterCone))
	}
	return err
}

// SpotIntensity returns the cone falloff for the cosine theta between the
// spot axis and the direction to the surface.
func SpotIntensity(theta, inner, outer float32) float32 {
	v := lmath.Clampf((theta-outer)/(inner-outer), 0, 1)
	return v * v
}

// AmbientLight lights every surface from the whole hemisphere. Its
// visibility is the fraction of unoccluded hemisphere rays.
type AmbientLight struct {
	Base
	Rays     int
	BlurArea float32
}

// NewAmbientLight returns a dim ambient light.
func NewAmbientLight(group string, diffuse mgl32.Vec3) *AmbientLight {
	b := newBase(group)
	b.Diffuse = diffuse
	return &AmbientLight{Base: b, Rays: DefaultLightRays, BlurArea: DefaultLightBlur}
}

func (l *AmbientLight) CalculateDirect(_, normal mgl32.Vec3, _ float32) (mgl32.Vec3, mgl32.Vec3) {
	return normal, l.Diffuse
}

func (l *AmbientLight) RandomLightDirection(rng *rand.Rand, _ mgl32.Vec3, _ float32) mgl32.Vec3 {
	return lmath.RandomDirection(rng)
}

func (l *AmbientLight) Validate() error {
	err := l.validate()
	if l.Rays < 1 {
		err = multierr.Append(err, fmt.Errorf("ambient light needs at least one ray, got %d", l.Rays))
	}
	return err
}

// EmissiveLight turns the baked emissive texture channel into light. The
// emissive surfaces themselves go to the emissive lightmap and the light
// they cast is gathered with hemisphere rays.
type EmissiveLight struct {
	Base
	Rays     int
	BlurArea float32
}

// NewEmissiveLight returns an emissive light with unit intensity.
func NewEmissiveLight(group string) *EmissiveLight {
	return &EmissiveLight{Base: newBase(group), Rays: DefaultLightRays, BlurArea: DefaultLightBlur}
}

func (l *EmissiveLight) CalculateDirect(_, normal mgl32.Vec3, _ float32) (mgl32.Vec3, mgl32.Vec3) {
	return normal, l.Diffuse
}

func (l *EmissiveLight) RandomLightDirection(rng *rand.Rand, _ mgl32.Vec3, _ float32) mgl32.Vec3 {
	return lmath.RandomDirection(rng)
}

func (l *EmissiveLight) Validate() error {
	err := l.validate()
	if l.Rays < 1 {
		err = multierr.Append(err, fmt.Errorf("emissive light needs at least one ray, got %d", l.Rays))
	}
	return err
}

// pointFactor returns the direction towards a positioned light and the
// product of the cosine term, distance attenuation and range fade.
func pointFactor(lightPos mgl32.Vec3, lightRange float32, position, normal mgl32.Vec3, attenuation float32) (mgl32.Vec3, float32) {
	to := lightPos.Sub(position)
	dist := to.Len()
	if dist == 0 {
		return normal, 0
	}
	dir := to.Mul(1 / dist)
	ndotl := math32.Max(normal.Dot(dir), 0)
	factor := ndotl / (1 + attenuation*dist*dist)
	if lightRange > 0 {
		r := dist / lightRange
		factor *= lmath.Clampf(1-r*r*r*r, 0, 1)
	}
	return dir, factor
}

func jitter(rng *rand.Rand, lightPos, position mgl32.Vec3, size float32) mgl32.Vec3 {
	target := lightPos
	if size > 0 {
		target = target.Add(lmath.RandomInSphere(rng).Mul(size))
	}
	return target.Sub(position)
}
