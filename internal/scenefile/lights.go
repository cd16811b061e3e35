package scenefile

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbaker/internal/scene"
)

// light converts the description to a scene light with defaults filled in.
func (d *LightDoc) light() (scene.Light, error) {
	var (
		light scene.Light
		base  *scene.Base
	)
	switch strings.ToLower(d.Type) {
	case "directional", "sun":
		l := scene.NewDirectionalLight(d.Group)
		if d.Direction != nil {
			l.Direction = mgl32.Vec3(*d.Direction)
		}
		light, base = l, &l.Base
	case "point":
		l := scene.NewPointLight(d.Group, mgl32.Vec3(d.Position))
		if d.Range != nil {
			l.Range = *d.Range
		}
		light, base = l, &l.Base
	case "spot":
		dir := mgl32.Vec3{0, -1, 0}
		if d.Direction != nil {
			dir = mgl32.Vec3(*d.Direction)
		}
		l := scene.NewSpotLight(d.Group, mgl32.Vec3(d.Position), dir)
		if d.Range != nil {
			l.Range = *d.Range
		}
		if d.InnerAngle != nil {
			l.InnerCone = math32.Cos(mgl32.DegToRad(*d.InnerAngle))
		}
		if d.OuterAngle != nil {
			l.OuterCone = math32.Cos(mgl32.DegToRad(*d.OuterAngle))
		}
		light, base = l, &l.Base
	case "ambient":
		l := scene.NewAmbientLight(d.Group, mgl32.Vec3{0.1, 0.1, 0.1})
		if d.Rays > 0 {
			l.Rays = d.Rays
		}
		if d.BlurArea != nil {
			l.BlurArea = *d.BlurArea
		}
		light, base = l, &l.Base
	case "emissive":
		l := scene.NewEmissiveLight(d.Group)
		if d.Rays > 0 {
			l.Rays = d.Rays
		}
		if d.BlurArea != nil {
			l.BlurArea = *d.BlurArea
		}
		light, base = l, &l.Base
	default:
		return nil, fmt.Errorf("unknown light type %q", d.Type)
	}

	if d.Diffuse != nil {
		base.Diffuse = mgl32.Vec3(*d.Diffuse)
	}
	if d.Size != nil {
		base.Size = *d.Size
	}
	return light, nil
}
