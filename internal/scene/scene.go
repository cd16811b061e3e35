// Package scene describes a bake request: the opaque and alpha meshes in the
// interleaved vertex layout, the lights, and the bake parameters.
package scene

import (
	"fmt"

	"go.uber.org/multierr"
)

// Params holds the quality and feature switches of a bake.
type Params struct {
	SamplingMode SamplingMode `yaml:"sampling_mode"`
	RayOffset    float32      `yaml:"ray_offset"`

	FillEmptyValuesWithLightColors bool `yaml:"fill_empty_values_with_light_colors"`
	FastMode                       bool `yaml:"fast_mode"`

	DirectLighting    bool    `yaml:"direct_lighting"`
	DirectAttenuation float32 `yaml:"direct_attenuation"`

	Shadows             bool    `yaml:"shadows"`
	ShadowRaysPerSample int     `yaml:"shadow_rays_per_sample"`
	ShadowBlurArea      float32 `yaml:"shadow_blur_area"`

	IndirectLighting         bool    `yaml:"indirect_lighting"`
	IndirectRaysPerSample    int     `yaml:"indirect_rays_per_sample"`
	IndirectBounces          int     `yaml:"indirect_bounces"`
	IndirectBlurArea         float32 `yaml:"indirect_blur_area"`
	IndirectReflectionFactor float32 `yaml:"indirect_reflection_factor"`
}

// DefaultParams returns the standard quality profile.
func DefaultParams() Params {
	return Params{
		SamplingMode:                   Sample9,
		RayOffset:                      0.001,
		FillEmptyValuesWithLightColors: false,
		FastMode:                       false,
		DirectLighting:                 true,
		DirectAttenuation:              0.75,
		Shadows:                        true,
		ShadowRaysPerSample:            12,
		ShadowBlurArea:                 1,
		IndirectLighting:               true,
		IndirectRaysPerSample:          8,
		IndirectBounces:                4,
		IndirectBlurArea:               4,
		IndirectReflectionFactor:       1,
	}
}

// Validate reports every invalid parameter at once.
func (p Params) Validate() error {
	var err error
	if p.SamplingMode < Sample1 || p.SamplingMode > Sample16 {
		err = multierr.Append(err, fmt.Errorf("unknown sampling mode %d", int(p.SamplingMode)))
	}
	if p.RayOffset <= 0 {
		err = multierr.Append(err, fmt.Errorf("ray offset must be positive, got %v", p.RayOffset))
	}
	if p.DirectAttenuation < 0 {
		err = multierr.Append(err, fmt.Errorf("direct attenuation must not be negative, got %v", p.DirectAttenuation))
	}
	if p.Shadows && p.ShadowRaysPerSample < 1 {
		err = multierr.Append(err, fmt.Errorf("shadow rays per sample must be at least 1, got %d", p.ShadowRaysPerSample))
	}
	if p.ShadowBlurArea < 0 {
		err = multierr.Append(err, fmt.Errorf("shadow blur area must not be negative, got %v", p.ShadowBlurArea))
	}
	if p.IndirectLighting {
		if p.IndirectRaysPerSample < 1 {
			err = multierr.Append(err, fmt.Errorf("indirect rays per sample must be at least 1, got %d", p.IndirectRaysPerSample))
		}
		if p.IndirectBounces < 1 {
			err = multierr.Append(err, fmt.Errorf("indirect bounces must be at least 1, got %d", p.IndirectBounces))
		}
	}
	if p.IndirectBlurArea < 0 {
		err = multierr.Append(err, fmt.Errorf("indirect blur area must not be negative, got %v", p.IndirectBlurArea))
	}
	return err
}

// Scene is an immutable bake request.
type Scene struct {
	Opaque []float32
	Alpha  []float32
	Lights []Light
	Params Params
}

// Validate checks the meshes, every light and the parameters, and returns
// all problems combined.
func (s *Scene) Validate() error {
	var err error
	if e := CheckMesh(s.Opaque); e != nil {
		err = multierr.Append(err, fmt.Errorf("opaque mesh: %w", e))
	}
	if e := CheckMesh(s.Alpha); e != nil {
		err = multierr.Append(err, fmt.Errorf("alpha mesh: %w", e))
	}
	for i, l := range s.Lights {
		if l == nil {
			err = multierr.Append(err, fmt.Errorf("light %d is nil", i))
			continue
		}
		if e := l.Validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("light %d (%T): %w", i, l, e))
		}
	}
	if e := s.Params.Validate(); e != nil {
		err = multierr.Append(err, e)
	}
	return err
}

// Group is a named set of lights baked into one lightmap.
type Group struct {
	Name   string
	Lights []Light
}

// DisplayName returns the group name, or a placeholder for the unnamed group.
func (g Group) DisplayName() string {
	if g.Name == "" {
		return "(Unnamed)"
	}
	return g.Name
}

// Groups partitions the lights by group name in first-seen order.
func (s *Scene) Groups() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, l := range s.Lights {
		i, ok := index[l.GroupName()]
		if !ok {
			i = len(groups)
			index[l.GroupName()] = i
			groups = append(groups, Group{Name: l.GroupName()})
		}
		groups[i].Lights = append(groups[i].Lights, l)
	}
	return groups
}
