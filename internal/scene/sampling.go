package scene

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SamplingMode selects the sub-texel sample pattern used when rasterizing.
type SamplingMode int

const (
	// Sample1 takes the texel center.
	Sample1 SamplingMode = iota
	// Sample5 takes the center and four inner quarter points.
	Sample5
	// Sample9 takes a regular 3x3 grid.
	Sample9
	// Sample16 takes a regular 4x4 grid.
	Sample16
)

var samplingOffsets = [...][][2]float32{
	Sample1:  {{0.5, 0.5}},
	Sample5:  {{0.5, 0.5}, {0.25, 0.25}, {0.75, 0.25}, {0.25, 0.75}, {0.75, 0.75}},
	Sample9:  grid(3),
	Sample16: grid(4),
}

func grid(n int) [][2]float32 {
	out := make([][2]float32, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			out = append(out, [2]float32{(float32(x) + 0.5) / float32(n), (float32(y) + 0.5) / float32(n)})
		}
	}
	return out
}

// NumSamples returns the number of samples per texel.
func (m SamplingMode) NumSamples() int {
	return len(m.offsets())
}

// Offset returns the sub-texel position of sample s in [0, 1).
func (m SamplingMode) Offset(s int) (x, y float32) {
	o := m.offsets()[s]
	return o[0], o[1]
}

func (m SamplingMode) offsets() [][2]float32 {
	if m < 0 || int(m) >= len(samplingOffsets) {
		return samplingOffsets[Sample1]
	}
	return samplingOffsets[m]
}

func (m SamplingMode) String() string {
	switch m {
	case Sample1:
		return "sample1"
	case Sample5:
		return "sample5"
	case Sample9:
		return "sample9"
	case Sample16:
		return "sample16"
	default:
		return fmt.Sprintf("SamplingMode(%d)", int(m))
	}
}

// ParseSamplingMode accepts "sample1", "sample5", "sample9" or "sample16",
// with or without the prefix.
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "sample") {
	case "1", "_1":
		return Sample1, nil
	case "5", "_5":
		return Sample5, nil
	case "9", "_9":
		return Sample9, nil
	case "16", "_16":
		return Sample16, nil
	}
	return Sample1, fmt.Errorf("unknown sampling mode %q", s)
}

// MarshalYAML encodes the mode by name.
func (m SamplingMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML decodes a mode name.
func (m *SamplingMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseSamplingMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
