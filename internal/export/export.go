// Package export writes baked lightmaps, ambient cubes and a manifest to
// disk.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/lightbaker/internal/bake"
	"github.com/Faultbox/lightbaker/pkg/encoding"
)

// File names written next to the per group images.
const (
	ManifestFile     = "manifest.yaml"
	AmbientCubesFile = "ambient_cubes.yaml"
	ColorFile        = "color.png"
)

// Options selects the formats to write.
type Options struct {
	Dir string
	// PNG writes tone mapped 8-bit sRGB previews.
	PNG bool
	// TIFF writes 16-bit linear images.
	TIFF bool
	// E8 writes HDR images with a shared exponent in the alpha channel.
	E8       bool
	Exposure float32
}

// Meta describes the bake being exported.
type Meta struct {
	ID      uuid.UUID
	Scene   string
	Elapsed time.Duration
}

// Manifest lists everything an export produced. Paths are relative to the
// output directory.
type Manifest struct {
	ID           string       `yaml:"id"`
	Scene        string       `yaml:"scene,omitempty"`
	Size         int          `yaml:"size"`
	Elapsed      string       `yaml:"elapsed,omitempty"`
	Exposure     float32      `yaml:"exposure"`
	Color        string       `yaml:"color"`
	AmbientCubes string       `yaml:"ambient_cubes"`
	CubeCount    int          `yaml:"cube_count"`
	Groups       []GroupFiles `yaml:"groups"`
}

// GroupFiles lists the images written for one light group.
type GroupFiles struct {
	Name     string   `yaml:"name"`
	Lightmap []string `yaml:"lightmap"`
	Emissive []string `yaml:"emissive"`
}

// Export writes out to opts.Dir and returns the manifest it wrote.
func Export(out *bake.Output, meta Meta, opts Options) (*Manifest, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	m := &Manifest{
		ID:           meta.ID.String(),
		Scene:        meta.Scene,
		Size:         out.Size,
		Exposure:     opts.Exposure,
		Color:        ColorFile,
		AmbientCubes: AmbientCubesFile,
	}
	if meta.Elapsed > 0 {
		m.Elapsed = meta.Elapsed.Round(time.Millisecond).String()
	}

	stems := encoding.UniqueFileNames(out.Names)
	for g, name := range out.Names {
		files := GroupFiles{Name: name}
		var err error
		if files.Lightmap, err = writeMaps(opts, stems[g], out.Lightmaps[g], out.Size); err != nil {
			return nil, err
		}
		if files.Emissive, err = writeMaps(opts, stems[g]+".emissive", out.Emissive[g], out.Size); err != nil {
			return nil, err
		}
		m.Groups = append(m.Groups, files)
	}

	if err := writeImage(filepath.Join(opts.Dir, ColorFile), ColorImage(out.Color, out.Size), png.Encode); err != nil {
		return nil, err
	}

	cubes := AmbientCubesDoc(out)
	m.CubeCount = len(cubes.Cubes)
	if err := writeYAML(filepath.Join(opts.Dir, AmbientCubesFile), cubes); err != nil {
		return nil, err
	}
	if err := writeYAML(filepath.Join(opts.Dir, ManifestFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

// writeMaps writes one rgb buffer in every selected format.
func writeMaps(opts Options, stem string, data []float32, size int) ([]string, error) {
	var names []string
	write := func(name string, img image.Image, enc encoder) error {
		names = append(names, name)
		return writeImage(filepath.Join(opts.Dir, name), img, enc)
	}
	if opts.PNG {
		if err := write(stem+".png", PreviewImage(data, size, opts.Exposure), png.Encode); err != nil {
			return nil, err
		}
	}
	if opts.TIFF {
		if err := write(stem+".tiff", LinearImage(data, size, opts.Exposure), encodeTIFF); err != nil {
			return nil, err
		}
	}
	if opts.E8 {
		if err := write(stem+".e8.png", E8Image(data, size), png.Encode); err != nil {
			return nil, err
		}
	}
	return names, nil
}

type encoder func(io.Writer, image.Image) error

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

func writeImage(path string, img image.Image, enc encoder) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() { err = multierr.Append(err, file.Close()) }()

	if err := enc(file, img); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadManifest loads a manifest written by Export.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
