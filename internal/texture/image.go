// Package texture loads material images and exposes them to the baker as a
// texture color callback.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// Image is a decoded texture in linear float RGBA.
type Image struct {
	Width  int
	Height int
	Pix    []mgl32.Vec4
}

// Load reads and decodes an image file. TGA is picked by extension since the
// format has no signature; everything else goes through image.Decode.
func Load(path string, colorKey bool) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var img image.Image
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err = DecodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return FromImage(img, colorKey), nil
}

// IsMagentaKey checks if an RGB color matches the magenta transparency key.
// Uses tolerance (R >= 250, G <= 10, B >= 250) to handle BMP decoding variations.
func IsMagentaKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// FromImage converts img to linear space. With colorKey set, magenta texels
// become transparent black.
func FromImage(img image.Image, colorKey bool) *Image {
	bounds := img.Bounds()
	out := &Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    make([]mgl32.Vec4, bounds.Dx()*bounds.Dy()),
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := (x - bounds.Min.X) + (y-bounds.Min.Y)*out.Width
			if colorKey && IsMagentaKey(c.R, c.G, c.B) {
				continue
			}
			out.Pix[i] = mgl32.Vec4{
				lmath.SRGBToLinear(c.R),
				lmath.SRGBToLinear(c.G),
				lmath.SRGBToLinear(c.B),
				float32(c.A) / 255,
			}
		}
	}
	return out
}

// At samples the texel under (u, v) with repeat wrapping. v grows downwards
// in image space.
func (img *Image) At(u, v float32) mgl32.Vec4 {
	if img == nil || len(img.Pix) == 0 {
		return mgl32.Vec4{1, 1, 1, 1}
	}
	x := wrap(int(math32.Floor(u*float32(img.Width))), img.Width)
	y := wrap(int(math32.Floor(v*float32(img.Height))), img.Height)
	return img.Pix[x+y*img.Width]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
