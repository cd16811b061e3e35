package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/lightbaker/internal/scene"
)

func tgaHeader(imageType, width, height, bpp int, descriptor byte) []byte {
	h := make([]byte, tgaHeaderSize)
	h[2] = byte(imageType)
	h[12], h[13] = byte(width), byte(width>>8)
	h[14], h[15] = byte(height), byte(height>>8)
	h[16] = byte(bpp)
	h[17] = descriptor
	return h
}

func TestDecodeTGAUncompressedBottomUp(t *testing.T) {
	// Rows are stored bottom row first: blue, green / red, white.
	data := tgaHeader(TGATypeUncompressed, 2, 2, 24, 0)
	data = append(data,
		255, 0, 0, 0, 255, 0,     // blue, green
		0, 0, 255, 255, 255, 255, // red, white
	)
	img, err := DecodeTGA(data)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.At(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(1, 0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.At(0, 1))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.At(1, 1))
}

func TestDecodeTGARLE(t *testing.T) {
	data := tgaHeader(TGATypeRLE, 3, 1, 32, tgaTopToBottom)
	data = append(data,
		0x81, 10, 20, 30, 128, // run of two
		0x00, 1, 2, 3, 4,      // one raw pixel
	)
	img, err := DecodeTGA(data)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 30, G: 20, B: 10, A: 128}, img.At(0, 0))
	assert.Equal(t, color.NRGBA{R: 30, G: 20, B: 10, A: 128}, img.At(1, 0))
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 4}, img.At(2, 0))
}

func TestDecodeTGAGray(t *testing.T) {
	data := append(tgaHeader(TGATypeGray, 2, 1, 8, tgaTopToBottom), 0, 200)
	img, err := DecodeTGA(data)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, img.At(1, 0))
}

func TestDecodeTGAErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0, 0, 2}, ErrTGATruncated},
		{"truncated pixels", append(tgaHeader(TGATypeUncompressed, 2, 2, 24, 0), 1, 2, 3), ErrTGATruncated},
		{"truncated run", append(tgaHeader(TGATypeRLE, 4, 1, 24, 0), 0x83), ErrTGATruncated},
		{"color mapped", func() []byte { h := tgaHeader(1, 1, 1, 8, 0); h[1] = 1; return h }(), ErrTGAUnsupported},
		{"16 bit", tgaHeader(TGATypeUncompressed, 1, 1, 16, 0), ErrTGAUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTGA(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFromImageColorKey(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, B: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	keyed := FromImage(src, true)
	assert.Equal(t, mgl32.Vec4{}, keyed.Pix[0])
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, keyed.Pix[1])

	plain := FromImage(src, false)
	assert.Equal(t, mgl32.Vec4{1, 0, 1, 1}, plain.Pix[0])
}

func TestImageAtWraps(t *testing.T) {
	img := &Image{Width: 2, Height: 2, Pix: []mgl32.Vec4{{1}, {2}, {3}, {4}}}
	assert.Equal(t, float32(1), img.At(0.1, 0.1)[0])
	assert.Equal(t, float32(2), img.At(0.6, 0.1)[0])
	assert.Equal(t, float32(4), img.At(0.6, 0.6)[0])
	assert.Equal(t, float32(2), img.At(1.6, -0.9)[0])
	assert.Equal(t, float32(3), img.At(-0.6, 0.7)[0])

	var missing *Image
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, missing.At(0.5, 0.5))
}

func TestLoadPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "red.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Width)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, img.Pix[0])

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"), false)
	assert.Error(t, err)
}

func TestLoadTGA(t *testing.T) {
	data := append(tgaHeader(TGATypeUncompressed, 1, 1, 24, 0), 0, 0, 255)
	path := filepath.Join(t.TempDir(), "red.TGA")
	require.NoError(t, os.WriteFile(path, data, 0644))

	img, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, img.Pix[0])
}

func triangle(material float32) []float32 {
	var mesh []float32
	for i := 0; i < 3; i++ {
		mesh = scene.AppendVertex(mesh, scene.Vertex{User: mgl32.Vec2{material, 0}})
	}
	return mesh
}

func TestLibraryTextureColor(t *testing.T) {
	checker := &Image{Width: 2, Height: 1, Pix: []mgl32.Vec4{{1, 1, 1, 1}, {0, 0, 0, 1}}}
	lib := NewLibrary([]Material{
		{Name: "red", Color: mgl32.Vec4{1, 0, 0, 1}},
		{Name: "checker", Color: mgl32.Vec4{0.5, 0.5, 0.5, 1}, Texture: checker},
		{Name: "lamp", Color: mgl32.Vec4{1, 1, 1, 1}, Emissive: mgl32.Vec3{2, 2, 2}, EmissiveTexture: checker},
	})
	mesh := append(append(append(triangle(0), triangle(1)...), triangle(2)...), triangle(9)...)

	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, lib.TextureColor(mesh, 0, 0, 0, false))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, lib.TextureColor(mesh, 0, 0, 0, true))
	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 1}, lib.TextureColor(mesh, 0.25, 0, 1, false))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, lib.TextureColor(mesh, 0.75, 0, 1, false))
	assert.Equal(t, mgl32.Vec4{2, 2, 2, 1}, lib.TextureColor(mesh, 0.25, 0, 2, true))
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, lib.TextureColor(mesh, 0.75, 0, 2, true))

	// Unknown material.
	assert.Equal(t, lib.Fallback, lib.TextureColor(mesh, 0, 0, 3, false))
	assert.Equal(t, mgl32.Vec4{}, lib.TextureColor(mesh, 0, 0, 3, true))
	assert.Equal(t, 9, MaterialIndex(mesh, 3))
}
