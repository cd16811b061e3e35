package export

import (
	"image"
	"image/color"

	lmath "github.com/Faultbox/lightbaker/pkg/math"
)

// PreviewImage tone maps an rgb float buffer to 8-bit sRGB: each channel is
// scaled by exposure and clamped.
func PreviewImage(data []float32, size int, exposure float32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < size*size; i++ {
		img.Pix[i*4] = lmath.LinearToSRGB(data[i*3] * exposure)
		img.Pix[i*4+1] = lmath.LinearToSRGB(data[i*3+1] * exposure)
		img.Pix[i*4+2] = lmath.LinearToSRGB(data[i*3+2] * exposure)
		img.Pix[i*4+3] = 255
	}
	return img
}

// LinearImage stores an rgb float buffer as 16-bit linear values clamped to
// [0, 1] after exposure.
func LinearImage(data []float32, size int, exposure float32) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (x + y*size) * 3
			img.SetRGBA64(x, y, color.RGBA64{
				R: unorm16(data[i] * exposure),
				G: unorm16(data[i+1] * exposure),
				B: unorm16(data[i+2] * exposure),
				A: 0xffff,
			})
		}
	}
	return img
}

// ColorImage converts the rgba base color buffer to 8-bit sRGB with alpha.
func ColorImage(data []float32, size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < size*size; i++ {
		img.Pix[i*4] = lmath.LinearToSRGB(data[i*4])
		img.Pix[i*4+1] = lmath.LinearToSRGB(data[i*4+1])
		img.Pix[i*4+2] = lmath.LinearToSRGB(data[i*4+2])
		img.Pix[i*4+3] = uint8(lmath.Clampf(data[i*4+3], 0, 1)*255 + 0.5)
	}
	return img
}

func unorm16(v float32) uint16 {
	return uint16(lmath.Clampf(v, 0, 1)*0xffff + 0.5)
}
