package export

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// E8 packs an HDR rgb color into four bytes: an 8-bit mantissa per channel
// and a shared exponent with base 65535^(1/128) and bias 127, so the range
// spans [0, 65535]. Non-finite colors encode as all ones.
const (
	e8MaxExponent = 255
	e8Bias        = 127
)

var (
	e8Base      = math.Pow(65535, 1.0/(e8MaxExponent-e8Bias))
	e8InvLog    = 1 / math.Log(e8Base)
	e8MaxValue  = float32(math.Pow(e8Base, e8MaxExponent-e8Bias))
	e8MinValue  = float32(math.Pow(e8Base, -e8Bias) / 255)
	e8Exponents = func() (t [e8MaxExponent + 1]float32) {
		for i := range t {
			t[i] = float32(math.Pow(e8Base, float64(i-e8Bias)))
		}
		return t
	}()
)

// EncodeE8 encodes c.
func EncodeE8(c mgl32.Vec3) [4]byte {
	for _, v := range c {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return [4]byte{255, 255, 255, 255}
		}
	}
	for i := range c {
		c[i] = min(max(c[i], 0), e8MaxValue)
	}
	intensity := max(c[0], c[1], c[2])
	if intensity < e8MinValue {
		return [4]byte{}
	}

	exp := int(math.Ceil(math.Log(float64(intensity))*e8InvLog + e8Bias))
	exp = min(max(exp, 0), e8MaxExponent)
	scale := e8Exponents[exp]

	var out [4]byte
	for i := range c {
		m := int(math.Round(float64(c[i] / scale * 255)))
		out[i] = byte(min(max(m, 0), 255))
	}
	out[3] = byte(exp)
	return out
}

// DecodeE8 decodes an encoded color.
func DecodeE8(b [4]byte) mgl32.Vec3 {
	scale := e8Exponents[b[3]] / 255
	return mgl32.Vec3{float32(b[0]) * scale, float32(b[1]) * scale, float32(b[2]) * scale}
}

// E8Image encodes an rgb float buffer as an RGBA image whose alpha channel
// holds the exponent.
func E8Image(data []float32, size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < size*size; i++ {
		e := EncodeE8(mgl32.Vec3{data[i*3], data[i*3+1], data[i*3+2]})
		copy(img.Pix[i*4:i*4+4], e[:])
	}
	return img
}
