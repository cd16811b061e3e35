package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultKernelSize is the blur kernel width used by the baker.
const DefaultKernelSize = 51

// BlurIO is a view over a 2D region processed by GaussianBlur.
type BlurIO interface {
	Width() int
	Height() int
	// Ignore reports whether the texel is excluded from the kernel. Ignored
	// texels are never written.
	Ignore(x, y int) bool
	Read(x, y int) mgl32.Vec3
	Write(x, y int, c mgl32.Vec3)
}

// Kernel returns the normalized one-dimensional Gaussian weights for the
// given kernel size and standard deviation. The size is forced odd.
func Kernel(size int, sigma float32) []float32 {
	if size%2 == 0 {
		size++
	}
	k := make([]float32, size)
	r := size / 2
	var sum float32
	for i := range k {
		d := float32(i - r)
		k[i] = math32.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur runs a separable masked Gaussian blur over io with standard
// deviation area. Weights of ignored texels are dropped and the remainder
// renormalized. A non-positive area or kernel size leaves io untouched.
func GaussianBlur(io BlurIO, kernelSize int, area float32) {
	if area <= 0 || kernelSize <= 0 {
		return
	}
	w, h := io.Width(), io.Height()
	if w <= 0 || h <= 0 {
		return
	}
	kernel := Kernel(kernelSize, area)
	r := len(kernel) / 2

	mask := make([]bool, w*h)
	src := make([]mgl32.Vec3, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := x + y*w
			mask[i] = io.Ignore(x, y)
			if !mask[i] {
				src[i] = io.Read(x, y)
			}
		}
	}

	tmp := make([]mgl32.Vec3, w*h)
	pass := func(dst, in []mgl32.Vec3, dx, dy int) {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := x + y*w
				if mask[i] {
					continue
				}
				var sum mgl32.Vec3
				var weight float32
				for k := -r; k <= r; k++ {
					sx, sy := x+k*dx, y+k*dy
					if sx < 0 || sx >= w || sy < 0 || sy >= h {
						continue
					}
					j := sx + sy*w
					if mask[j] {
						continue
					}
					kw := kernel[k+r]
					sum = sum.Add(in[j].Mul(kw))
					weight += kw
				}
				if weight > 0 {
					dst[i] = sum.Mul(1 / weight)
				}
			}
		}
	}
	pass(tmp, src, 1, 0)
	pass(src, tmp, 0, 1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := x + y*w
			if !mask[i] {
				io.Write(x, y, src[i])
			}
		}
	}
}
