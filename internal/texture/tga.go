package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeGray         = 3  // Uncompressed grayscale
	TGATypeRLE          = 10 // RLE compressed true-color
	TGATypeRLEGray      = 11 // RLE compressed grayscale
)

const (
	tgaHeaderSize  = 18
	tgaTopToBottom = 0x20
)

var (
	// ErrTGATruncated is returned when the file ends inside the header or pixel data.
	ErrTGATruncated = errors.New("TGA data truncated")
	// ErrTGAUnsupported is returned for color-mapped files and unusual depths.
	ErrTGAUnsupported = errors.New("unsupported TGA")
)

// tgaReader walks the pixel stream of one TGA file.
type tgaReader struct {
	data        []byte
	pos         int
	bytesPerPix int
	gray        bool

	img         *image.NRGBA
	width       int
	height      int
	topToBottom bool
}

// DecodeTGA decodes a TGA image. Uncompressed and RLE files in 24/32-bit
// true color and 8-bit grayscale are supported.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, ErrTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := int(data[2])
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped", ErrTGAUnsupported)
	}
	gray := imageType == TGATypeGray || imageType == TGATypeRLEGray
	switch {
	case gray && bpp == 8:
	case !gray && (imageType == TGATypeUncompressed || imageType == TGATypeRLE) && (bpp == 24 || bpp == 32):
	default:
		return nil, fmt.Errorf("%w: type %d with %d bits per pixel", ErrTGAUnsupported, imageType, bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}

	r := &tgaReader{
		data:        data[offset:],
		bytesPerPix: bpp / 8,
		gray:        gray,
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		topToBottom: descriptor&tgaTopToBottom != 0,
	}

	var err error
	if imageType == TGATypeRLE || imageType == TGATypeRLEGray {
		err = r.decodeRLE()
	} else {
		err = r.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return r.img, nil
}

// pixel reads the next stored pixel. TGA stores true color as BGR(A).
func (r *tgaReader) pixel() (color.NRGBA, error) {
	if r.pos+r.bytesPerPix > len(r.data) {
		return color.NRGBA{}, ErrTGATruncated
	}
	p := r.data[r.pos : r.pos+r.bytesPerPix]
	r.pos += r.bytesPerPix

	if r.gray {
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}, nil
	}
	c := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if r.bytesPerPix == 4 {
		c.A = p[3]
	}
	return c, nil
}

// put stores the i-th pixel of the stream, flipping rows for bottom-up files.
func (r *tgaReader) put(i int, c color.NRGBA) {
	x, y := i%r.width, i/r.width
	if !r.topToBottom {
		y = r.height - 1 - y
	}
	r.img.SetNRGBA(x, y, c)
}

func (r *tgaReader) decodeRaw() error {
	for i := 0; i < r.width*r.height; i++ {
		c, err := r.pixel()
		if err != nil {
			return err
		}
		r.put(i, c)
	}
	return nil
}

func (r *tgaReader) decodeRLE() error {
	count := r.width * r.height
	for i := 0; i < count; {
		if r.pos >= len(r.data) {
			return ErrTGATruncated
		}
		packet := r.data[r.pos]
		r.pos++
		n := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// Run of one repeated pixel
			c, err := r.pixel()
			if err != nil {
				return err
			}
			for ; n > 0 && i < count; n-- {
				r.put(i, c)
				i++
			}
			continue
		}
		for ; n > 0 && i < count; n-- {
			c, err := r.pixel()
			if err != nil {
				return err
			}
			r.put(i, c)
			i++
		}
	}
	return nil
}
