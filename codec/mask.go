package codec

import (
	"fmt"
	"image"
	"image/color"

	"github.com/heifgo/heifbox/bmff"
)

// maskFormat is the item_type FourCC this plugin claims ("mski", ISO/IEC
// 23008-12 Annex B). Like unci, a mask item needs no external decoder:
// its payload is packed 1-bit-per-pixel or 8-bit-per-pixel opacity
// values, fully interpreted here (§4.H).
var maskFormat = [4]byte{'m', 's', 'k', 'i'}

// MaskPlugin decodes "mski" per-pixel mask items described by an mskC box.
type MaskPlugin struct{}

func (MaskPlugin) Name() string  { return "mask" }
func (MaskPlugin) Priority() int { return 100 }
func (MaskPlugin) DoesSupportFormat(format [4]byte) bool { return format == maskFormat }

func (MaskPlugin) NewDecoder(opts ...Option) (Decoder, error) {
	d := &maskDecoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// WithMaskLayout supplies the mskC config and dimensions a "mski" item's
// Decoder needs beyond its raw bytes.
func WithMaskLayout(config *bmff.MaskConfigBox, width, height int) Option {
	return func(d any) {
		md, ok := d.(*maskDecoder)
		if !ok {
			return
		}
		md.config = config
		md.width, md.height = width, height
	}
}

type maskDecoder struct {
	config *bmff.MaskConfigBox
	width  int
	height int
	strict bool
	data   []byte
}

func (d *maskDecoder) Push(data []byte) error {
	d.data = append(d.data, data...)
	return nil
}

func (d *maskDecoder) SetStrictDecoding(strict bool) { d.strict = strict }
func (d *maskDecoder) Reset()                        { d.data = nil }
func (d *maskDecoder) Free()                         { d.data = nil }

func (d *maskDecoder) DecodeImage() (image.Image, error) {
	if d.config == nil {
		return nil, fmt.Errorf("codec: mski item missing mskC metadata (pass codec.WithMaskLayout)")
	}
	if d.width <= 0 || d.height <= 0 {
		return nil, fmt.Errorf("codec: mski item has no known dimensions")
	}

	switch d.config.BitsPerPixel {
	case 1:
		return decodeMask1(d.data, d.width, d.height)
	case 8:
		return decodeMask8(d.data, d.width, d.height)
	default:
		return nil, fmt.Errorf("codec: mski unsupported bits_per_pixel %d", d.config.BitsPerPixel)
	}
}

func decodeMask1(data []byte, width, height int) (image.Image, error) {
	stride := (width + 7) / 8
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: mski 1bpp payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	img := image.NewAlpha(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*stride : y*stride+stride]
		for x := 0; x < width; x++ {
			bit := (row[x/8] >> uint(7-x%8)) & 1
			v := uint8(0)
			if bit != 0 {
				v = 0xFF
			}
			img.SetAlpha(x, y, color.Alpha{A: v})
		}
	}
	return img, nil
}

func decodeMask8(data []byte, width, height int) (image.Image, error) {
	stride := width
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: mski 8bpp payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	img := image.NewAlpha(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width], data[y*stride:y*stride+width])
	}
	return img, nil
}
