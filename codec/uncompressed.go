package codec

import (
	"fmt"
	"image"
	"image/color"

	"github.com/heifgo/heifbox/bmff"
)

// uncompressedFormat is the item_type FourCC this plugin claims ("unci",
// ISO/IEC 23001-17). Unlike the stub codec plugins, this one is fully
// implemented: an uncompressed frame is a pure byte-reinterpretation, so
// no external decoder library is needed to exercise the whole read/write
// pipeline end-to-end (§4.H).
var uncompressedFormat = [4]byte{'u', 'n', 'c', 'i'}

// UncompressedPlugin decodes "unci" items described by a cmpd component
// list and a uncC pixel-layout box.
type UncompressedPlugin struct{}

func (UncompressedPlugin) Name() string     { return "uncompressed" }
func (UncompressedPlugin) Priority() int    { return 100 }
func (UncompressedPlugin) DoesSupportFormat(format [4]byte) bool {
	return format == uncompressedFormat
}

func (UncompressedPlugin) NewDecoder(opts ...Option) (Decoder, error) {
	d := &uncompressedDecoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// WithUncompressedLayout supplies the cmpd/uncC/dimension metadata a
// "unci" item's Decoder needs beyond its raw bytes. The generic
// Registry.DecodeItem path cannot discover these on its own (they live on
// the heif.Item, not in the coded payload), so callers driving an "unci"
// decode directly (rather than via Registry.DecodeItem) must pass this.
func WithUncompressedLayout(components *bmff.ComponentDefinitionBox, layout *bmff.UncompressedConfigBox, width, height int) Option {
	return func(d any) {
		ud, ok := d.(*uncompressedDecoder)
		if !ok {
			return
		}
		ud.components = components
		ud.layout = layout
		ud.width, ud.height = width, height
	}
}

type uncompressedDecoder struct {
	components *bmff.ComponentDefinitionBox
	layout     *bmff.UncompressedConfigBox
	width      int
	height     int
	strict     bool
	data       []byte
}

func (d *uncompressedDecoder) Push(data []byte) error {
	d.data = append(d.data, data...)
	return nil
}

func (d *uncompressedDecoder) SetStrictDecoding(strict bool) { d.strict = strict }

func (d *uncompressedDecoder) Reset() {
	d.data = nil
}

func (d *uncompressedDecoder) Free() {
	d.data = nil
}

func (d *uncompressedDecoder) DecodeImage() (image.Image, error) {
	if d.layout == nil || d.components == nil {
		return nil, fmt.Errorf("codec: unci item missing uncC/cmpd metadata (pass codec.WithUncompressedLayout)")
	}
	if d.width <= 0 || d.height <= 0 {
		return nil, fmt.Errorf("codec: unci item has no known dimensions")
	}

	switch classifyComponents(d.components, d.layout) {
	case layoutGray8:
		return decodeGray8(d.data, d.width, d.height, d.layout)
	case layoutRGB24:
		return decodeRGB24(d.data, d.width, d.height, d.layout)
	case layoutRGBA32:
		return decodeRGBA32(d.data, d.width, d.height, d.layout)
	default:
		return decodeGenericPlanes(d.data, d.width, d.height, d.components, d.layout)
	}
}

type uncLayoutKind int

const (
	layoutUnknown uncLayoutKind = iota
	layoutGray8
	layoutRGB24
	layoutRGBA32
)

func classifyComponents(cmpd *bmff.ComponentDefinitionBox, uncC *bmff.UncompressedConfigBox) uncLayoutKind {
	if uncC.InterleaveType != 0 { // only component-interleaved layouts are fast-pathed
		return layoutUnknown
	}
	types := make([]uint16, 0, len(cmpd.Components))
	for _, c := range cmpd.Components {
		types = append(types, c.ComponentType)
	}
	allEightBit := true
	for _, c := range uncC.Components {
		if c.ComponentBitDepth != 8 || c.ComponentFormat != 0 {
			allEightBit = false
		}
	}
	if !allEightBit {
		return layoutUnknown
	}
	switch {
	case len(types) == 1 && types[0] == bmff.ComponentMonochrome:
		return layoutGray8
	case len(types) == 3 && types[0] == bmff.ComponentRed && types[1] == bmff.ComponentGreen && types[2] == bmff.ComponentBlue:
		return layoutRGB24
	case len(types) == 4 && types[0] == bmff.ComponentRed && types[1] == bmff.ComponentGreen && types[2] == bmff.ComponentBlue && types[3] == bmff.ComponentAlpha:
		return layoutRGBA32
	default:
		return layoutUnknown
	}
}

func rowStride(layout *bmff.UncompressedConfigBox, width, bytesPerPixel int) int {
	stride := width * bytesPerPixel
	if layout.RowAlignSize > 1 {
		pad := int(layout.RowAlignSize)
		stride = ((stride + pad - 1) / pad) * pad
	}
	return stride
}

func decodeGray8(data []byte, width, height int, layout *bmff.UncompressedConfigBox) (image.Image, error) {
	stride := rowStride(layout, width, 1)
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: unci gray8 payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width], data[y*stride:y*stride+width])
	}
	return img, nil
}

func decodeRGB24(data []byte, width, height int, layout *bmff.UncompressedConfigBox) (image.Image, error) {
	stride := rowStride(layout, width, 3)
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: unci rgb24 payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcRow := data[y*stride:]
		for x := 0; x < width; x++ {
			src := srcRow[x*3 : x*3+3]
			img.SetNRGBA(x, y, color.NRGBA{R: src[0], G: src[1], B: src[2], A: 0xFF})
		}
	}
	return img, nil
}

func decodeRGBA32(data []byte, width, height int, layout *bmff.UncompressedConfigBox) (image.Image, error) {
	stride := rowStride(layout, width, 4)
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: unci rgba32 payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width*4], data[y*stride:y*stride+width*4])
	}
	return img, nil
}

// RawImage is the generic fallback for a uncC/cmpd layout this package
// does not fast-path (e.g. non-interleaved, >8-bit, or an unrecognised
// component set): it keeps the raw per-pixel channel data and exposes it
// through image.Image by converting to the nearest standard colour model
// on read.
type RawImage struct {
	Width, Height int
	Components    []bmff.ComponentDefinition
	BitDepths     []uint8
	Stride        int
	Pix           []byte
}

func (r *RawImage) ColorModel() color.Model { return color.NRGBAModel }
func (r *RawImage) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

func (r *RawImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return color.NRGBA{}
	}
	bytesPerPixel := 0
	for _, bd := range r.BitDepths {
		bytesPerPixel += (int(bd) + 7) / 8
	}
	if bytesPerPixel == 0 {
		return color.NRGBA{}
	}
	off := y*r.Stride + x*bytesPerPixel
	if off+bytesPerPixel > len(r.Pix) {
		return color.NRGBA{}
	}
	px := r.Pix[off : off+bytesPerPixel]

	var c color.NRGBA
	c.A = 0xFF
	pos := 0
	for i, comp := range r.Components {
		n := (int(r.BitDepths[i]) + 7) / 8
		if pos+n > len(px) {
			break
		}
		v := px[pos]
		switch comp.ComponentType {
		case bmff.ComponentRed:
			c.R = v
		case bmff.ComponentGreen:
			c.G = v
		case bmff.ComponentBlue:
			c.B = v
		case bmff.ComponentAlpha:
			c.A = v
		case bmff.ComponentMonochrome, bmff.ComponentY:
			c.R, c.G, c.B = v, v, v
		}
		pos += n
	}
	return c
}

func decodeGenericPlanes(data []byte, width, height int, cmpd *bmff.ComponentDefinitionBox, layout *bmff.UncompressedConfigBox) (image.Image, error) {
	depths := make([]uint8, len(layout.Components))
	bytesPerPixel := 0
	for i, c := range layout.Components {
		depths[i] = c.ComponentBitDepth
		bytesPerPixel += (int(c.ComponentBitDepth) + 7) / 8
	}
	stride := rowStride(layout, width, bytesPerPixel)
	if len(data) < stride*height {
		return nil, fmt.Errorf("codec: unci generic payload too short: got %d bytes, need %d", len(data), stride*height)
	}
	return &RawImage{
		Width: width, Height: height,
		Components: cmpd.Components, BitDepths: depths,
		Stride: stride, Pix: data,
	}, nil
}
