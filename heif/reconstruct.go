package heif

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/codec"
)

// Decoder reconstructs pixel images from this file's items, dispatching
// coded payloads to a codec.Registry and interpreting grid/iovl/iden
// recipes (§4.G).
type Decoder struct {
	f        *File
	Registry *codec.Registry
	Tiles    *codec.TilePool
}

// NewDecoder returns a Decoder for f using codec.DefaultRegistry and a
// codec.TilePool sized codec.DefaultTileConcurrency.
func NewDecoder(f *File) *Decoder {
	return &Decoder{
		f:        f,
		Registry: codec.DefaultRegistry,
		Tiles:    codec.NewTilePool(codec.DefaultTileConcurrency),
	}
}

// Decode reconstructs it into a pixel image, recursing into dimg
// references for derived items (§3 Derived image, §4.G).
func (d *Decoder) Decode(ctx context.Context, it *Item) (image.Image, error) {
	switch it.Type() {
	case bmff.ItemGrid:
		return d.decodeGrid(ctx, it)
	case bmff.ItemIovl:
		return d.decodeOverlay(ctx, it)
	case bmff.ItemIden:
		return d.decodeIdentity(ctx, it)
	default:
		return d.decodeLeaf(it)
	}
}

func (d *Decoder) decodeLeaf(it *Item) (image.Image, error) {
	data, err := it.Data()
	if err != nil {
		return nil, err
	}

	itemType := [4]byte(it.Type())
	switch it.Type() {
	case bmff.ItemUnci:
		cmpd := cmpdFor(it)
		uncC, ok := it.UncompressedConfig()
		if !ok {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "unci item %d missing uncC property", it.ID)
		}
		w, h, ok := it.SpatialExtents()
		if !ok {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "unci item %d missing ispe property", it.ID)
		}
		dec, err := codec.UncompressedPlugin{}.NewDecoder(codec.WithUncompressedLayout(cmpd, uncC, w, h))
		if err != nil {
			return nil, err
		}
		defer dec.Free()
		if err := dec.Push(data); err != nil {
			return nil, err
		}
		return dec.DecodeImage()
	case bmff.ItemMski:
		mskC, ok := it.MaskConfig()
		if !ok {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "mski item %d missing mskC property", it.ID)
		}
		w, h, ok := it.SpatialExtents()
		if !ok {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "mski item %d missing ispe property", it.ID)
		}
		dec, err := codec.MaskPlugin{}.NewDecoder(codec.WithMaskLayout(mskC, w, h))
		if err != nil {
			return nil, err
		}
		defer dec.Free()
		if err := dec.Push(data); err != nil {
			return nil, err
		}
		return dec.DecodeImage()
	default:
		return d.Registry.DecodeItem(itemType, data)
	}
}

func cmpdFor(it *Item) *bmff.ComponentDefinitionBox {
	for _, p := range it.Properties {
		if cmpd, ok := p.(*bmff.ComponentDefinitionBox); ok {
			return cmpd
		}
	}
	return nil
}

func (d *Decoder) decodeIdentity(ctx context.Context, it *Item) (image.Image, error) {
	inputs, err := d.f.DerivedInputs(it)
	if err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iden item %d: expected exactly 1 input, got %d", it.ID, len(inputs))
	}
	return d.Decode(ctx, inputs[0])
}

func (d *Decoder) decodeGrid(ctx context.Context, it *Item) (image.Image, error) {
	data, err := it.Data()
	if err != nil {
		return nil, err
	}
	layout, err := ParseGridLayout(data)
	if err != nil {
		return nil, err
	}
	inputs, err := d.f.DerivedInputs(it)
	if err != nil {
		return nil, err
	}
	if len(inputs) != layout.Rows*layout.Columns {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid item %d: rows*cols=%d but %d dimg inputs", it.ID, layout.Rows*layout.Columns, len(inputs))
	}

	results := d.Tiles.DecodeTiles(ctx, len(inputs), func(ctx context.Context, i int) (image.Image, error) {
		return d.Decode(ctx, inputs[i])
	})
	tiles := make([]image.Image, len(inputs))
	for i, res := range results {
		if res.Err != nil {
			return nil, fmt.Errorf("heif: grid item %d tile %d: %w", it.ID, i, res.Err)
		}
		tiles[i] = res.Image
	}

	tileW, tileH := tiles[0].Bounds().Dx(), tiles[0].Bounds().Dy()
	for i, t := range tiles {
		if t.Bounds().Dx() != tileW || t.Bounds().Dy() != tileH {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid item %d: tile %d has dimensions %dx%d, want %dx%d", it.ID, i, t.Bounds().Dx(), t.Bounds().Dy(), tileW, tileH)
		}
	}
	if layout.Columns*tileW < int(layout.OutputWidth) || layout.Rows*tileH < int(layout.OutputHeight) {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid item %d: tiles (%dx%d grid of %dx%d) do not cover declared output %dx%d", it.ID, layout.Columns, layout.Rows, tileW, tileH, layout.OutputWidth, layout.OutputHeight)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, int(layout.OutputWidth), int(layout.OutputHeight)))
	for row := 0; row < layout.Rows; row++ {
		for col := 0; col < layout.Columns; col++ {
			idx := row*layout.Columns + col
			dst := image.Rect(col*tileW, row*tileH, col*tileW+tileW, row*tileH+tileH).Intersect(canvas.Bounds())
			if dst.Empty() {
				continue
			}
			draw.Draw(canvas, dst, tiles[idx], image.Point{}, draw.Src)
		}
	}
	return canvas, nil
}

func (d *Decoder) decodeOverlay(ctx context.Context, it *Item) (image.Image, error) {
	inputs, err := d.f.DerivedInputs(it)
	if err != nil {
		return nil, err
	}
	data, err := it.Data()
	if err != nil {
		return nil, err
	}
	layout, err := ParseOverlayLayout(data, len(inputs))
	if err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, int(layout.CanvasWidth), int(layout.CanvasHeight)))
	fill := color.NRGBA{
		R: uint8(layout.FillColourRGBA[0] >> 8),
		G: uint8(layout.FillColourRGBA[1] >> 8),
		B: uint8(layout.FillColourRGBA[2] >> 8),
		A: uint8(layout.FillColourRGBA[3] >> 8),
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	for i, input := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := d.Decode(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("heif: iovl item %d input %d: %w", it.ID, i, err)
		}
		off := layout.Inputs[i]
		dst := img.Bounds().Add(image.Pt(int(off.OffsetX), int(off.OffsetY))).Intersect(canvas.Bounds())
		if dst.Empty() {
			d.f.limits.Warnf("iovl item %d: input %d falls entirely outside the canvas, skipping", it.ID, i)
			continue
		}
		srcOrigin := image.Pt(dst.Min.X-int(off.OffsetX), dst.Min.Y-int(off.OffsetY))
		draw.Draw(canvas, dst, img, srcOrigin, draw.Over)
	}
	return canvas, nil
}
