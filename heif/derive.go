package heif

import (
	"fmt"

	"github.com/heifgo/heifbox/bmff"
)

// GridLayout is a parsed "grid" derived-image item's payload (§3 Derived
// image, §4.G): rows × cols tiles, addressed in order by the item's
// "dimg" references, composed into a canvas of OutputWidth × OutputHeight
// by trimming the right and bottom edges.
type GridLayout struct {
	Rows, Columns            int
	OutputWidth, OutputHeight uint32
}

// ParseGridLayout parses a grid item's raw payload (ISO/IEC 23008-12
// §6.6.2.3.2): a version/flags byte pair, rows-1/columns-1 (8 or 32 bit,
// selected by flags bit 0), then output_width/output_height (16 or 32
// bit, same selector).
func ParseGridLayout(data []byte) (*GridLayout, error) {
	if len(data) < 8 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid: payload too short (%d bytes)", len(data))
	}
	version := data[0]
	flags := data[1]
	if version != 0 {
		return nil, bmff.New(bmff.KindUnsupportedFeature, bmff.SubNone, "grid: unsupported version %d", version)
	}
	largeField := flags&1 != 0

	off := 2
	var rows, cols int
	if largeField {
		if len(data) < off+8 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid: truncated rows/columns")
		}
		rows = int(be32(data[off:])) + 1
		cols = int(be32(data[off+4:])) + 1
		off += 8
	} else {
		if len(data) < off+2 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid: truncated rows/columns")
		}
		rows = int(data[off]) + 1
		cols = int(data[off+1]) + 1
		off += 2
	}

	var outW, outH uint32
	if largeField {
		if len(data) < off+8 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid: truncated output dimensions")
		}
		outW = be32(data[off:])
		outH = be32(data[off+4:])
	} else {
		if len(data) < off+4 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "grid: truncated output dimensions")
		}
		outW = uint32(be16(data[off:]))
		outH = uint32(be16(data[off+2:]))
	}

	return &GridLayout{Rows: rows, Columns: cols, OutputWidth: outW, OutputHeight: outH}, nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// OverlayInput is one "iovl" input image's placement offset.
type OverlayInput struct {
	OffsetX, OffsetY int32
}

// OverlayLayout is a parsed "iovl" derived-image item's payload
// (ISO/IEC 23008-12 §6.6.2.4.2): a canvas size, an RGBA fill colour, and
// one (x, y) offset per input (taken in "dimg" reference order).
type OverlayLayout struct {
	CanvasWidth, CanvasHeight uint32
	FillColourRGBA            [4]uint16
	Inputs                    []OverlayInput
}

// ParseOverlayLayout parses an iovl item's raw payload.
func ParseOverlayLayout(data []byte, inputCount int) (*OverlayLayout, error) {
	if len(data) < 2 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: payload too short")
	}
	version := data[0]
	flags := data[1]
	if version != 0 {
		return nil, bmff.New(bmff.KindUnsupportedFeature, bmff.SubNone, "iovl: unsupported version %d", version)
	}
	largeField := flags&1 != 0
	off := 2

	ol := &OverlayLayout{}
	if largeField {
		if len(data) < off+8 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: truncated canvas size")
		}
		ol.CanvasWidth = be32(data[off:])
		ol.CanvasHeight = be32(data[off+4:])
		off += 8
	} else {
		if len(data) < off+4 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: truncated canvas size")
		}
		ol.CanvasWidth = uint32(be16(data[off:]))
		ol.CanvasHeight = uint32(be16(data[off+2:]))
		off += 4
	}

	if len(data) < off+8 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: truncated fill colour")
	}
	for i := 0; i < 4; i++ {
		ol.FillColourRGBA[i] = be16(data[off+2*i:])
	}
	off += 8

	for i := 0; i < inputCount; i++ {
		var x, y int32
		if largeField {
			if len(data) < off+8 {
				return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: truncated input offset %d", i)
			}
			x, y = int32(be32(data[off:])), int32(be32(data[off+4:]))
			off += 8
		} else {
			if len(data) < off+4 {
				return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidGridData, "iovl: truncated input offset %d", i)
			}
			x, y = int32(int16(be16(data[off:]))), int32(int16(be16(data[off+2:])))
			off += 4
		}
		ol.Inputs = append(ol.Inputs, OverlayInput{OffsetX: x, OffsetY: y})
	}
	return ol, nil
}

// DerivedInputs returns it's "dimg" reference targets in reference order,
// the children a grid/iovl/iden item composes (§4.G).
func (f *File) DerivedInputs(it *Item) ([]*Item, error) {
	ref := it.Reference(bmff.RefDimg)
	if ref == nil {
		return nil, fmt.Errorf("heif: item %d has no dimg references", it.ID)
	}
	inputs := make([]*Item, 0, len(ref.ToItemIDs))
	for _, id := range ref.ToItemIDs {
		child, err := f.ItemByID(id)
		if err != nil {
			return nil, fmt.Errorf("heif: item %d dimg -> %d: %w", it.ID, id, err)
		}
		inputs = append(inputs, child)
	}
	return inputs, nil
}

// IsDerived reports whether it's item_type is one of the derived-image
// recipe types this package interprets.
func (it *Item) IsDerived() bool {
	switch it.Type() {
	case bmff.ItemGrid, bmff.ItemIovl, bmff.ItemIden:
		return true
	default:
		return false
	}
}
