package heif

import (
	"github.com/heifgo/heifbox/bmff"
)

// GeometryType enumerates a region's shape (ADDED feature, grounded on
// libheif's region.h/region.cc; not present in the distilled container
// spec but implemented here per "silence is an invitation, not a
// prohibition").
type GeometryType int

const (
	GeometryPoint GeometryType = iota
	GeometryRectangle
	GeometryEllipse
	GeometryClosedPolygon
	GeometryOpenPolygon
)

// Point is one (x, y) coordinate within a RegionItem's ReferenceWidth x
// ReferenceHeight coordinate space.
type Point struct{ X, Y int32 }

// RegionGeometry is one shape within a RegionItem. Exactly one of the
// typed fields is meaningful, selected by Type — a tagged union rather
// than an interface, since the set of shapes is closed and fixed by the
// specification (geometry_type codes 0,1,2,3,6; libheif region.cc skips
// any other code with a warning; this package skips it without a warning).
type RegionGeometry struct {
	Type GeometryType

	// GeometryPoint / GeometryRectangle / GeometryEllipse
	X, Y          int32
	Width, Height uint32 // Rectangle
	RadiusX       uint32 // Ellipse
	RadiusY       uint32 // Ellipse

	// GeometryClosedPolygon / GeometryOpenPolygon
	Points []Point
}

// RegionItem is a parsed "rgan" item's payload: a reference coordinate
// space plus an ordered list of geometries (ADDED feature, §2 Component K).
type RegionItem struct {
	ReferenceWidth, ReferenceHeight uint32
	Regions                        []RegionGeometry
}

// ParseRegionItem parses an "rgan" item's raw payload (grounded on
// libheif's RegionItem::parse / RegionGeometry::parse).
func ParseRegionItem(data []byte) (*RegionItem, error) {
	if len(data) < 4 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: payload too short (%d bytes)", len(data))
	}
	flags := data[0]
	fieldSize := 16
	if flags&1 != 0 {
		fieldSize = 32
	}

	ri := &RegionItem{}
	off := 1
	if fieldSize == 32 {
		if len(data) < off+8 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: truncated reference dimensions")
		}
		ri.ReferenceWidth = be32(data[off:])
		ri.ReferenceHeight = be32(data[off+4:])
		off += 8
	} else {
		if len(data) < off+4 {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: truncated reference dimensions")
		}
		ri.ReferenceWidth = uint32(be16(data[off:]))
		ri.ReferenceHeight = uint32(be16(data[off+2:]))
		off += 4
	}

	if off >= len(data) {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: missing region_count")
	}
	count := int(data[off])
	off++

	byteWidth := fieldSize / 8
	readUnsigned := func() (uint32, error) {
		if off+byteWidth > len(data) {
			return 0, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: truncated field at offset %d", off)
		}
		var v uint32
		for i := 0; i < byteWidth; i++ {
			v = v<<8 | uint32(data[off+i])
		}
		off += byteWidth
		return v, nil
	}
	readSigned := func() (int32, error) {
		v, err := readUnsigned()
		if err != nil {
			return 0, err
		}
		if fieldSize == 32 {
			return int32(v), nil
		}
		return int32(int16(v)), nil
	}

	for i := 0; i < count; i++ {
		if off >= len(data) {
			return nil, bmff.New(bmff.KindInvalidInput, bmff.SubInvalidRegionData, "rgan: truncated geometry_type for region %d", i)
		}
		geomType := data[off]
		off++

		var g RegionGeometry
		var err error
		switch geomType {
		case 0:
			g.Type = GeometryPoint
			if g.X, err = readSigned(); err != nil {
				return nil, err
			}
			if g.Y, err = readSigned(); err != nil {
				return nil, err
			}
		case 1:
			g.Type = GeometryRectangle
			if g.X, err = readSigned(); err != nil {
				return nil, err
			}
			if g.Y, err = readSigned(); err != nil {
				return nil, err
			}
			if g.Width, err = readUnsigned(); err != nil {
				return nil, err
			}
			if g.Height, err = readUnsigned(); err != nil {
				return nil, err
			}
		case 2:
			g.Type = GeometryEllipse
			if g.X, err = readSigned(); err != nil {
				return nil, err
			}
			if g.Y, err = readSigned(); err != nil {
				return nil, err
			}
			if g.RadiusX, err = readUnsigned(); err != nil {
				return nil, err
			}
			if g.RadiusY, err = readUnsigned(); err != nil {
				return nil, err
			}
		case 3, 6:
			if geomType == 3 {
				g.Type = GeometryClosedPolygon
			} else {
				g.Type = GeometryOpenPolygon
			}
			numPoints, err := readUnsigned()
			if err != nil {
				return nil, err
			}
			for p := uint32(0); p < numPoints; p++ {
				x, err := readSigned()
				if err != nil {
					return nil, err
				}
				y, err := readSigned()
				if err != nil {
					return nil, err
				}
				g.Points = append(g.Points, Point{X: x, Y: y})
			}
		default:
			// Unknown geometry type: its shape-specific bytes cannot be
			// located without decoding it, so this region is dropped and
			// parsing resumes at the very next byte, matching
			// RegionItem::parse's "continue" (region.cc) rather than
			// aborting the whole item.
			continue
		}
		ri.Regions = append(ri.Regions, g)
	}
	return ri, nil
}

// Region parses it's payload as a region annotation item. It returns
// (nil, false) for any item whose type is not "rgan".
func (f *File) Region(it *Item) (*RegionItem, bool, error) {
	if it.Type() != bmff.ItemRgan {
		return nil, false, nil
	}
	data, err := f.GetItemData(it)
	if err != nil {
		return nil, true, err
	}
	ri, err := ParseRegionItem(data)
	if err != nil {
		return nil, true, err
	}
	return ri, true, nil
}

// ScaleToImage returns the transform factors that map this RegionItem's
// coordinate space onto an image of the given pixel dimensions (libheif
// region.cc's get_transformation: a = image_width/reference_width etc).
func (ri *RegionItem) ScaleToImage(imageWidth, imageHeight int) (scaleX, scaleY float64) {
	if ri.ReferenceWidth == 0 || ri.ReferenceHeight == 0 {
		return 1, 1
	}
	return float64(imageWidth) / float64(ri.ReferenceWidth), float64(imageHeight) / float64(ri.ReferenceHeight)
}
