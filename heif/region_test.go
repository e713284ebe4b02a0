package heif_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/heif"
)

func TestParseRegionItemAllGeometries(t *testing.T) {
	c := qt.New(t)

	var data []byte
	data = append(data, 0x00)             // flags: field_size = 16 bit
	data = append(data, 0x00, 0x64)       // reference_width = 100
	data = append(data, 0x00, 0x64)       // reference_height = 100
	data = append(data, 0x03)             // region_count = 3

	data = append(data, 0) // geometry_type = 0 (point)
	data = append(data, 0x00, 0x05, 0x00, 0x06)

	data = append(data, 1) // geometry_type = 1 (rectangle)
	data = append(data, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04)

	data = append(data, 3) // geometry_type = 3 (closed polygon)
	data = append(data, 0x00, 0x02)             // point_count = 2
	data = append(data, 0x00, 0x0A, 0x00, 0x0B) // (10, 11)
	data = append(data, 0x00, 0x0C, 0x00, 0x0D) // (12, 13)

	ri, err := heif.ParseRegionItem(data)
	c.Assert(err, qt.IsNil)
	c.Assert(ri.ReferenceWidth, qt.Equals, uint32(100))
	c.Assert(ri.ReferenceHeight, qt.Equals, uint32(100))
	c.Assert(len(ri.Regions), qt.Equals, 3)

	c.Assert(ri.Regions[0].Type, qt.Equals, heif.GeometryPoint)
	c.Assert(ri.Regions[0].X, qt.Equals, int32(5))
	c.Assert(ri.Regions[0].Y, qt.Equals, int32(6))

	c.Assert(ri.Regions[1].Type, qt.Equals, heif.GeometryRectangle)
	c.Assert(ri.Regions[1].Width, qt.Equals, uint32(3))
	c.Assert(ri.Regions[1].Height, qt.Equals, uint32(4))

	c.Assert(ri.Regions[2].Type, qt.Equals, heif.GeometryClosedPolygon)
	c.Assert(ri.Regions[2].Points, qt.DeepEquals, []heif.Point{{X: 10, Y: 11}, {X: 12, Y: 13}})
}

func TestParseRegionItemSkipsUnknownGeometry(t *testing.T) {
	c := qt.New(t)

	var data []byte
	data = append(data, 0x00)
	data = append(data, 0x00, 0x0A, 0x00, 0x0A)
	data = append(data, 0x02) // region_count = 2, but the 2nd is unknown

	data = append(data, 0) // point
	data = append(data, 0x00, 0x01, 0x00, 0x02)

	data = append(data, 99) // unrecognised geometry_type

	ri, err := heif.ParseRegionItem(data)
	c.Assert(err, qt.IsNil)
	c.Assert(len(ri.Regions), qt.Equals, 1)
	c.Assert(ri.Regions[0].Type, qt.Equals, heif.GeometryPoint)
}

func TestParseRegionItemPreservesKnownRegionAfterUnknown(t *testing.T) {
	c := qt.New(t)

	var data []byte
	data = append(data, 0x00)
	data = append(data, 0x00, 0x0A, 0x00, 0x0A)
	data = append(data, 0x03) // region_count = 3: point, unknown, point

	data = append(data, 0) // point
	data = append(data, 0x00, 0x01, 0x00, 0x02)

	data = append(data, 99) // unrecognised geometry_type; no shape bytes to skip

	data = append(data, 0) // point again, right after the unknown type byte
	data = append(data, 0x00, 0x03, 0x00, 0x04)

	ri, err := heif.ParseRegionItem(data)
	c.Assert(err, qt.IsNil)
	c.Assert(len(ri.Regions), qt.Equals, 2)
	c.Assert(ri.Regions[0].Type, qt.Equals, heif.GeometryPoint)
	c.Assert(ri.Regions[0].X, qt.Equals, int32(1))
	c.Assert(ri.Regions[1].Type, qt.Equals, heif.GeometryPoint)
	c.Assert(ri.Regions[1].X, qt.Equals, int32(3))
	c.Assert(ri.Regions[1].Y, qt.Equals, int32(4))
}

func TestParseRegionItem32BitFields(t *testing.T) {
	c := qt.New(t)

	var data []byte
	data = append(data, 0x01) // flags bit0 set: field_size = 32
	data = append(data, 0x00, 0x00, 0x01, 0x00) // reference_width = 256
	data = append(data, 0x00, 0x00, 0x01, 0x00) // reference_height = 256
	data = append(data, 0x01)                   // region_count = 1
	data = append(data, 2)                      // ellipse
	data = append(data, 0x00, 0x00, 0x00, 0x0A) // x = 10
	data = append(data, 0x00, 0x00, 0x00, 0x14) // y = 20
	data = append(data, 0x00, 0x00, 0x00, 0x05) // radius_x = 5
	data = append(data, 0x00, 0x00, 0x00, 0x06) // radius_y = 6

	ri, err := heif.ParseRegionItem(data)
	c.Assert(err, qt.IsNil)
	c.Assert(ri.ReferenceWidth, qt.Equals, uint32(256))
	c.Assert(len(ri.Regions), qt.Equals, 1)
	g := ri.Regions[0]
	c.Assert(g.Type, qt.Equals, heif.GeometryEllipse)
	c.Assert(g.X, qt.Equals, int32(10))
	c.Assert(g.RadiusX, qt.Equals, uint32(5))
}

func TestParseRegionItemTruncated(t *testing.T) {
	c := qt.New(t)

	_, err := heif.ParseRegionItem([]byte{0x00, 0x00})
	c.Assert(err, qt.ErrorMatches, ".*rgan.*")
}
