package heif_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/heif"
)

func TestBuilderRoundTrip(t *testing.T) {
	c := qt.New(t)

	b := heif.NewBuilder(bmff.FCC("heic"))
	b.PrimaryItemID = 1

	err := b.AddItem(heif.ItemSpec{
		ID:   1,
		Type: bmff.FCC("unci"),
		Name: "main",
		Data: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		Properties: []bmff.Property{
			&bmff.ImageSpatialExtents{Width: 4, Height: 2},
			&bmff.ColourInformation{ColourType: bmff.FCC("nclx"), ColourPrimaries: 1, TransferCharacteristics: 13, MatrixCoefficients: 6, FullRangeFlag: true},
		},
		Essential: []bool{true, false},
	})
	c.Assert(err, qt.IsNil)

	err = b.AddItem(heif.ItemSpec{
		ID:     2,
		Type:   bmff.ItemExif,
		Hidden: true,
		Data:   []byte{0, 0, 0, 0, 'E', 'x', 'i', 'f'},
		References: []heif.ItemRef{
			{Type: bmff.RefCdsc, ToItemIDs: []uint32{1}},
		},
	})
	c.Assert(err, qt.IsNil)

	var buf bytes.Buffer
	_, err = b.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	f := heif.Open(bytes.NewReader(buf.Bytes()))

	primary, err := f.PrimaryItem()
	c.Assert(err, qt.IsNil)
	c.Assert(primary.ID, qt.Equals, uint32(1))
	c.Assert(primary.Type(), qt.Equals, bmff.FCC("unci"))

	w, h, ok := primary.SpatialExtents()
	c.Assert(ok, qt.IsTrue)
	c.Assert(w, qt.Equals, 4)
	c.Assert(h, qt.Equals, 2)

	data, err := f.GetItemData(primary)
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	colr, ok := primary.ColourProfile()
	c.Assert(ok, qt.IsTrue)
	c.Assert(colr.ColourPrimaries, qt.Equals, uint16(1))
	c.Assert(primary.PropertyEssential[0], qt.IsTrue)

	exifItem, err := f.ItemByID(2)
	c.Assert(err, qt.IsNil)
	c.Assert(exifItem.Hidden(), qt.IsTrue)
	ref := exifItem.Reference(bmff.RefCdsc)
	c.Assert(ref, qt.Not(qt.IsNil))
	c.Assert(ref.ToItemIDs, qt.DeepEquals, []uint32{uint32(1)})
}

func TestBuilderRejectsDuplicateItemID(t *testing.T) {
	c := qt.New(t)

	b := heif.NewBuilder(bmff.FCC("heic"))
	c.Assert(b.AddItem(heif.ItemSpec{ID: 1, Type: bmff.FCC("unci")}), qt.IsNil)
	err := b.AddItem(heif.ItemSpec{ID: 1, Type: bmff.FCC("unci")})
	c.Assert(err, qt.ErrorMatches, ".*already added.*")
}
