package heif

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/bmff"
)

// newTestFile returns a File backed by raw bytes, with meta pre-populated
// (empty) so getMeta short-circuits without needing a real ftyp/meta box,
// and an empty item cache ready for the test to populate directly.
func newTestFile(backing []byte) *File {
	return &File{
		ra:        bytes.NewReader(backing),
		limits:    bmff.DefaultLimits(),
		meta:      &boxMeta{},
		itemCache: make(map[uint32]*Item),
	}
}

func TestGetItemDataConcatenatesMultipleExtents(t *testing.T) {
	c := qt.New(t)

	backing := []byte("0123456789ABCDEFGHIJ")
	f := newTestFile(backing)
	f.itemCache[1] = &Item{
		f:  f,
		ID: 1,
		Location: &bmff.ItemLocationEntry{
			ItemID:             1,
			ConstructionMethod: 0,
			Extents: []bmff.Extent{
				{Offset: 0, Length: 4},  // "0123"
				{Offset: 10, Length: 4}, // "ABCD"
			},
		},
	}

	data, err := f.GetItemData(f.itemCache[1])
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "0123ABCD")
}

func TestGetItemDataConstructionMethod2Recurses(t *testing.T) {
	c := qt.New(t)

	backing := []byte("0123456789ABCDEFGHIJ")
	f := newTestFile(backing)
	base := &Item{
		f:  f,
		ID: 1,
		Location: &bmff.ItemLocationEntry{
			ItemID:             1,
			ConstructionMethod: 0,
			Extents:            []bmff.Extent{{Offset: 0, Length: 10}}, // "0123456789"
		},
	}
	derived := &Item{
		f:  f,
		ID: 2,
		Location: &bmff.ItemLocationEntry{
			ItemID:             2,
			ConstructionMethod: 2,
			Extents:            []bmff.Extent{{Index: 1, Offset: 4, Length: 3}}, // "456" out of item 1
		},
	}
	f.itemCache[1] = base
	f.itemCache[2] = derived

	data, err := f.GetItemData(derived)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "456")
}

func TestGetItemDataConstructionMethod2DetectsCycle(t *testing.T) {
	c := qt.New(t)

	f := newTestFile([]byte("0123456789"))
	a := &Item{f: f, ID: 1}
	b := &Item{f: f, ID: 2}
	a.Location = &bmff.ItemLocationEntry{
		ItemID:             1,
		ConstructionMethod: 2,
		Extents:            []bmff.Extent{{Index: 2, Offset: 0, Length: 1}},
	}
	b.Location = &bmff.ItemLocationEntry{
		ItemID:             2,
		ConstructionMethod: 2,
		Extents:            []bmff.Extent{{Index: 1, Offset: 0, Length: 1}},
	}
	f.itemCache[1] = a
	f.itemCache[2] = b

	_, err := f.GetItemData(a)
	c.Assert(err, qt.ErrorMatches, ".*cycle.*")
}
