package bmff_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/heifgo/heifbox/bmff"
)

func TestParseHeaderPlainBox(t *testing.T) {
	c := qt.New(t)

	// size=12, type="ispe", 4 bytes of payload.
	buf := []byte{0, 0, 0, 12, 'i', 's', 'p', 'e', 1, 2, 3, 4}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))

	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Type, qt.Equals, bmff.FCC("ispe"))
	c.Assert(h.Size, qt.Equals, uint64(12))
	c.Assert(h.HeaderLen, qt.Equals, int64(8))
	c.Assert(h.IsFull, qt.IsFalse)
}

func TestParseHeaderFullBox(t *testing.T) {
	c := qt.New(t)

	// size=16, type="meta", version=0, flags=0, 4 bytes payload.
	buf := []byte{0, 0, 0, 16, 'm', 'e', 't', 'a', 0, 0, 0, 0, 9, 9, 9, 9}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))

	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.IsFull, qt.IsTrue)
	c.Assert(h.Version, qt.Equals, uint8(0))
	c.Assert(h.HeaderLen, qt.Equals, int64(12))
}

func TestParseHeaderLargesize(t *testing.T) {
	c := qt.New(t)

	buf := make([]byte, 16)
	buf[3] = 1 // size32 == 1 signals largesize follows
	copy(buf[4:8], "free")
	buf[15] = 16 // largesize = 16

	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Size, qt.Equals, uint64(16))
	c.Assert(h.HeaderLen, qt.Equals, int64(16))
}

func TestParseHeaderRunsToEOF(t *testing.T) {
	c := qt.New(t)

	buf := []byte{0, 0, 0, 0, 'm', 'd', 'a', 't', 1, 2, 3}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Size, qt.Equals, uint64(0))

	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)
	c.Assert(payload.Remaining(), qt.Equals, int64(3))
}

func TestParseHeaderTruncatedDeclaredSize(t *testing.T) {
	c := qt.New(t)

	// Declares size 4, smaller than its own 8-byte header.
	buf := []byte{0, 0, 0, 4, 'f', 'r', 'e', 'e'}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	_, err := bmff.ParseHeader(r)
	c.Assert(err, qt.ErrorMatches, ".*smaller than its own header.*")
}

func TestReadChildHeadersSkipsLeftoverBytes(t *testing.T) {
	c := qt.New(t)

	// Two sibling boxes back to back: "free" (size 10, 2 trailing bytes
	// the visitor doesn't consume) then "skip" (size 8).
	var buf []byte
	buf = append(buf, 0, 0, 0, 10, 'f', 'r', 'e', 'e', 0xAA, 0xBB)
	buf = append(buf, 0, 0, 0, 8, 's', 'k', 'i', 'p')

	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	var seen []string
	err := bmff.ReadChildHeaders(r, 0, ptrLimits(), func(h bmff.Header, payload *bmff.Reader) error {
		seen = append(seen, h.Type.String())
		return nil // deliberately don't read payload's bytes
	})
	c.Assert(err, qt.IsNil)
	c.Assert(seen, qt.DeepEquals, []string{"free", "skip"})
}

func TestFourCCRoundTrip(t *testing.T) {
	c := qt.New(t)
	c.Assert(bmff.FCC("hvc1").String(), qt.Equals, "hvc1")
}

func TestOpaqueBoxPreservesPayload(t *testing.T) {
	c := qt.New(t)

	buf := []byte{0, 0, 0, 12, 'z', 'z', 'z', 'z', 1, 2, 3, 4}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)

	ob, err := bmff.ParseOpaqueBox(h, payload)
	c.Assert(err, qt.IsNil)
	c.Assert(ob.FourCC(), qt.Equals, bmff.FCC("zzzz"))
	c.Assert(ob.Payload, qt.DeepEquals, []byte{1, 2, 3, 4})
}

func TestParseComponentDefinitionBox(t *testing.T) {
	c := qt.New(t)

	buf := []byte{0, 0, 0, 14, 'c', 'm', 'p', 'd', 0, 5, 0, 6, 0, 7}
	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)

	got, err := bmff.ParseComponentDefinitionBox(h, payload)
	c.Assert(err, qt.IsNil)

	want := []bmff.ComponentDefinition{
		{ComponentType: bmff.ComponentRed},
		{ComponentType: bmff.ComponentGreen},
		{ComponentType: bmff.ComponentBlue},
	}
	if diff := cmp.Diff(want, got.Components); diff != "" {
		t.Fatalf("cmpd components mismatch (-want +got):\n%s", diff)
	}
}

func ptrLimits() *bmff.Limits {
	l := bmff.DefaultLimits()
	return &l
}
