package bmff_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/bmff"
)

func TestWriterPlainBoxRoundTrip(t *testing.T) {
	c := qt.New(t)

	w := bmff.NewWriter()
	mark := w.StartBox(bmff.FCC("free"))
	w.WriteBytes([]byte{1, 2, 3})
	w.EndBox(mark)

	buf := w.Bytes()
	c.Assert(len(buf), qt.Equals, 11) // 8-byte header + 3 payload bytes

	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Type, qt.Equals, bmff.FCC("free"))
	c.Assert(h.Size, qt.Equals, uint64(11))

	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)
	got := make([]byte, 3)
	c.Assert(payload.ReadFull(got), qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte{1, 2, 3})
}

func TestWriterFullBoxRoundTrip(t *testing.T) {
	c := qt.New(t)

	w := bmff.NewWriter()
	mark := w.StartFullBox(bmff.TypeIspe, 0, 0)
	w.WriteU32(640)
	w.WriteU32(480)
	w.EndBox(mark)

	r := bmff.NewReader(bytes.NewReader(w.Bytes()), 0, int64(w.Len()))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.IsFull, qt.IsTrue)

	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)
	ispe, err := bmff.ParseImageSpatialExtents(h, payload)
	c.Assert(err, qt.IsNil)
	c.Assert(ispe.Width, qt.Equals, uint32(640))
	c.Assert(ispe.Height, qt.Equals, uint32(480))
}

func TestWriterNestedBoxes(t *testing.T) {
	c := qt.New(t)

	w := bmff.NewWriter()
	outer := w.StartBox(bmff.FCC("ipco"))
	inner := w.StartFullBox(bmff.TypeIspe, 0, 0)
	w.WriteU32(10)
	w.WriteU32(20)
	w.EndBox(inner)
	w.EndBox(outer)

	r := bmff.NewReader(bytes.NewReader(w.Bytes()), 0, int64(w.Len()))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Type, qt.Equals, bmff.FCC("ipco"))

	payload, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)

	var sawIspe bool
	err = bmff.ReadChildHeaders(payload, 1, ptrLimits(), func(ch bmff.Header, body *bmff.Reader) error {
		c.Assert(ch.Type, qt.Equals, bmff.FCC("ispe"))
		ispe, err := bmff.ParseImageSpatialExtents(ch, body)
		c.Assert(err, qt.IsNil)
		c.Assert(ispe.Width, qt.Equals, uint32(10))
		sawIspe = true
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(sawIspe, qt.IsTrue)
}
