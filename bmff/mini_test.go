package bmff_test

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/bmff"
)

// testBitWriter packs MSB-first fields into bytes, mirroring BitReader's
// layout, so tests can build a "mini" box payload field-by-field instead
// of hand-computing hex bytes.
type testBitWriter struct {
	bits []byte // one bit per slice element, 0 or 1, for clarity over perf
}

func (w *testBitWriter) put(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *testBitWriter) bytes() []byte {
	for len(w.bits)%8 != 0 {
		w.bits = append(w.bits, 0)
	}
	out := make([]byte, len(w.bits)/8)
	for i, bit := range w.bits {
		if bit != 0 {
			out[i/8] |= 1 << uint(7-(i%8))
		}
	}
	return out
}

func TestParseMiniBoxMinimal(t *testing.T) {
	c := qt.New(t)

	w := &testBitWriter{}
	w.put(2, 0) // version
	w.put(1, 0) // explicit_codec_types_flag
	w.put(1, 0) // float_flag
	w.put(1, 0) // full_range_flag
	w.put(1, 0) // alpha_flag
	w.put(1, 0) // explicit_cicp_flag
	w.put(1, 0) // hdr_flag
	w.put(1, 0) // icc_flag
	w.put(1, 0) // exif_flag
	w.put(1, 0) // xmp_flag
	w.put(2, 0) // chroma_subsampling
	w.put(3, 0) // orientation - 1 -> Orientation will be 1
	w.put(1, 1) // small_dimensions_flag
	w.put(7, 7) // width - 1 -> 8
	w.put(7, 7) // height - 1 -> 8
	w.put(1, 0) // high_bit_depth_flag (float_flag is false)
	w.put(1, 1) // few_codec_config_bytes_flag
	w.put(1, 1) // few_item_data_bytes_flag
	w.put(3, 2) // main_item_codec_config_size (3 bits, "few" variant)
	w.put(15, 3) // main_item_data_size_minus1 (15 bits, "few" variant) -> size 4

	header := w.bytes() // 7 bytes after byte-alignment padding
	codecConfig := []byte{0xAA, 0xBB}
	itemData := []byte{1, 2, 3, 4}

	var payload []byte
	payload = append(payload, header...)
	payload = append(payload, codecConfig...)
	payload = append(payload, itemData...)

	// size = header(8 bytes box header) + payload.
	var buf []byte
	buf = append(buf, 0, 0, 0, byte(8+len(payload)))
	buf = append(buf, 'm', 'i', 'n', 'i')
	buf = append(buf, payload...)

	r := bmff.NewReader(bytes.NewReader(buf), 0, int64(len(buf)))
	h, err := bmff.ParseHeader(r)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Type, qt.Equals, bmff.FCC("mini"))

	pr, err := h.PayloadReader(r, 1, ptrLimits())
	c.Assert(err, qt.IsNil)

	m, err := bmff.ParseMiniBox(pr)
	c.Assert(err, qt.IsNil)

	c.Assert(m.Width, qt.Equals, uint32(8))
	c.Assert(m.Height, qt.Equals, uint32(8))
	c.Assert(m.Orientation, qt.Equals, uint8(1))
	c.Assert(m.BitDepth, qt.Equals, uint8(8))
	c.Assert(m.MainItemCodecConfig, qt.DeepEquals, codecConfig)
	c.Assert(m.MainItemDataSize, qt.Equals, uint64(4))
	// MainItemDataOffset is absolute within the file: box header (8) +
	// bit-packed field bytes (7) + codec config bytes (2).
	c.Assert(m.MainItemDataOffset, qt.Equals, uint64(8+len(header)+len(codecConfig)))
}
