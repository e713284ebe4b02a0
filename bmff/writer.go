package bmff

import (
	"encoding/binary"
	"io"
)

// Writer accumulates a box tree into a growable byte buffer, patching box
// sizes back in once a box's children are known to be complete. This
// mirrors the teacher's read-side sticky-error Reader on the write side:
// callers build depth-first and never need to precompute sizes by hand.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer. Valid only after every
// StartBox/StartFullBox call has been matched by EndBox.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUintN writes an n-byte (0..8) big-endian unsigned integer, the
// write-side counterpart of Reader.ReadUintN.
func (w *Writer) WriteUintN(n int, v uint64) {
	if n <= 0 {
		return
	}
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	w.buf = append(w.buf, buf...)
}

func (w *Writer) WriteFourCC(t FourCC) { w.buf = append(w.buf, t[:]...) }

func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteString writes s followed by a NUL terminator.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// boxMark records where a box's header placeholder starts, so EndBox
// can go back and fill in the real size once the payload is written.
type boxMark struct {
	headerStart int
	isFull      bool
}

// StartBox reserves space for a plain box header (size+type), returning a
// mark to pass to EndBox. The final size is patched in by EndBox; a box
// exceeding 32-bit size (4 GiB, never expected for a still-image item)
// is automatically promoted to the 64-bit largesize form.
func (w *Writer) StartBox(t FourCC) boxMark {
	mark := boxMark{headerStart: len(w.buf)}
	w.WriteU32(0) // size placeholder
	w.WriteFourCC(t)
	return mark
}

// StartFullBox reserves space for a FullBox header (size+type+version+flags).
func (w *Writer) StartFullBox(t FourCC, version uint8, flags uint32) boxMark {
	mark := w.StartBox(t)
	mark.isFull = true
	vf := uint32(version)<<24 | (flags & 0x00FFFFFF)
	w.WriteU32(vf)
	return mark
}

// EndBox patches the size field reserved by StartBox/StartFullBox now that
// every byte of the box (header included) has been written.
func (w *Writer) EndBox(mark boxMark) {
	size := len(w.buf) - mark.headerStart
	if size <= 0xFFFFFFFF {
		binary.BigEndian.PutUint32(w.buf[mark.headerStart:], uint32(size))
		return
	}
	// Promote to a largesize box: size32 field becomes 1, an 8-byte
	// largesize follows the type. This requires splicing 8 bytes into the
	// buffer at the header, shifting everything written since.
	insertAt := mark.headerStart + 8
	var large [8]byte
	binary.BigEndian.PutUint64(large[:], uint64(size)+8)
	w.buf = append(w.buf[:insertAt], append(large[:], w.buf[insertAt:]...)...)
	binary.BigEndian.PutUint32(w.buf[mark.headerStart:], 1)
}

// WriteTo implements io.WriterTo for convenient stream output.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(w.buf)
	return int64(n), err
}
