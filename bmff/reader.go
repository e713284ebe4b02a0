package bmff

import (
	"encoding/binary"
	"io"
)

// Reader is a bounded, cursor-based view over a random-access byte source.
// It mirrors the teacher's sticky-error bufReader (see the original
// bmff.bufReader in jdeng/goheif), generalized from a bufio.Reader-backed
// stream to an io.ReaderAt so parsing can seek freely and so a single
// underlying file can back many concurrently-open Readers.
//
// A Reader never allocates per read beyond what the caller requests; bulk
// reads copy into a caller-provided buffer.
type Reader struct {
	src   io.ReaderAt
	base  int64 // absolute offset this Reader's position 0 maps to
	pos   int64 // cursor, relative to base
	limit int64 // bytes readable from base; -1 means unbounded (runs to EOF)
	err   *Error
}

// NewReader wraps src as a Reader starting at absolute offset base. A
// negative limit means the range is unbounded and runs to EOF (used for a
// box with declared size 0, the legal "last box" escape).
func NewReader(src io.ReaderAt, base, limit int64) *Reader {
	return &Reader{src: src, base: base, limit: limit}
}

// Err returns the sticky error set by the first failed read, or nil.
func (r *Reader) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// OK reports whether every previous read succeeded.
func (r *Reader) OK() bool { return r.err == nil }

func (r *Reader) fail(e *Error) error {
	if r.err == nil {
		r.err = e
	}
	return r.err
}

// Pos returns the current cursor position, relative to the range start.
func (r *Reader) Pos() int64 { return r.pos }

// Base returns the absolute offset of the range's start in the underlying source.
func (r *Reader) Base() int64 { return r.base }

// Bounded reports whether this range has a known length.
func (r *Reader) Bounded() bool { return r.limit >= 0 }

// Remaining returns the number of unread bytes in the range. For an
// unbounded range it returns -1.
func (r *Reader) Remaining() int64 {
	if r.limit < 0 {
		return -1
	}
	return r.limit - r.pos
}

// AnyRemaining reports whether more bytes can be read without knowing the
// exact count (true for unbounded ranges).
func (r *Reader) AnyRemaining() bool {
	if r.err != nil {
		return false
	}
	if r.limit < 0 {
		return true
	}
	return r.pos < r.limit
}

// Seek moves the cursor to an absolute position within the range.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || (r.limit >= 0 && pos > r.limit) {
		return r.fail(ErrEndOfData("seek outside range bounds"))
	}
	r.pos = pos
	return nil
}

// Skip advances the cursor by n bytes without reading them.
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.pos + n)
}

// Sub carves out a child Reader of exactly length bytes starting at the
// current cursor, and advances this Reader past it. length < 0 means the
// child runs to the end of this range (the "runs to EOF" box escape).
func (r *Reader) Sub(length int64) (*Reader, error) {
	if r.err != nil {
		return nil, r.err
	}
	if length < 0 {
		child := NewReader(r.src, r.base+r.pos, -1)
		if r.limit >= 0 {
			child.limit = r.limit - r.pos
		}
		if r.limit < 0 {
			// Unbounded parent: the child consumes everything; the parent
			// is closed off where the child starts so it cannot be read
			// from again, which matches "size 0 runs to EOF".
			r.limit = r.pos
		}
		r.pos = r.limit
		return child, nil
	}
	if r.limit >= 0 && r.pos+length > r.limit {
		return nil, r.fail(ErrEndOfData("child range extends past parent end"))
	}
	child := NewReader(r.src, r.base+r.pos, length)
	r.pos += length
	return child, nil
}

// ReadFull reads exactly len(buf) bytes into buf, bounds-checked against
// the range limit.
func (r *Reader) ReadFull(buf []byte) error {
	if r.err != nil {
		return r.err
	}
	n := int64(len(buf))
	if n == 0 {
		return nil
	}
	if r.limit >= 0 && r.pos+n > r.limit {
		return r.fail(ErrEndOfData("read past end of box"))
	}
	read, err := io.ReadFull(io.NewSectionReader(r.src, r.base+r.pos, n), buf)
	if err != nil {
		return r.fail(ErrEndOfData(err.Error()))
	}
	r.pos += int64(read)
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	var b [1]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	var b [2]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	var b [4]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	var b [8]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadUintN reads an n-byte (n in {0,1,2,3,4,5,6,7,8}) big-endian unsigned
// integer, as used by iloc's nibble-selected field widths.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 || n > 8 {
		return 0, r.fail(New(KindInvalidInput, SubInvalidBoxSize, "unsupported field width %d bytes", n))
	}
	var buf [8]byte
	if err := r.ReadFull(buf[:n]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func (r *Reader) ReadFourCC() (FourCC, error) {
	var t FourCC
	if err := r.ReadFull(t[:]); err != nil {
		return t, err
	}
	return t, nil
}

// ReadString reads a null-terminated UTF-8 string, bounded by the range.
func (r *Reader) ReadString() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	var out []byte
	for {
		b, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
		if r.limit >= 0 && int64(len(out)) > r.limit {
			return "", r.fail(ErrEndOfData("unterminated string"))
		}
	}
}

// SkipToEnd discards any bytes left in the range (leftover fields unknown
// to the registry's concrete parser still get skipped to the box's end).
func (r *Reader) SkipToEnd() error {
	if r.err != nil {
		return r.err
	}
	if r.limit < 0 {
		return nil // unbounded: nothing meaningful to skip to
	}
	r.pos = r.limit
	return nil
}
