package heif

import (
	"bytes"
	"encoding/binary"
	"fmt"

	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/heifgo/heifbox/bmff"
)

// ErrNoEXIF is returned by File.EXIF when the file has no "Exif" item.
var ErrNoEXIF = fmt.Errorf("heif: no EXIF item in file")

// EXIF returns the file's raw TIFF-format EXIF data, stripped of the
// 4-byte big-endian offset prefix ISO/IEC 23008-12 Annex A.2.1 mandates
// before the TIFF header (grounded on the teacher's EXIF() method, whose
// "TODO: why 4?" is this prefix — see bep-imagemeta's handleEXIF, which
// names and skips the same 4 bytes as exif_tiff_header_offset).
func (f *File) EXIF() ([]byte, error) {
	meta, err := f.getMeta()
	if err != nil {
		return nil, err
	}
	id := meta.EXIFItemID()
	if id == 0 {
		return nil, ErrNoEXIF
	}
	it, err := f.ItemByID(id)
	if err != nil {
		return nil, err
	}
	data, err := f.GetItemData(it)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "Exif item %d payload shorter than the mandatory 4-byte offset prefix", id)
	}
	offset := binary.BigEndian.Uint32(data[:4])
	start := 4 + int(offset)
	if start > len(data) {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "Exif item %d: exif_tiff_header_offset %d runs past payload end", id, offset)
	}
	return data[start:], nil
}

// DecodeEXIF parses the file's EXIF data via goexif, returning the decoded
// tag set.
func (f *File) DecodeEXIF() (*goexif.Exif, error) {
	raw, err := f.EXIF()
	if err != nil {
		return nil, err
	}
	return goexif.Decode(bytes.NewReader(raw))
}
