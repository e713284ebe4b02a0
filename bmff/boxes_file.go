package bmff

// FileTypeBox is the mandatory "ftyp" box: major/minor brand plus a list
// of brands a reader may treat this file as compatible with.
type FileTypeBox struct {
	MajorBrand     FourCC
	MinorVersion   uint32
	CompatibleBrands []FourCC
}

// HasCompatibleBrand reports whether b appears in MajorBrand or
// CompatibleBrands, per §4.C's has_compatible_brand.
func (f *FileTypeBox) HasCompatibleBrand(b FourCC) bool {
	if f.MajorBrand == b {
		return true
	}
	for _, c := range f.CompatibleBrands {
		if c == b {
			return true
		}
	}
	return false
}

func ParseFileTypeBox(payload *Reader) (*FileTypeBox, error) {
	ft := &FileTypeBox{}
	major, err := payload.ReadFourCC()
	if err != nil {
		return nil, err
	}
	ft.MajorBrand = major
	minor, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	ft.MinorVersion = minor
	for payload.Remaining() >= 4 {
		b, err := payload.ReadFourCC()
		if err != nil {
			return nil, err
		}
		ft.CompatibleBrands = append(ft.CompatibleBrands, b)
	}
	return ft, payload.Err()
}

// MiniBox is the "mini" compact alternative to meta for single-image AVIF
// files (§4.C). Field layout follows the original source's Box_mini::parse
// field-for-field (continuously bit-packed, not byte-aligned until the
// trailing skip_to_byte_boundary before the payload blobs): a bit-packed
// header selects which optional sections (alpha/icc/exif/xmp/gainmap) are
// present, and the box carries enough information for heif.ParseFile to
// synthesize the equivalent virtual iloc/ipma/ipco entries so downstream
// code stays uniform.
type MiniBox struct {
	Version                uint8
	ExplicitCodecTypesFlag bool
	FloatFlag              bool
	FullRangeFlag          bool
	AlphaFlag              bool
	ExplicitCICPFlag       bool
	HDRFlag                bool
	ICCFlag                bool
	ExifFlag               bool
	XMPFlag                bool
	ChromaSubsampling      uint8
	Orientation            uint8 // 1..8, per ISO/IEC 23008-12 Annex B Exif-style orientation

	Width, Height uint32
	BitDepth      uint8

	ChromaIsHorizontallyCentred bool
	ChromaIsVerticallyCentred   bool
	AlphaIsPremultiplied        bool

	ColourPrimaries         uint16
	TransferCharacteristics uint16
	MatrixCoefficients      uint16

	GainmapFlag bool
	TmapICCFlag bool

	MainItemCodecConfig  []byte
	AlphaItemCodecConfig []byte

	ICCData []byte

	// *Offset fields are absolute byte offsets within the file, filled in
	// by adding the box payload's file base to the bitstream position
	// BitReader tracked at each point (mirrors get_file_offset()).
	MainItemDataOffset, MainItemDataSize   uint64
	AlphaItemDataOffset, AlphaItemDataSize uint64
	ExifItemDataOffset, ExifItemDataSize   uint64
	XMPItemDataOffset, XMPItemDataSize     uint64
}

// ParseMiniBox parses a "mini" box body bit-for-bit as Box_mini::parse
// does, reading the whole payload into memory first since the field
// widths are not byte-aligned until the fixed header is done.
func ParseMiniBox(payload *Reader) (*MiniBox, error) {
	data := make([]byte, payload.Remaining())
	if err := payload.ReadFull(data); err != nil {
		return nil, err
	}
	base := payload.Base()

	br := NewBitReader(data)
	m := &MiniBox{BitDepth: 8}

	get := func(n int) (uint32, error) { return br.GetBits(n) }
	flag := func() (bool, error) {
		v, err := br.GetBits(1)
		return v != 0, err
	}

	var err error
	var v uint32
	if v, err = get(2); err != nil {
		return nil, err
	}
	m.Version = uint8(v)
	if m.ExplicitCodecTypesFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.FloatFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.FullRangeFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.AlphaFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.ExplicitCICPFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.HDRFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.ICCFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.ExifFlag, err = flag(); err != nil {
		return nil, err
	}
	if m.XMPFlag, err = flag(); err != nil {
		return nil, err
	}
	if v, err = get(2); err != nil {
		return nil, err
	}
	m.ChromaSubsampling = uint8(v)
	if v, err = get(3); err != nil {
		return nil, err
	}
	m.Orientation = uint8(v) + 1

	smallDims, err := flag()
	if err != nil {
		return nil, err
	}
	dimBits := 15
	if smallDims {
		dimBits = 7
	}
	if v, err = get(dimBits); err != nil {
		return nil, err
	}
	m.Width = v + 1
	if v, err = get(dimBits); err != nil {
		return nil, err
	}
	m.Height = v + 1

	if m.ChromaSubsampling == 1 || m.ChromaSubsampling == 2 {
		if m.ChromaIsHorizontallyCentred, err = flag(); err != nil {
			return nil, err
		}
	}
	if m.ChromaSubsampling == 1 {
		if m.ChromaIsVerticallyCentred, err = flag(); err != nil {
			return nil, err
		}
	}

	if m.FloatFlag {
		bdlog2m4, err := get(2)
		if err != nil {
			return nil, err
		}
		m.BitDepth = uint8(1 << (bdlog2m4 + 4))
	} else {
		highBD, err := flag()
		if err != nil {
			return nil, err
		}
		if highBD {
			v, err := get(3)
			if err != nil {
				return nil, err
			}
			m.BitDepth = uint8(9 + v)
		}
	}

	if m.AlphaFlag {
		if m.AlphaIsPremultiplied, err = flag(); err != nil {
			return nil, err
		}
	}

	if m.ExplicitCICPFlag {
		cp, err := get(8)
		if err != nil {
			return nil, err
		}
		tc, err := get(8)
		if err != nil {
			return nil, err
		}
		m.ColourPrimaries, m.TransferCharacteristics = uint16(cp), uint16(tc)
		if m.ChromaSubsampling != 0 {
			mc, err := get(8)
			if err != nil {
				return nil, err
			}
			m.MatrixCoefficients = uint16(mc)
		} else {
			m.MatrixCoefficients = 2
		}
	} else {
		if m.ICCFlag {
			m.ColourPrimaries, m.TransferCharacteristics = 2, 2
		} else {
			m.ColourPrimaries, m.TransferCharacteristics = 1, 13
		}
		if m.ChromaSubsampling == 0 {
			m.MatrixCoefficients = 2
		} else {
			m.MatrixCoefficients = 6
		}
	}

	if m.ExplicitCodecTypesFlag {
		return nil, New(KindUnsupportedFeature, SubNone, "mini: explicit_codec_types_flag is not supported")
	}
	if m.HDRFlag {
		if m.GainmapFlag, err = flag(); err != nil {
			return nil, err
		}
		if m.GainmapFlag {
			return nil, New(KindUnsupportedFeature, SubNone, "mini: HDR gainmap sections are not supported")
		}
	}

	var fewMetadataBytes bool
	if m.ICCFlag || m.ExifFlag || m.XMPFlag {
		if fewMetadataBytes, err = flag(); err != nil {
			return nil, err
		}
	}
	fewCodecConfigBytes, err := flag()
	if err != nil {
		return nil, err
	}
	fewItemDataBytes, err := flag()
	if err != nil {
		return nil, err
	}

	metaBits := 20
	if fewMetadataBytes {
		metaBits = 10
	}
	codecBits := 12
	if fewCodecConfigBytes {
		codecBits = 3
	}
	itemBits := 28
	if fewItemDataBytes {
		itemBits = 15
	}

	var iccSizeMinus1 uint32
	if m.ICCFlag {
		if iccSizeMinus1, err = get(metaBits); err != nil {
			return nil, err
		}
	}

	mainCodecConfigSize, err := get(codecBits)
	if err != nil {
		return nil, err
	}
	mainDataSizeMinus1, err := get(itemBits)
	if err != nil {
		return nil, err
	}

	var alphaCodecConfigSize uint32
	if m.AlphaFlag {
		if m.AlphaItemDataSize, err = getU64(get, itemBits); err != nil {
			return nil, err
		}
		if m.AlphaItemDataSize > 0 {
			if alphaCodecConfigSize, err = get(codecBits); err != nil {
				return nil, err
			}
		}
	}

	var exifSizeMinus1, xmpSizeMinus1 uint32
	if m.ExifFlag {
		if exifSizeMinus1, err = get(metaBits); err != nil {
			return nil, err
		}
	}
	if m.XMPFlag {
		if xmpSizeMinus1, err = get(metaBits); err != nil {
			return nil, err
		}
	}

	br.AlignToByte()

	readBytes := func(n uint32) ([]byte, error) {
		if n == 0 {
			return nil, nil
		}
		buf := make([]byte, n)
		for i := range buf {
			b, err := br.GetBits(8)
			if err != nil {
				return nil, err
			}
			buf[i] = byte(b)
		}
		return buf, nil
	}

	if m.AlphaFlag && m.AlphaItemDataSize > 0 && alphaCodecConfigSize > 0 {
		if m.AlphaItemCodecConfig, err = readBytes(alphaCodecConfigSize); err != nil {
			return nil, err
		}
	}
	if mainCodecConfigSize > 0 {
		if m.MainItemCodecConfig, err = readBytes(mainCodecConfigSize); err != nil {
			return nil, err
		}
	}
	if m.ICCFlag {
		if m.ICCData, err = readBytes(iccSizeMinus1 + 1); err != nil {
			return nil, err
		}
	}

	fileOffset := func() uint64 {
		return uint64(base) + uint64(br.bitPos/8)
	}

	if m.AlphaFlag && m.AlphaItemDataSize > 0 {
		m.AlphaItemDataOffset = fileOffset()
		if err := br.SkipBits(int(m.AlphaItemDataSize) * 8); err != nil {
			return nil, err
		}
	}

	m.MainItemDataOffset = fileOffset()
	m.MainItemDataSize = uint64(mainDataSizeMinus1) + 1
	if err := br.SkipBits(int(m.MainItemDataSize) * 8); err != nil {
		return nil, err
	}

	if m.ExifFlag {
		m.ExifItemDataOffset = fileOffset()
		m.ExifItemDataSize = uint64(exifSizeMinus1) + 1
		if err := br.SkipBits(int(m.ExifItemDataSize) * 8); err != nil {
			return nil, err
		}
	}
	if m.XMPFlag {
		m.XMPItemDataOffset = fileOffset()
		m.XMPItemDataSize = uint64(xmpSizeMinus1) + 1
	}

	return m, nil
}

// getU64 is a small helper so AlphaItemDataSize (declared uint64 to match
// the other *ItemDataSize fields) can be filled from a <=32-bit bitfield
// read without an extra local variable at each call site.
func getU64(get func(int) (uint32, error), bits int) (uint64, error) {
	v, err := get(bits)
	return uint64(v), err
}
