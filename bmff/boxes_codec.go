package bmff

// HEVCConfig is the decoder configuration record carried by "hvcC",
// field-for-field as the teacher's hevcConfig/ItemHevcConfigBox (see
// _teacher_bmff.go.bak parseItemHevcConfigBox), generalized onto this
// package's Reader.
type HEVCConfig struct {
	Version                          uint8
	GeneralProfileSpace              uint8
	GeneralTierFlag                  uint8
	GeneralProfileIdc                uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralLevelIdc                  uint8
	MinSpatialSegmentationIdc        uint16
	ParallelismType                  uint8
	ChromaFormat                     uint8
	BitDepthLuma                     uint8
	BitDepthChroma                   uint8
	AvgFrameRate                     uint16
	ConstantFrameRate                uint8
	NumTemporalLayers                uint8
	TemporalIDNested                 uint8
}

// HEVCNalArray is one "array of NAL units" group inside hvcC (e.g. all the
// VPS, or all the SPS, units).
type HEVCNalArray struct {
	Completeness bool
	NalUnitType  uint8
	Units        [][]byte
}

// HEVCConfigBox is "hvcC".
type HEVCConfigBox struct {
	Header
	Config   HEVCConfig
	NalArray []HEVCNalArray
}

func (p *HEVCConfigBox) FourCC() FourCC { return TypeHvcC }

// AsAnnexB concatenates every NAL unit with a 4-byte big-endian length
// prefix, the framing codec.Plugin decoders expect (grounded on the
// teacher's ItemHevcConfigBox.AsHeader).
func (b *HEVCConfigBox) AsAnnexB() []byte {
	var out []byte
	for _, na := range b.NalArray {
		for _, unit := range na.Units {
			n := len(unit)
			out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
			out = append(out, unit...)
		}
	}
	return out
}

func ParseHEVCConfigBox(h Header, payload *Reader) (*HEVCConfigBox, error) {
	b := &HEVCConfigBox{Header: h}
	c := &b.Config

	v, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.Version = v

	ch, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.GeneralProfileSpace = (ch >> 6) & 3
	c.GeneralTierFlag = (ch >> 5) & 1
	c.GeneralProfileIdc = ch & 0x1F

	flags, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	c.GeneralProfileCompatibilityFlags = flags

	if err := payload.Skip(6); err != nil { // general_constraint_indicator_flags
		return nil, err
	}

	if c.GeneralLevelIdc, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	if c.MinSpatialSegmentationIdc, err = payload.ReadU16(); err != nil {
		return nil, err
	}
	c.MinSpatialSegmentationIdc &= 0x0FFF
	if c.ParallelismType, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	c.ParallelismType &= 0x03
	if c.ChromaFormat, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	c.ChromaFormat &= 0x03
	if c.BitDepthLuma, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	c.BitDepthLuma = c.BitDepthLuma&0x07 + 8
	if c.BitDepthChroma, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	c.BitDepthChroma = c.BitDepthChroma&0x07 + 8
	if c.AvgFrameRate, err = payload.ReadU16(); err != nil {
		return nil, err
	}

	ch2, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.ConstantFrameRate = (ch2 >> 6) & 0x03
	c.NumTemporalLayers = (ch2 >> 3) & 0x07
	c.TemporalIDNested = (ch2 >> 2) & 1

	numArrays, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	for i := uint8(0); i < numArrays; i++ {
		ah, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		na := HEVCNalArray{Completeness: ah&0x80 != 0, NalUnitType: ah & 0x3F}
		numUnits, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		for j := uint16(0); j < numUnits; j++ {
			size, err := payload.ReadU16()
			if err != nil {
				return nil, err
			}
			if size == 0 {
				continue
			}
			unit := make([]byte, size)
			if err := payload.ReadFull(unit); err != nil {
				return nil, err
			}
			na.Units = append(na.Units, unit)
		}
		b.NalArray = append(b.NalArray, na)
	}
	return b, payload.Err()
}

// AV1Config is the decoder configuration record carried by "av1C", per
// AV1-ISOBMFF §2.3.3, field-for-field as the teacher's av1Config (see
// _teacher_bmff.go.bak parseItemAv1ConfigBox).
type AV1Config struct {
	Marker                           uint8
	Version                         uint8
	SeqProfile                      uint8
	SeqLevelIdx0                    uint8
	SeqTier0                        uint8
	HighBitdepth                    uint8
	TwelveBit                       uint8
	Monochrome                      uint8
	ChromaSubsamplingX              uint8
	ChromaSubsamplingY              uint8
	ChromaSamplePosition            uint8
	InitialPresentationDelayPresent uint8
	InitialPresentationDelayMinus1  uint8
	ConfigOBUs                      []byte
}

// AV1ConfigBox is "av1C".
type AV1ConfigBox struct {
	Header
	Config AV1Config
}

func (p *AV1ConfigBox) FourCC() FourCC { return TypeAv1C }

func ParseAV1ConfigBox(h Header, payload *Reader) (*AV1ConfigBox, error) {
	b := &AV1ConfigBox{Header: h}
	c := &b.Config

	b1, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.Marker = (b1 >> 7) & 1
	c.Version = b1 & 0x7F

	b2, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.SeqProfile = (b2 >> 5) & 0x07
	c.SeqLevelIdx0 = b2 & 0x1F

	b3, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.SeqTier0 = (b3 >> 7) & 1
	c.HighBitdepth = (b3 >> 6) & 1
	c.TwelveBit = (b3 >> 5) & 1
	c.Monochrome = (b3 >> 4) & 1
	c.ChromaSubsamplingX = (b3 >> 3) & 1
	c.ChromaSubsamplingY = (b3 >> 2) & 1
	c.ChromaSamplePosition = b3 & 0x03

	b4, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	c.InitialPresentationDelayPresent = (b4 >> 4) & 1
	if c.InitialPresentationDelayPresent != 0 {
		c.InitialPresentationDelayMinus1 = b4 & 0x0F
	}

	rest := make([]byte, payload.Remaining())
	if err := payload.ReadFull(rest); err != nil {
		return nil, err
	}
	c.ConfigOBUs = rest
	return b, nil
}

// VVCConfigBox is "vvcC", the H.266/VVC analogue of hvcC. This module
// carries the record opaquely (VVC decoding is out of scope per the
// Non-goals; only the bytes a future decoder plugin would need are kept).
type VVCConfigBox struct {
	Header
	RawRecord []byte
}

func (p *VVCConfigBox) FourCC() FourCC { return TypeVvcC }

func ParseVVCConfigBox(h Header, payload *Reader) (*VVCConfigBox, error) {
	buf := make([]byte, payload.Remaining())
	if err := payload.ReadFull(buf); err != nil {
		return nil, err
	}
	return &VVCConfigBox{Header: h, RawRecord: buf}, nil
}

// J2KHeaderBox is "j2kH", the JPEG 2000 codestream header property. Like
// vvcC this module carries it opaquely; JPEG 2000 decoding is out of scope.
type J2KHeaderBox struct {
	Header
	RawRecord []byte
}

func (p *J2KHeaderBox) FourCC() FourCC { return TypeJ2kH }

func ParseJ2KHeaderBox(h Header, payload *Reader) (*J2KHeaderBox, error) {
	buf := make([]byte, payload.Remaining())
	if err := payload.ReadFull(buf); err != nil {
		return nil, err
	}
	return &J2KHeaderBox{Header: h, RawRecord: buf}, nil
}

// MaskConfigBox is "mskC": the per-pixel mask item's bit depth, per
// ISO/IEC 23008-12 Annex B (mask items). Mask items need no external
// decoder, so this config and its data are interpreted fully by this
// module rather than carried opaquely.
type MaskConfigBox struct {
	Header
	BitsPerPixel uint8
}

func (p *MaskConfigBox) FourCC() FourCC { return TypeMskC }

func ParseMaskConfigBox(h Header, payload *Reader) (*MaskConfigBox, error) {
	bpp, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	return &MaskConfigBox{Header: h, BitsPerPixel: bpp}, nil
}

// ComponentDefinition is one "cmpd" entry: a named image component
// (red/green/blue/alpha/depth/...), per ISO/IEC 23001-17.
type ComponentDefinition struct {
	ComponentType     uint16
	ComponentTypeURI  string // only set when ComponentType == 0x8000 (user-defined)
}

// Well-known cmpd component_type values (ISO/IEC 23001-17 Table 1).
const (
	ComponentMonochrome uint16 = 1
	ComponentY          uint16 = 2
	ComponentCb         uint16 = 3
	ComponentCr         uint16 = 4
	ComponentRed        uint16 = 5
	ComponentGreen      uint16 = 6
	ComponentBlue       uint16 = 7
	ComponentAlpha      uint16 = 8
	ComponentDepth      uint16 = 9
	ComponentUserDefined uint16 = 0x8000
)

// ComponentDefinitionBox is "cmpd": declares the component layout an
// uncompressed ("unci") item's uncC box then assembles into pixels.
type ComponentDefinitionBox struct {
	Header
	Components []ComponentDefinition
}

func (p *ComponentDefinitionBox) FourCC() FourCC { return TypeCmpd }

func ParseComponentDefinitionBox(h Header, payload *Reader) (*ComponentDefinitionBox, error) {
	b := &ComponentDefinitionBox{Header: h}
	for payload.AnyRemaining() {
		ct, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		cd := ComponentDefinition{ComponentType: ct}
		if ct == ComponentUserDefined {
			uri, err := payload.ReadString()
			if err != nil {
				return nil, err
			}
			cd.ComponentTypeURI = uri
		}
		b.Components = append(b.Components, cd)
	}
	return b, payload.Err()
}

// UncompressedComponent is one "uncC" component descriptor: which cmpd
// component it carries, its bit depth/alignment, and how samples are
// packed, per ISO/IEC 23001-17 Box_uncC (also see original_source's
// uncompressed_box.h Box_uncC::Component).
type UncompressedComponent struct {
	ComponentIndex    uint16
	ComponentBitDepth uint8
	ComponentFormat   uint8 // 0 = unsigned int, 1 = signed int, 2 = IEEE float
	ComponentAlignSize uint8
}

// Well-known uncC profile FourCCs for common packings (RGB, RGBA, ...);
// present only when ProfileDefined is true.
var (
	UncProfileRGB  = FCC("rgb3")
	UncProfileRGBA = FCC("rgba")
)

// UncompressedConfigBox is "uncC": the full pixel-layout description for
// an "unci" uncompressed image item (§4.H: fully implemented, no external
// decoder needed).
type UncompressedConfigBox struct {
	Header
	Profile              FourCC
	ProfileDefined       bool
	Components           []UncompressedComponent
	SamplingType         uint8
	InterleaveType       uint8
	BlockSize            uint8
	ComponentsLittleEndian bool
	BlockPadLSB          bool
	BlockLittleEndian    bool
	BlockReversed        bool
	PadUnknown           bool
	PixelSize            uint32
	RowAlignSize          uint32
	TileAlignSize         uint32
	NumTileColsMinus1     uint32
	NumTileRowsMinus1     uint32
}

func (p *UncompressedConfigBox) FourCC() FourCC { return TypeUncC }

func ParseUncompressedConfigBox(h Header, payload *Reader) (*UncompressedConfigBox, error) {
	b := &UncompressedConfigBox{Header: h}

	profile, err := payload.ReadFourCC()
	if err != nil {
		return nil, err
	}
	b.Profile = profile
	b.ProfileDefined = profile != FourCC{}

	count, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		idx, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		depth, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		format, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		align, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		b.Components = append(b.Components, UncompressedComponent{
			ComponentIndex:     idx,
			ComponentBitDepth:  depth,
			ComponentFormat:    format,
			ComponentAlignSize: align,
		})
	}

	if b.SamplingType, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	if b.InterleaveType, err = payload.ReadU8(); err != nil {
		return nil, err
	}
	if b.BlockSize, err = payload.ReadU8(); err != nil {
		return nil, err
	}

	flags, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	b.ComponentsLittleEndian = flags&0x80 != 0
	b.BlockPadLSB = flags&0x40 != 0
	b.BlockLittleEndian = flags&0x20 != 0
	b.BlockReversed = flags&0x10 != 0
	b.PadUnknown = flags&0x08 != 0

	if b.PixelSize, err = payload.ReadU32(); err != nil {
		return nil, err
	}
	if b.RowAlignSize, err = payload.ReadU32(); err != nil {
		return nil, err
	}
	if b.TileAlignSize, err = payload.ReadU32(); err != nil {
		return nil, err
	}
	if b.NumTileColsMinus1, err = payload.ReadU32(); err != nil {
		return nil, err
	}
	if b.NumTileRowsMinus1, err = payload.ReadU32(); err != nil {
		return nil, err
	}
	return b, payload.Err()
}

// BytesPerRow computes the uncompressed row stride for a width in pixels,
// assuming interleaved (non-planar, non-tiled) storage — the layout this
// module's codec.uncompressed decoder supports (§4.H).
func (b *UncompressedConfigBox) BytesPerRow(width int) int {
	bitsPerPixel := 0
	for _, c := range b.Components {
		bitsPerPixel += int(c.ComponentBitDepth)
	}
	bytes := (width*bitsPerPixel + 7) / 8
	if b.RowAlignSize > 1 {
		pad := int(b.RowAlignSize)
		bytes = ((bytes + pad - 1) / pad) * pad
	}
	return bytes
}
