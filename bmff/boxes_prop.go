package bmff

// Property is the common interface satisfied by every box that may live
// inside ipco. Concrete property boxes additionally expose their own
// typed fields; FourCC lets generic code (property dump, essential-flag
// bookkeeping) identify a property without a type switch.
type Property interface {
	FourCC() FourCC
}

// ItemPropertyContainerBox is "ipco": the ordered, 1-based-indexed list of
// property boxes (§3 Property).
type ItemPropertyContainerBox struct {
	Header
	Properties []Property
}

func ParseItemPropertyContainerBox(h Header, payload *Reader, depth int, limits *Limits) (*ItemPropertyContainerBox, error) {
	ipc := &ItemPropertyContainerBox{Header: h}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		prop, err := parseProperty(ch, body, depth, limits)
		if err != nil {
			limits.Warnf("ipco: dropping unparsable property %q: %v", ch.Type, err)
			return nil
		}
		ipc.Properties = append(ipc.Properties, prop)
		return nil
	})
	return ipc, err
}

func parseProperty(h Header, body *Reader, depth int, limits *Limits) (Property, error) {
	switch h.Type {
	case TypeIspe:
		return ParseImageSpatialExtents(h, body)
	case TypePixi:
		return ParsePixelInformation(h, body)
	case TypePasp:
		return ParsePixelAspectRatio(h, body)
	case TypeColr:
		return ParseColourInformation(h, body)
	case TypeClli:
		return ParseContentLightLevel(h, body)
	case TypeMdcv:
		return ParseMasteringDisplayColourVolume(h, body)
	case TypeAuxC:
		return ParseAuxiliaryType(h, body)
	case TypeIrot:
		return ParseImageRotation(h, body)
	case TypeImir:
		return ParseImageMirror(h, body)
	case TypeClap:
		return ParseCleanAperture(h, body)
	case TypeHvcC:
		return ParseHEVCConfigBox(h, body)
	case TypeAv1C:
		return ParseAV1ConfigBox(h, body)
	case TypeVvcC:
		return ParseVVCConfigBox(h, body)
	case TypeJ2kH:
		return ParseJ2KHeaderBox(h, body)
	case TypeMskC:
		return ParseMaskConfigBox(h, body)
	case TypeCmpd:
		return ParseComponentDefinitionBox(h, body)
	case TypeUncC:
		return ParseUncompressedConfigBox(h, body)
	default:
		return ParseOpaqueBox(h, body)
	}
}

// ItemPropertyAssociation is one ipma entry: essential flag + 1-based
// property_index.
type ItemPropertyAssociation struct {
	Essential bool
	Index     int // 1-based into ipco.Properties; 0 is never valid
}

// ItemPropertyAssociationEntry maps one item to its ordered associations.
type ItemPropertyAssociationEntry struct {
	ItemID       uint32
	Associations []ItemPropertyAssociation
}

// ItemPropertyAssociationBox is "ipma".
type ItemPropertyAssociationBox struct {
	Header
	Entries []ItemPropertyAssociationEntry
}

func ParseItemPropertyAssociationBox(h Header, payload *Reader) (*ItemPropertyAssociationBox, error) {
	ipa := &ItemPropertyAssociationBox{Header: h}
	count, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var entry ItemPropertyAssociationEntry
		if h.Version == 0 {
			v, err := payload.ReadU16()
			if err != nil {
				return nil, err
			}
			entry.ItemID = uint32(v)
		} else {
			v, err := payload.ReadU32()
			if err != nil {
				return nil, err
			}
			entry.ItemID = v
		}
		assocCount, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		for j := uint8(0); j < assocCount; j++ {
			first, err := payload.ReadU8()
			if err != nil {
				return nil, err
			}
			essential := first&0x80 != 0
			first &^= 0x80
			var idx int
			if h.Flags&1 != 0 {
				second, err := payload.ReadU8()
				if err != nil {
					return nil, err
				}
				idx = int(first)<<8 | int(second)
			} else {
				idx = int(first)
			}
			entry.Associations = append(entry.Associations, ItemPropertyAssociation{Essential: essential, Index: idx})
		}
		ipa.Entries = append(ipa.Entries, entry)
	}
	return ipa, payload.Err()
}

// ItemPropertiesBox is "iprp": the container + association tables (§4.C).
type ItemPropertiesBox struct {
	Header
	Container    *ItemPropertyContainerBox
	Associations []*ItemPropertyAssociationBox
}

func ParseItemPropertiesBox(h Header, payload *Reader, depth int, limits *Limits) (*ItemPropertiesBox, error) {
	ip := &ItemPropertiesBox{Header: h}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		switch ch.Type {
		case TypeIpco:
			c, err := ParseItemPropertyContainerBox(ch, body, depth+1, limits)
			if err != nil {
				return err
			}
			ip.Container = c
		case TypeIpma:
			a, err := ParseItemPropertyAssociationBox(ch, body)
			if err != nil {
				return err
			}
			ip.Associations = append(ip.Associations, a)
		default:
			limits.Warnf("iprp: skipping unexpected child %q", ch.Type)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ip.Container == nil {
		return nil, New(KindInvalidInput, SubNoIprpBox, "iprp missing its ipco child")
	}
	return ip, nil
}

// --- Individual property boxes ---

type ImageSpatialExtents struct {
	Header
	Width, Height uint32
}

func (p *ImageSpatialExtents) FourCC() FourCC { return TypeIspe }

func ParseImageSpatialExtents(h Header, payload *Reader) (*ImageSpatialExtents, error) {
	w, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	ht, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	if w == 0 || ht == 0 {
		return nil, New(KindInvalidInput, SubNone, "ispe: width/height must be > 0, got %dx%d", w, ht)
	}
	return &ImageSpatialExtents{Header: h, Width: w, Height: ht}, nil
}

// PixelInformation is "pixi": per-channel bit depths.
type PixelInformation struct {
	Header
	BitsPerChannel []uint8
}

func (p *PixelInformation) FourCC() FourCC { return TypePixi }

func ParsePixelInformation(h Header, payload *Reader) (*PixelInformation, error) {
	count, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, New(KindInvalidInput, SubNone, "pixi: channel count must be >= 1")
	}
	bits := make([]uint8, count)
	for i := range bits {
		b, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		bits[i] = b
	}
	return &PixelInformation{Header: h, BitsPerChannel: bits}, nil
}

// PixelAspectRatio is "pasp".
type PixelAspectRatio struct {
	Header
	HSpacing, VSpacing uint32
}

func (p *PixelAspectRatio) FourCC() FourCC { return TypePasp }

func ParsePixelAspectRatio(h Header, payload *Reader) (*PixelAspectRatio, error) {
	hs, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	vs, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	if hs == 0 || vs == 0 {
		return nil, New(KindInvalidInput, SubNone, "pasp: hSpacing/vSpacing must be > 0")
	}
	return &PixelAspectRatio{Header: h, HSpacing: hs, VSpacing: vs}, nil
}

// ColourInformation is "colr": either an nclx CICP tuple or a raw ICC
// profile, carried verbatim (colour conversion is out of scope; only
// carrying the bytes is in scope, per SPEC_FULL §4.F).
type ColourInformation struct {
	Header
	ColourType               FourCC // "nclx", "rICC", or "prof"
	ColourPrimaries          uint16
	TransferCharacteristics  uint16
	MatrixCoefficients       uint16
	FullRangeFlag            bool
	ICCProfile               []byte
}

func (p *ColourInformation) FourCC() FourCC { return TypeColr }

func ParseColourInformation(h Header, payload *Reader) (*ColourInformation, error) {
	ci := &ColourInformation{Header: h}
	ct, err := payload.ReadFourCC()
	if err != nil {
		return nil, err
	}
	ci.ColourType = ct
	switch ct {
	case FCC("nclx"):
		cp, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		tc, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		mc, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		fr, err := payload.ReadU8()
		if err != nil {
			return nil, err
		}
		ci.ColourPrimaries, ci.TransferCharacteristics, ci.MatrixCoefficients = cp, tc, mc
		ci.FullRangeFlag = fr&0x80 != 0
	case FCC("rICC"), FCC("prof"):
		buf := make([]byte, payload.Remaining())
		if err := payload.ReadFull(buf); err != nil {
			return nil, err
		}
		ci.ICCProfile = buf
	default:
		return nil, New(KindColorProfileDoesNotExist, SubNone, "colr: unknown colour_type %q", ct)
	}
	return ci, nil
}

// ContentLightLevel is "clli".
type ContentLightLevel struct {
	Header
	MaxContentLightLevel    uint16
	MaxPicAverageLightLevel uint16
}

func (p *ContentLightLevel) FourCC() FourCC { return TypeClli }

func ParseContentLightLevel(h Header, payload *Reader) (*ContentLightLevel, error) {
	maxc, err := payload.ReadU16()
	if err != nil {
		return nil, err
	}
	maxp, err := payload.ReadU16()
	if err != nil {
		return nil, err
	}
	return &ContentLightLevel{Header: h, MaxContentLightLevel: maxc, MaxPicAverageLightLevel: maxp}, nil
}

// MasteringDisplayColourVolume is "mdcv".
type MasteringDisplayColourVolume struct {
	Header
	DisplayPrimariesX, DisplayPrimariesY [3]uint16
	WhitePointX, WhitePointY             uint16
	MaxDisplayMasteringLuminance         uint32
	MinDisplayMasteringLuminance         uint32
}

func (p *MasteringDisplayColourVolume) FourCC() FourCC { return TypeMdcv }

func ParseMasteringDisplayColourVolume(h Header, payload *Reader) (*MasteringDisplayColourVolume, error) {
	m := &MasteringDisplayColourVolume{Header: h}
	for i := 0; i < 3; i++ {
		x, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		y, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		m.DisplayPrimariesX[i], m.DisplayPrimariesY[i] = x, y
	}
	wx, err := payload.ReadU16()
	if err != nil {
		return nil, err
	}
	wy, err := payload.ReadU16()
	if err != nil {
		return nil, err
	}
	m.WhitePointX, m.WhitePointY = wx, wy
	maxL, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	minL, err := payload.ReadU32()
	if err != nil {
		return nil, err
	}
	m.MaxDisplayMasteringLuminance, m.MinDisplayMasteringLuminance = maxL, minL
	return m, nil
}

// AuxiliaryType is "auxC": the auxiliary image's role (alpha, depth, ...).
type AuxiliaryType struct {
	Header
	AuxType    string
	AuxSubtype []byte
}

func (p *AuxiliaryType) FourCC() FourCC { return TypeAuxC }

func ParseAuxiliaryType(h Header, payload *Reader) (*AuxiliaryType, error) {
	t, err := payload.ReadString()
	if err != nil {
		return nil, err
	}
	rest := make([]byte, payload.Remaining())
	if err := payload.ReadFull(rest); err != nil {
		return nil, err
	}
	return &AuxiliaryType{Header: h, AuxType: t, AuxSubtype: rest}, nil
}

// Well-known auxC role strings.
const (
	AuxTypeAlpha = "urn:mpeg:mpegB:cicp:systems:auxiliary:alpha"
	AuxTypeDepth = "urn:mpeg:mpegB:cicp:systems:auxiliary:depth"
)

// ImageRotation is "irot": {0,90,180,270} degrees counter-clockwise.
type ImageRotation struct {
	Header
	Angle uint8 // 0..3, each unit is 90 degrees CCW
}

func (p *ImageRotation) FourCC() FourCC { return TypeIrot }

func ParseImageRotation(h Header, payload *Reader) (*ImageRotation, error) {
	v, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	return &ImageRotation{Header: h, Angle: v & 0x3}, nil
}

// Degrees returns the rotation as {0,90,180,270}.
func (r *ImageRotation) Degrees() int { return int(r.Angle) * 90 }

const (
	MirrorVertical   uint8 = 0
	MirrorHorizontal uint8 = 1
)

// ImageMirror is "imir": mirror axis.
type ImageMirror struct {
	Header
	Axis uint8 // MirrorVertical or MirrorHorizontal
}

func (p *ImageMirror) FourCC() FourCC { return TypeImir }

func ParseImageMirror(h Header, payload *Reader) (*ImageMirror, error) {
	v, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	return &ImageMirror{Header: h, Axis: v & 0x1}, nil
}

// CleanAperture is "clap": a crop rectangle expressed as four fractions.
type CleanAperture struct {
	Header
	CleanApertureWidthN, CleanApertureWidthD   uint32
	CleanApertureHeightN, CleanApertureHeightD uint32
	HorizOffN, HorizOffD                       int32
	VertOffN, VertOffD                         int32
}

func (p *CleanAperture) FourCC() FourCC { return TypeClap }

func parseClapFraction(payload *Reader) (int32, int32, error) {
	n, err := payload.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	d, err := payload.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	return int32(n), int32(d), nil
}

func ParseCleanAperture(h Header, payload *Reader) (*CleanAperture, error) {
	c := &CleanAperture{Header: h}
	wn, wd, err := parseClapFraction(payload)
	if err != nil {
		return nil, err
	}
	c.CleanApertureWidthN, c.CleanApertureWidthD = uint32(wn), uint32(wd)
	hn, hd, err := parseClapFraction(payload)
	if err != nil {
		return nil, err
	}
	c.CleanApertureHeightN, c.CleanApertureHeightD = uint32(hn), uint32(hd)
	c.HorizOffN, c.HorizOffD, err = parseClapFraction(payload)
	if err != nil {
		return nil, err
	}
	c.VertOffN, c.VertOffD, err = parseClapFraction(payload)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Rect returns the derived crop rectangle in pixel bounds relative to a
// frame of the given full width/height (§3 Property, clap invariant).
func (c *CleanAperture) Rect(fullWidth, fullHeight int) (x, y, w, h int) {
	cw := int(c.CleanApertureWidthN) / maxInt(1, int(c.CleanApertureWidthD))
	ch := int(c.CleanApertureHeightN) / maxInt(1, int(c.CleanApertureHeightD))
	hOff := int(c.HorizOffN) / maxInt(1, int(c.HorizOffD))
	vOff := int(c.VertOffN) / maxInt(1, int(c.VertOffD))
	centerX := fullWidth/2 + hOff
	centerY := fullHeight/2 + vOff
	x = centerX - cw/2
	y = centerY - ch/2
	return x, y, cw, ch
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
