package bmff

// FourCC is a 4-byte ASCII box or item type identifier.
type FourCC [4]byte

func (t FourCC) String() string { return string(t[:]) }

// FCC builds a FourCC from a 4-character string. Panics on misuse (a
// bogus constant in this package's own source), mirroring the teacher's
// boxType helper.
func FCC(s string) FourCC {
	if len(s) != 4 {
		panic("bmff: FourCC must be exactly 4 bytes: " + s)
	}
	return FourCC{s[0], s[1], s[2], s[3]}
}

// Well-known top-level and container box types.
var (
	TypeFtyp = FCC("ftyp")
	TypeMeta = FCC("meta")
	TypeMdat = FCC("mdat")
	TypeMini = FCC("mini")
	TypeUUID = FCC("uuid")

	TypeHdlr = FCC("hdlr")
	TypePitm = FCC("pitm")
	TypeIinf = FCC("iinf")
	TypeInfe = FCC("infe")
	TypeIloc = FCC("iloc")
	TypeIprp = FCC("iprp")
	TypeIpco = FCC("ipco")
	TypeIpma = FCC("ipma")
	TypeIref = FCC("iref")
	TypeIdat = FCC("idat")
	TypeGrpl = FCC("grpl")
	TypeDinf = FCC("dinf")
	TypeDref = FCC("dref")
	TypeURL  = FCC("url ")

	TypePasp = FCC("pasp")
	TypeIspe = FCC("ispe")
	TypePixi = FCC("pixi")
	TypeClli = FCC("clli")
	TypeMdcv = FCC("mdcv")
	TypeAuxC = FCC("auxC")
	TypeIrot = FCC("irot")
	TypeImir = FCC("imir")
	TypeClap = FCC("clap")
	TypeColr = FCC("colr")

	TypeHvcC = FCC("hvcC")
	TypeAv1C = FCC("av1C")
	TypeVvcC = FCC("vvcC")
	TypeJ2kH = FCC("j2kH")
	TypeMskC = FCC("mskC")
	TypeCmpd = FCC("cmpd")
	TypeUncC = FCC("uncC")
)

// Well-known item types (infe.item_type), distinct from box types but
// sharing the FourCC representation.
var (
	ItemGrid = FCC("grid")
	ItemIovl = FCC("iovl")
	ItemIden = FCC("iden")
	ItemHvc1 = FCC("hvc1")
	ItemAv01 = FCC("av01")
	ItemVvc1 = FCC("vvc1")
	ItemJpeg = FCC("jpeg")
	ItemJ2k1 = FCC("j2k1")
	ItemUnci = FCC("unci")
	ItemMski = FCC("mski")
	ItemExif = FCC("Exif")
	ItemMime = FCC("mime")
	ItemURI  = FCC("uri ")
	ItemRgan = FCC("rgan")
)

// Well-known item reference types (iref entries).
var (
	RefThmb = FCC("thmb")
	RefAuxl = FCC("auxl")
	RefDimg = FCC("dimg")
	RefCdsc = FCC("cdsc")
)

// Well-known brands (ftyp major_brand / compatible_brands).
var (
	BrandMif1 = FCC("mif1")
	BrandHeic = FCC("heic")
	BrandAvif = FCC("avif")
	BrandMsf1 = FCC("msf1")
)

// fullBoxTypes lists box types whose header carries version+flags (the
// FullBox extension). Container boxes that are also FullBoxes (meta) are
// included.
var fullBoxTypes = map[FourCC]bool{
	TypeMeta: true,
	TypeHdlr: true,
	TypePitm: true,
	TypeIinf: true,
	TypeInfe: true,
	TypeIloc: true,
	TypeIpma: true,
	TypeIref: true,
	TypeDref: true,
	TypeIspe: true,
	TypePixi: true,
	TypeAuxC: true,
	TypeClap: false, // clap is a plain Box, not a FullBox
	TypeUncC: true,
	TypeURL:  true, // dref entries; flags bit 0 = self-contained
	FCC("urn "): true,
}

// IsFullBox reports whether t's header carries a version+flags field.
func IsFullBox(t FourCC) bool { return fullBoxTypes[t] }

// Header is a parsed ISOBMFF box header (§4.B).
type Header struct {
	Size      uint64 // declared size including the header itself; 0 = runs to EOF
	Type      FourCC
	UUID      [16]byte // only meaningful when Type == "uuid"
	HeaderLen int64    // bytes consumed by size+type(+largesize)(+uuid)(+version+flags)
	Version   uint8    // FullBox only
	Flags     uint32   // FullBox only, 24 bits
	IsFull    bool
}

// ParseHeader reads one box header from r at its current cursor. For
// FullBox types it also consumes version+flags, per §4.B.
func ParseHeader(r *Reader) (Header, error) {
	var h Header
	size32, err := r.ReadU32()
	if err != nil {
		return h, err
	}
	typ, err := r.ReadFourCC()
	if err != nil {
		return h, err
	}
	h.Type = typ
	h.HeaderLen = 8

	switch size32 {
	case 1:
		size64, err := r.ReadU64()
		if err != nil {
			return h, err
		}
		h.Size = size64
		h.HeaderLen += 8
	case 0:
		h.Size = 0
	default:
		h.Size = uint64(size32)
	}

	if h.Type == TypeUUID {
		if err := r.ReadFull(h.UUID[:]); err != nil {
			return h, err
		}
		h.HeaderLen += 16
	}

	if h.Size != 0 && uint64(h.HeaderLen) > h.Size {
		return h, New(KindInvalidInput, SubInvalidBoxSize, "box %q declares size %d smaller than its own header (%d bytes)", h.Type, h.Size, h.HeaderLen)
	}

	if IsFullBox(h.Type) {
		vf, err := r.ReadU32()
		if err != nil {
			return h, err
		}
		h.Version = uint8(vf >> 24)
		h.Flags = vf & 0x00FFFFFF
		h.IsFull = true
		h.HeaderLen += 4
	}

	return h, nil
}

// PayloadReader delimits the box's payload (the bytes after the header) as
// a child Reader, enforcing the nesting-depth ceiling. depth is the depth
// of the box whose header was just parsed (the top-level boxes are depth 0).
func (h Header) PayloadReader(parent *Reader, depth int, limits *Limits) (*Reader, error) {
	if depth > limits.MaxNestingLevel {
		return nil, ErrSecurityLimit("box nesting exceeds max_nesting_level")
	}
	if h.Size == 0 {
		return parent.Sub(-1)
	}
	payloadLen := int64(h.Size) - h.HeaderLen
	if payloadLen < 0 {
		return nil, New(KindInvalidInput, SubInvalidBoxSize, "box %q payload length is negative", h.Type)
	}
	if limits.MaxBoxSize > 0 && int64(h.Size) > limits.MaxBoxSize {
		return nil, ErrSecurityLimit("box size exceeds max_box_size")
	}
	return parent.Sub(payloadLen)
}

// ReadChildHeaders reads box headers one at a time from r until it is
// exhausted, invoking visit for each. visit receives the header and a
// Reader delimited to that box's payload; it must consume exactly what it
// needs — ReadChildHeaders skips any leftover bytes itself. Returning a
// non-nil error from visit stops iteration and that error is returned.
func ReadChildHeaders(r *Reader, depth int, limits *Limits, visit func(h Header, payload *Reader) error) error {
	for r.AnyRemaining() {
		h, err := ParseHeader(r)
		if err != nil {
			if r.Remaining() == 0 {
				break
			}
			return err
		}
		payload, err := h.PayloadReader(r, depth+1, limits)
		if err != nil {
			return err
		}
		if err := visit(h, payload); err != nil {
			return err
		}
		if err := payload.SkipToEnd(); err != nil {
			return err
		}
		if h.Size == 0 {
			break // "runs to EOF" box: no more siblings can follow
		}
	}
	return r.Err()
}
