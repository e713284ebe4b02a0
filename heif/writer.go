package heif

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/heifgo/heifbox/bmff"
)

// ItemRef is one outgoing typed reference an item being built carries
// (§3 Reference; written as one iref entry).
type ItemRef struct {
	Type      bmff.FourCC
	ToItemIDs []uint32
}

// ItemSpec describes one item to add to a Builder (§4.I Writer). Data is
// the item's fully-encoded payload (e.g. raw unci pixel rows); the
// Builder never invokes a codec itself, matching the read side's
// separation between the item resolver and the codec dispatcher.
type ItemSpec struct {
	ID         uint32
	Type       bmff.FourCC
	Hidden     bool
	Name       string
	Data       []byte
	Properties []bmff.Property
	Essential  []bool // parallel to Properties; nil means "none essential"
	References []ItemRef
}

// Builder assembles an in-memory HEIF file (§4.I): ftyp, meta (hdlr, pitm,
// iinf, iprp, iref, iloc), followed by the concatenated item data. It
// walks its item list twice, mirroring the teacher's sticky-error Reader
// symmetry on the write side: first to size the iloc box (so the item
// data's absolute file offset is known), then to patch iloc's placeholder
// offsets once that offset is known.
type Builder struct {
	MajorBrand       bmff.FourCC
	CompatibleBrands []bmff.FourCC
	PrimaryItemID    uint32

	items []ItemSpec
}

// NewBuilder returns a Builder for the given major brand (e.g. "heic",
// "mif1", "avif").
func NewBuilder(majorBrand bmff.FourCC) *Builder {
	return &Builder{MajorBrand: majorBrand, CompatibleBrands: []bmff.FourCC{majorBrand, bmff.FCC("mif1")}}
}

// AddItem appends spec to the item list, validating that its property and
// essential-flag slices agree in length and that this item's ID is not
// already used.
func (b *Builder) AddItem(spec ItemSpec) error {
	for _, it := range b.items {
		if it.ID == spec.ID {
			return fmt.Errorf("heif: item id %d already added", spec.ID)
		}
	}
	if spec.Essential != nil && len(spec.Essential) != len(spec.Properties) {
		return fmt.Errorf("heif: item %d: len(Essential)=%d != len(Properties)=%d", spec.ID, len(spec.Essential), len(spec.Properties))
	}
	b.items = append(b.items, spec)
	return nil
}

// WriteTo writes the complete file to dst.
func (b *Builder) WriteTo(dst io.Writer) (int64, error) {
	w := bmff.NewWriter()

	ftyp := w.StartBox(bmff.TypeFtyp)
	w.WriteFourCC(b.MajorBrand)
	w.WriteU32(0) // minor_version
	for _, c := range b.CompatibleBrands {
		w.WriteFourCC(c)
	}
	w.EndBox(ftyp)

	meta := w.StartFullBox(bmff.TypeMeta, 0, 0)

	hdlr := w.StartFullBox(bmff.TypeHdlr, 0, 0)
	w.WriteU32(0) // pre_defined
	w.WriteFourCC(bmff.FCC("pict"))
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteU32(0)
	w.WriteString("")
	w.EndBox(hdlr)

	if b.PrimaryItemID != 0 {
		pitm := w.StartFullBox(bmff.TypePitm, 0, 0)
		w.WriteU16(uint16(b.PrimaryItemID))
		w.EndBox(pitm)
	}

	if err := b.writeIinf(w); err != nil {
		return 0, err
	}
	if err := b.writeIprp(w); err != nil {
		return 0, err
	}
	if err := b.writeIref(w); err != nil {
		return 0, err
	}

	ilocPatches, err := b.writeIlocPlaceholder(w)
	if err != nil {
		return 0, err
	}

	w.EndBox(meta)

	// Item data begins immediately after the meta box, at an absolute
	// file offset now fixed since nothing further precedes it.
	dataStart := uint64(w.Len())
	offset := dataStart
	for i, it := range b.items {
		p := ilocPatches[i]
		binary.BigEndian.PutUint64(w.Bytes()[p.offsetPos:], offset)
		binary.BigEndian.PutUint64(w.Bytes()[p.lengthPos:], uint64(len(it.Data)))
		w.WriteBytes(it.Data)
		offset += uint64(len(it.Data))
	}

	return w.WriteTo(dst)
}

func (b *Builder) writeIinf(w *bmff.Writer) error {
	iinf := w.StartFullBox(bmff.TypeIinf, 0, 0)
	w.WriteU16(uint16(len(b.items)))
	for _, it := range b.items {
		var flags uint32
		if it.Hidden {
			flags = 1
		}
		infe := w.StartFullBox(bmff.TypeInfe, 2, flags)
		w.WriteU16(uint16(it.ID))
		w.WriteU16(0) // item_protection_index
		w.WriteFourCC(it.Type)
		w.WriteString(it.Name)
		w.EndBox(infe)
	}
	w.EndBox(iinf)
	return nil
}

func (b *Builder) writeIref(w *bmff.Writer) error {
	var any bool
	for _, it := range b.items {
		if len(it.References) > 0 {
			any = true
			break
		}
	}
	if !any {
		return nil
	}
	iref := w.StartFullBox(bmff.TypeIref, 0, 0)
	for _, it := range b.items {
		for _, ref := range it.References {
			entry := w.StartBox(ref.Type)
			w.WriteU16(uint16(it.ID))
			w.WriteU16(uint16(len(ref.ToItemIDs)))
			for _, to := range ref.ToItemIDs {
				w.WriteU16(uint16(to))
			}
			w.EndBox(entry)
		}
	}
	w.EndBox(iref)
	return nil
}

func (b *Builder) writeIprp(w *bmff.Writer) error {
	var any bool
	for _, it := range b.items {
		if len(it.Properties) > 0 {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	iprp := w.StartBox(bmff.TypeIprp)

	ipco := w.StartBox(bmff.TypeIpco)
	// Properties are not deduplicated across items: every item's
	// properties get their own ipco entries, in first-use order, which
	// the ipma indices below point back into. This keeps item/property
	// wiring trivial at the cost of some repeated bytes, acceptable for
	// the still-image files this package writes.
	indices := make([][]int, len(b.items))
	nextIndex := 1
	for i, it := range b.items {
		indices[i] = make([]int, len(it.Properties))
		for j, p := range it.Properties {
			if err := writeProperty(w, p); err != nil {
				return err
			}
			indices[i][j] = nextIndex
			nextIndex++
		}
	}
	w.EndBox(ipco)

	// ipma's flags bit 0 selects a 15-bit (two-byte) property index once
	// more than 127 properties have been written, matching the read
	// side's ParseItemPropertyAssociationBox.
	var ipmaFlags uint32
	if nextIndex-1 > 0x7F {
		ipmaFlags = 1
	}
	ipma := w.StartFullBox(bmff.TypeIpma, 0, ipmaFlags)
	w.WriteU32(uint32(len(b.items)))
	for i, it := range b.items {
		w.WriteU16(uint16(it.ID))
		w.WriteU8(uint8(len(it.Properties)))
		for j := range it.Properties {
			essential := it.Essential != nil && it.Essential[j]
			idx := indices[i][j]
			if ipmaFlags&1 != 0 {
				first := uint8(idx >> 8)
				if essential {
					first |= 0x80
				}
				w.WriteU8(first)
				w.WriteU8(uint8(idx))
			} else {
				first := uint8(idx)
				if essential {
					first |= 0x80
				}
				w.WriteU8(first)
			}
		}
	}
	w.EndBox(ipma)

	w.EndBox(iprp)
	return nil
}

// writeProperty serialises one ipco entry. Property kinds this Builder's
// callers are expected to produce (ispe, colr/nclx, cmpd, uncC, mskC,
// irot, auxC) are fully supported and bmff.OpaqueBox payloads are written
// verbatim; any other kind is rejected rather than
// silently dropped, since a missing property would desynchronise ipma
// indices.
func writeProperty(w *bmff.Writer, p bmff.Property) error {
	switch v := p.(type) {
	case *bmff.ImageSpatialExtents:
		box := w.StartFullBox(bmff.TypeIspe, 0, 0)
		w.WriteU32(v.Width)
		w.WriteU32(v.Height)
		w.EndBox(box)
	case *bmff.ColourInformation:
		box := w.StartBox(bmff.TypeColr)
		w.WriteFourCC(v.ColourType)
		switch v.ColourType {
		case bmff.FCC("nclx"):
			w.WriteU16(v.ColourPrimaries)
			w.WriteU16(v.TransferCharacteristics)
			w.WriteU16(v.MatrixCoefficients)
			var fr uint8
			if v.FullRangeFlag {
				fr = 0x80
			}
			w.WriteU8(fr)
		default:
			w.WriteBytes(v.ICCProfile)
		}
		w.EndBox(box)
	case *bmff.ImageRotation:
		box := w.StartBox(bmff.TypeIrot)
		w.WriteU8(v.Angle & 0x03)
		w.EndBox(box)
	case *bmff.AuxiliaryType:
		box := w.StartFullBox(bmff.TypeAuxC, 0, 0)
		w.WriteString(v.AuxType)
		w.WriteBytes(v.AuxSubtype)
		w.EndBox(box)
	case *bmff.ComponentDefinitionBox:
		box := w.StartBox(bmff.TypeCmpd)
		for _, c := range v.Components {
			w.WriteU16(c.ComponentType)
			if c.ComponentType == bmff.ComponentUserDefined {
				w.WriteString(c.ComponentTypeURI)
			}
		}
		w.EndBox(box)
	case *bmff.UncompressedConfigBox:
		box := w.StartFullBox(bmff.TypeUncC, 0, 0)
		if v.ProfileDefined {
			w.WriteFourCC(v.Profile)
		} else {
			w.WriteU32(0)
		}
		w.WriteU32(uint32(len(v.Components)))
		for _, c := range v.Components {
			w.WriteU16(c.ComponentIndex)
			w.WriteU8(c.ComponentBitDepth)
			w.WriteU8(c.ComponentFormat)
			w.WriteU8(c.ComponentAlignSize)
		}
		w.WriteU8(v.SamplingType)
		w.WriteU8(v.InterleaveType)
		w.WriteU8(v.BlockSize)
		var flags uint8
		if v.ComponentsLittleEndian {
			flags |= 0x80
		}
		if v.BlockPadLSB {
			flags |= 0x40
		}
		if v.BlockLittleEndian {
			flags |= 0x20
		}
		if v.BlockReversed {
			flags |= 0x10
		}
		if v.PadUnknown {
			flags |= 0x08
		}
		w.WriteU8(flags)
		w.WriteU32(v.PixelSize)
		w.WriteU32(v.RowAlignSize)
		w.WriteU32(v.TileAlignSize)
		w.WriteU32(v.NumTileColsMinus1)
		w.WriteU32(v.NumTileRowsMinus1)
		w.EndBox(box)
	case *bmff.MaskConfigBox:
		box := w.StartBox(bmff.TypeMskC)
		w.WriteU8(v.BitsPerPixel)
		w.EndBox(box)
	case bmff.OpaqueBox:
		box := w.StartBox(v.Header.Type)
		w.WriteBytes(v.Payload)
		w.EndBox(box)
	default:
		return fmt.Errorf("heif: Builder cannot write property type %q", p.FourCC())
	}
	return nil
}

type ilocPatch struct {
	offsetPos, lengthPos int
}

// writeIlocPlaceholder writes an iloc box with every offset/length field
// zeroed, 8 bytes wide (large enough for any realistic still-image file
// without a second size-determination pass), and returns where those
// fields landed so WriteTo can patch them in once item data's start
// offset is known (§4.D "iloc is emitted twice... then patched").
func (b *Builder) writeIlocPlaceholder(w *bmff.Writer) ([]ilocPatch, error) {
	iloc := w.StartFullBox(bmff.TypeIloc, 1, 0)
	w.WriteU8(0x88) // offset_size=8, length_size=8 (nibble-packed)
	w.WriteU8(0x00) // base_offset_size=0, index_size=0
	w.WriteU16(uint16(len(b.items)))

	patches := make([]ilocPatch, len(b.items))
	for i, it := range b.items {
		w.WriteU16(uint16(it.ID)) // version 1: item_id is 2 bytes (ParseItemLocationBox, h.Version < 2)
		w.WriteU16(0)             // construction_method = 0 (file offset)
		w.WriteU16(0) // data_reference_index = 0 ("this file")
		// base_offset_size is 0, so no base_offset field is present.
		w.WriteU16(1) // extent_count = 1

		offsetPos := w.Len()
		w.WriteU64(0)
		lengthPos := w.Len()
		w.WriteU64(0)
		patches[i] = ilocPatch{offsetPos: offsetPos, lengthPos: lengthPos}
	}
	w.EndBox(iloc)
	return patches, nil
}
