package heif

import "github.com/heifgo/heifbox/bmff"

// Item IDs synthesized for a "mini" file's virtual item table. A mini box
// describes at most one image of each kind, so fixed IDs are enough.
const (
	miniMainItemID  uint32 = 1
	miniAlphaItemID uint32 = 2
	miniExifItemID  uint32 = 3
	miniXMPItemID   uint32 = 4
)

// synthesizeMiniMeta builds a boxMeta equivalent to what a full meta box
// would produce, from a parsed MiniBox, so File's item-resolution methods
// never need to know whether they are looking at "meta" or "mini"
// (§4.C/§9: the mini box is a compact alternative, not a different model).
// payloadBase is the absolute file offset of the mini box's payload start;
// MiniBox's own *ItemDataOffset fields are already absolute (ParseMiniBox
// computed them against the same base), so it is accepted here only for
// symmetry with callers and potential future relative fields.
func synthesizeMiniMeta(m *bmff.MiniBox, payloadBase int64) (*boxMeta, error) {
	_ = payloadBase

	meta := &boxMeta{
		Primary: &bmff.PrimaryItemBox{ItemID: miniMainItemID},
	}

	iinf := &bmff.ItemInfoBox{}
	iloc := &bmff.ItemLocationBox{}
	ipco := &bmff.ItemPropertyContainerBox{}
	ipma := &bmff.ItemPropertyAssociationBox{}
	iref := &bmff.ItemReferenceBox{}

	// ParseMiniBox rejects explicit codec types, so the main item always
	// has AVIF's default type av01.
	mainItemType := bmff.ItemAv01

	iinf.Items = append(iinf.Items, &bmff.ItemInfoEntry{
		ItemID:   miniMainItemID,
		ItemType: mainItemType,
	})
	iloc.Items = append(iloc.Items, bmff.ItemLocationEntry{
		ItemID:  miniMainItemID,
		Extents: []bmff.Extent{{Offset: m.MainItemDataOffset, Length: m.MainItemDataSize}},
	})

	ispe := &bmff.ImageSpatialExtents{Width: m.Width, Height: m.Height}
	ipco.Properties = append(ipco.Properties, ispe)
	mainAssoc := []bmff.ItemPropertyAssociation{{Essential: true, Index: len(ipco.Properties)}}

	if m.ICCFlag && len(m.ICCData) > 0 {
		colr := &bmff.ColourInformation{ColourType: bmff.FCC("prof"), ICCProfile: m.ICCData}
		ipco.Properties = append(ipco.Properties, colr)
		mainAssoc = append(mainAssoc, bmff.ItemPropertyAssociation{Essential: false, Index: len(ipco.Properties)})
	} else {
		colr := &bmff.ColourInformation{
			ColourType:              bmff.FCC("nclx"),
			ColourPrimaries:         m.ColourPrimaries,
			TransferCharacteristics: m.TransferCharacteristics,
			MatrixCoefficients:      m.MatrixCoefficients,
			FullRangeFlag:           m.FullRangeFlag,
		}
		ipco.Properties = append(ipco.Properties, colr)
		mainAssoc = append(mainAssoc, bmff.ItemPropertyAssociation{Essential: false, Index: len(ipco.Properties)})
	}

	if m.Orientation != 1 {
		// mini's orientation is the Exif 1..8 convention; only the four
		// pure-rotation values map onto irot, matching what a real
		// encoder emits for a mini-eligible (non-mirrored) image.
		angle := miniOrientationToIrotAngle(m.Orientation)
		if angle >= 0 {
			ipco.Properties = append(ipco.Properties, &bmff.ImageRotation{Angle: uint8(angle)})
			mainAssoc = append(mainAssoc, bmff.ItemPropertyAssociation{Essential: true, Index: len(ipco.Properties)})
		}
	}

	ipma.Entries = append(ipma.Entries, bmff.ItemPropertyAssociationEntry{
		ItemID:       miniMainItemID,
		Associations: mainAssoc,
	})

	if m.AlphaFlag && m.AlphaItemDataSize > 0 {
		iinf.Items = append(iinf.Items, &bmff.ItemInfoEntry{
			ItemID:   miniAlphaItemID,
			ItemType: mainItemType,
			Hidden:   true,
		})
		iloc.Items = append(iloc.Items, bmff.ItemLocationEntry{
			ItemID:  miniAlphaItemID,
			Extents: []bmff.Extent{{Offset: m.AlphaItemDataOffset, Length: m.AlphaItemDataSize}},
		})
		iref.Refs = append(iref.Refs, &bmff.ItemReferenceEntry{
			Type:       bmff.RefAuxl,
			FromItemID: miniAlphaItemID,
			ToItemIDs:  []uint32{miniMainItemID},
		})
		auxC := &bmff.AuxiliaryType{AuxType: bmff.AuxTypeAlpha}
		ipco.Properties = append(ipco.Properties, auxC)
		ipma.Entries = append(ipma.Entries, bmff.ItemPropertyAssociationEntry{
			ItemID:       miniAlphaItemID,
			Associations: []bmff.ItemPropertyAssociation{{Essential: true, Index: len(ipco.Properties)}},
		})
	}

	if m.ExifFlag {
		iinf.Items = append(iinf.Items, &bmff.ItemInfoEntry{ItemID: miniExifItemID, ItemType: bmff.ItemExif})
		iloc.Items = append(iloc.Items, bmff.ItemLocationEntry{
			ItemID:  miniExifItemID,
			Extents: []bmff.Extent{{Offset: m.ExifItemDataOffset, Length: m.ExifItemDataSize}},
		})
		iref.Refs = append(iref.Refs, &bmff.ItemReferenceEntry{
			Type:       bmff.RefCdsc,
			FromItemID: miniExifItemID,
			ToItemIDs:  []uint32{miniMainItemID},
		})
	}
	if m.XMPFlag {
		iinf.Items = append(iinf.Items, &bmff.ItemInfoEntry{
			ItemID:      miniXMPItemID,
			ItemType:    bmff.ItemMime,
			ContentType: "application/rdf+xml",
		})
		iloc.Items = append(iloc.Items, bmff.ItemLocationEntry{
			ItemID:  miniXMPItemID,
			Extents: []bmff.Extent{{Offset: m.XMPItemDataOffset, Length: m.XMPItemDataSize}},
		})
		iref.Refs = append(iref.Refs, &bmff.ItemReferenceEntry{
			Type:       bmff.RefCdsc,
			FromItemID: miniXMPItemID,
			ToItemIDs:  []uint32{miniMainItemID},
		})
	}

	meta.ItemInfo = iinf
	meta.ItemLoc = iloc
	meta.Properties = &bmff.ItemPropertiesBox{Container: ipco, Associations: []*bmff.ItemPropertyAssociationBox{ipma}}
	if len(iref.Refs) > 0 {
		meta.ItemRef = iref
	}
	return meta, nil
}

// miniOrientationToIrotAngle maps the Exif-style 1..8 orientation codes
// mini uses onto an irot angle (0..3, each 90 degrees CCW), returning -1
// for the four codes that require a mirror (2, 4, 5, 7),
// which a mini box's single orientation field cannot express as irot alone.
func miniOrientationToIrotAngle(orientation uint8) int {
	switch orientation {
	case 1:
		return 0
	case 3:
		return 2
	case 6:
		return 3
	case 8:
		return 1
	default:
		return -1
	}
}
