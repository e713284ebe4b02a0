package heif

import (
	"github.com/heifgo/heifbox/bmff"
)

// Item represents a single entry in a HEIF file's item table: its
// identity (Info), where its bytes live (Location), the properties
// associated with it (Properties, in ipma order), and the typed
// references it is the source of (References) (§3 Item).
type Item struct {
	f *File

	ID       uint32
	Info     *bmff.ItemInfoEntry
	Location *bmff.ItemLocationEntry

	Properties        []bmff.Property
	PropertyEssential []bool

	References []*bmff.ItemReferenceEntry
}

// Type returns the item's item_type FourCC (e.g. "hvc1", "grid", "Exif").
func (it *Item) Type() bmff.FourCC { return it.Info.ItemType }

// Hidden reports whether infe's hidden_item flag was set (§3 Item: hidden
// items are not shown to a user by default but remain addressable, e.g.
// an alpha or depth auxiliary image).
func (it *Item) Hidden() bool { return it.Info.Hidden }

// Reference returns the first outgoing reference of the given type
// (e.g. "dimg", "auxl", "thmb", "cdsc"), or nil.
func (it *Item) Reference(typ bmff.FourCC) *bmff.ItemReferenceEntry {
	for _, r := range it.References {
		if r.Type == typ {
			return r
		}
	}
	return nil
}

// SpatialExtents returns the item's declared width/height from its ispe
// property, not correcting for any rotation (§4.F).
func (it *Item) SpatialExtents() (width, height int, ok bool) {
	for _, p := range it.Properties {
		if ispe, ok := p.(*bmff.ImageSpatialExtents); ok {
			return int(ispe.Width), int(ispe.Height), true
		}
	}
	return 0, 0, false
}

// Rotation returns the irot property's angle in whole 90-degree
// counter-clockwise units (0..3), or 0 if absent.
func (it *Item) Rotation() int {
	for _, p := range it.Properties {
		if irot, ok := p.(*bmff.ImageRotation); ok {
			return int(irot.Angle)
		}
	}
	return 0
}

// Mirror returns the imir property's axis (bmff.MirrorVertical or
// bmff.MirrorHorizontal) and whether one is present.
func (it *Item) Mirror() (axis uint8, ok bool) {
	for _, p := range it.Properties {
		if imir, ok := p.(*bmff.ImageMirror); ok {
			return imir.Axis, true
		}
	}
	return 0, false
}

// VisualDimensions returns the item's width/height after applying any
// irot rotation (but not clap cropping), matching what a viewer should
// allocate a framebuffer for.
func (it *Item) VisualDimensions() (width, height int, ok bool) {
	width, height, ok = it.SpatialExtents()
	if !ok {
		return 0, 0, false
	}
	if it.Rotation()%2 == 1 {
		width, height = height, width
	}
	return width, height, true
}

// CleanAperture returns the item's clap property, if present.
func (it *Item) CleanAperture() (*bmff.CleanAperture, bool) {
	for _, p := range it.Properties {
		if clap, ok := p.(*bmff.CleanAperture); ok {
			return clap, true
		}
	}
	return nil, false
}

// HEVCConfig returns the item's hvcC property, if present.
func (it *Item) HEVCConfig() (*bmff.HEVCConfigBox, bool) {
	for _, p := range it.Properties {
		if hvcc, ok := p.(*bmff.HEVCConfigBox); ok {
			return hvcc, true
		}
	}
	return nil, false
}

// AV1Config returns the item's av1C property, if present.
func (it *Item) AV1Config() (*bmff.AV1ConfigBox, bool) {
	for _, p := range it.Properties {
		if av1c, ok := p.(*bmff.AV1ConfigBox); ok {
			return av1c, true
		}
	}
	return nil, false
}

// UncompressedConfig returns the item's uncC property, if present.
func (it *Item) UncompressedConfig() (*bmff.UncompressedConfigBox, bool) {
	for _, p := range it.Properties {
		if uncc, ok := p.(*bmff.UncompressedConfigBox); ok {
			return uncc, true
		}
	}
	return nil, false
}

// MaskConfig returns the item's mskC property, if present.
func (it *Item) MaskConfig() (*bmff.MaskConfigBox, bool) {
	for _, p := range it.Properties {
		if mskc, ok := p.(*bmff.MaskConfigBox); ok {
			return mskc, true
		}
	}
	return nil, false
}

// AuxiliaryRole returns the auxC property's role URI (e.g.
// bmff.AuxTypeAlpha), if present.
func (it *Item) AuxiliaryRole() (string, bool) {
	for _, p := range it.Properties {
		if auxc, ok := p.(*bmff.AuxiliaryType); ok {
			return auxc.AuxType, true
		}
	}
	return "", false
}

// ColourProfile returns the item's colr property, if present. Callers
// distinguish an on-disk ICC profile from an nclx CICP tuple via
// ColourInformation.ColourType (§4.F).
func (it *Item) ColourProfile() (*bmff.ColourInformation, bool) {
	for _, p := range it.Properties {
		if colr, ok := p.(*bmff.ColourInformation); ok {
			return colr, true
		}
	}
	return nil, false
}

// PixelInformation returns the item's pixi property (per-channel bit
// depths), if present.
func (it *Item) PixelInformation() (*bmff.PixelInformation, bool) {
	for _, p := range it.Properties {
		if pixi, ok := p.(*bmff.PixelInformation); ok {
			return pixi, true
		}
	}
	return nil, false
}

// Data returns the item's raw addressed bytes (its iloc extent), without
// interpreting them. Use Decoder.Decode to turn the item into an
// image.Image.
func (it *Item) Data() ([]byte, error) {
	return it.f.GetItemData(it)
}
