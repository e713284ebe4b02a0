/*
Copyright 2018 The go4 Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package heif reads HEIF/HEIC/AVIF still-image containers (ISO/IEC
// 23008-12). It resolves the item graph, properties, and derived-image
// compositions on top of the lower-level bmff box registry; it does not
// decode compressed samples itself (see the codec package for that).
package heif

import (
	"fmt"
	"io"

	"github.com/heifgo/heifbox/bmff"
)

// File represents an opened HEIF/HEIC/AVIF container.
//
// Methods on File should not be called concurrently without external
// synchronization; the lazily-populated meta cache is not guarded by a
// mutex, matching the teacher's single-goroutine-per-File contract.
type File struct {
	ra     io.ReaderAt
	limits bmff.Limits

	metaErr error
	meta    *boxMeta
	mini    *bmff.MiniBox

	itemCache map[uint32]*Item
}

// boxMeta holds the parsed "meta" box's direct children this package
// understands (§4.C/§4.D).
type boxMeta struct {
	FileType   *bmff.FileTypeBox
	Handler    *bmff.HandlerBox
	Primary    *bmff.PrimaryItemBox
	ItemInfo   *bmff.ItemInfoBox
	ItemLoc    *bmff.ItemLocationBox
	Properties *bmff.ItemPropertiesBox
	ItemRef    *bmff.ItemReferenceBox
	ItemData   *bmff.ItemDataBox
}

// EXIFItemID returns the item ID whose item_type is "Exif", or 0 if none.
func (m *boxMeta) EXIFItemID() uint32 {
	if m.ItemInfo == nil {
		return 0
	}
	for _, ie := range m.ItemInfo.Items {
		if ie.ItemType == bmff.ItemExif {
			return ie.ItemID
		}
	}
	return 0
}

// Option configures a File opened by Open.
type Option func(*File)

// WithLimits overrides the default security limits (§3 Security limits).
func WithLimits(l bmff.Limits) Option {
	return func(f *File) { f.limits = l }
}

// Open wraps ra as a File. Parsing of the meta box is deferred until the
// first call that needs it; rgan payloads are parsed only when
// File.Region is called.
func Open(ra io.ReaderAt, opts ...Option) *File {
	f := &File{ra: ra, limits: bmff.DefaultLimits()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *File) setMetaErr(err error) error {
	if f.metaErr == nil {
		f.metaErr = err
	}
	return err
}

const assumedMaxFileSize = 5 << 40 // arbitrary large sentinel, not a real cap

// getMeta parses ftyp+meta (or, for a mini-shortcut file, synthesizes an
// equivalent view from the "mini" box) on first use and caches the result.
func (f *File) getMeta() (*boxMeta, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	if f.meta != nil {
		return f.meta, nil
	}

	sr := io.NewSectionReader(f.ra, 0, assumedMaxFileSize)
	r := bmff.NewReader(sr, 0, -1)

	h, err := bmff.ParseHeader(r)
	if err != nil {
		return nil, f.setMetaErr(err)
	}
	if h.Type != bmff.TypeFtyp {
		return nil, f.setMetaErr(bmff.New(bmff.KindInvalidInput, bmff.SubNoFtypBox, "file does not begin with an ftyp box"))
	}
	payload, err := h.PayloadReader(r, 1, &f.limits)
	if err != nil {
		return nil, f.setMetaErr(err)
	}
	ft, err := bmff.ParseFileTypeBox(payload)
	if err != nil {
		return nil, f.setMetaErr(err)
	}
	if err := payload.SkipToEnd(); err != nil {
		return nil, f.setMetaErr(err)
	}

	meta := &boxMeta{FileType: ft}

	h2, err := bmff.ParseHeader(r)
	if err != nil {
		return nil, f.setMetaErr(err)
	}
	switch h2.Type {
	case bmff.TypeMeta:
		payload2, err := h2.PayloadReader(r, 1, &f.limits)
		if err != nil {
			return nil, f.setMetaErr(err)
		}
		mb, err := bmff.ParseMetaBox(payload2, 1, &f.limits)
		if err != nil {
			return nil, f.setMetaErr(err)
		}
		meta.Handler = mb.Handler
		meta.Primary = mb.PrimaryItem
		meta.ItemInfo = mb.ItemInfo
		meta.ItemLoc = mb.ItemLoc
		meta.Properties = mb.Properties
		meta.ItemRef = mb.ItemRef
		meta.ItemData = mb.ItemData
	case bmff.TypeMini:
		payload2, err := h2.PayloadReader(r, 1, &f.limits)
		if err != nil {
			return nil, f.setMetaErr(err)
		}
		mini, err := bmff.ParseMiniBox(payload2)
		if err != nil {
			return nil, f.setMetaErr(err)
		}
		f.mini = mini
		synthesized, err := synthesizeMiniMeta(mini, payload2.Base())
		if err != nil {
			return nil, f.setMetaErr(err)
		}
		meta = synthesized
		meta.FileType = ft
	default:
		return nil, f.setMetaErr(bmff.New(bmff.KindInvalidInput, bmff.SubNoMetaBox, "expected meta or mini box after ftyp, got %q", h2.Type))
	}

	if meta.Handler != nil && meta.Handler.HandlerType != bmff.FCC("pict") {
		f.limits.Warnf("meta handler_type is %q, not \"pict\"; continuing anyway", meta.Handler.HandlerType)
	}

	f.meta = meta
	f.itemCache = make(map[uint32]*Item)
	return f.meta, nil
}

// PrimaryItem returns the file's primary item, per pitm (or, for a mini
// file, the sole main image item).
func (f *File) PrimaryItem() (*Item, error) {
	meta, err := f.getMeta()
	if err != nil {
		return nil, err
	}
	if meta.Primary == nil {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNoPitmBox, "file lacks a primary item box")
	}
	return f.ItemByID(meta.Primary.ItemID)
}

// ErrUnknownItem is returned by ItemByID for an id absent from iinf.
var ErrUnknownItem = bmff.New(bmff.KindInvalidInput, bmff.SubNone, "unknown item id")

// ItemByID resolves an item's info/location/properties/references into an
// Item (§3 Item, §4.E). Results are cached; the returned *Item must not be
// mutated by callers.
func (f *File) ItemByID(id uint32) (*Item, error) {
	meta, err := f.getMeta()
	if err != nil {
		return nil, err
	}
	if cached, ok := f.itemCache[id]; ok {
		return cached, nil
	}

	it := &Item{f: f, ID: id}

	if meta.ItemLoc != nil {
		it.Location = meta.ItemLoc.ByItemID(id)
	}
	if meta.ItemRef != nil {
		for _, r := range meta.ItemRef.Refs {
			if r.FromItemID == id {
				it.References = append(it.References, r)
			}
		}
	}
	if meta.ItemInfo != nil {
		for _, ie := range meta.ItemInfo.Items {
			if ie.ItemID == id {
				it.Info = ie
			}
		}
	}
	if it.Info == nil {
		return nil, fmt.Errorf("heif: item %d: %w", id, ErrUnknownItem)
	}

	if meta.Properties != nil && meta.Properties.Container != nil {
		allProps := meta.Properties.Container.Properties
		for _, ipa := range meta.Properties.Associations {
			if len(it.Properties) > 0 {
				break // see teacher's TODO: multiple ipma boxes are merged naively
			}
			for _, entry := range ipa.Entries {
				if entry.ItemID != id {
					continue
				}
				for _, assoc := range entry.Associations {
					if assoc.Index <= 0 || assoc.Index > len(allProps) {
						f.limits.Warnf("ipma: item %d references nonexistent property index %d", id, assoc.Index)
						continue
					}
					it.Properties = append(it.Properties, allProps[assoc.Index-1])
					it.PropertyEssential = append(it.PropertyEssential, assoc.Essential)
				}
			}
		}
	}

	f.itemCache[id] = it
	return it, nil
}

// GetItemData returns the raw bytes addressed by it's iloc entry, resolving
// all three construction methods and concatenating multiple extents in
// order (§3 Extent, §4.C/§4.G). construction_method 2 (item offset)
// resolves recursively, since the referenced item may itself be
// constructed from other items; a dependency cycle fails rather than
// recursing forever.
func (f *File) GetItemData(it *Item) ([]byte, error) {
	return f.getItemData(it, make(map[uint32]bool), bmff.NewMemoryAccount(f.limits.MaxTotalMemory))
}

const maxExtentSize = 200 << 20 // sanity cap; no still-image extent legitimately exceeds this

func (f *File) getItemData(it *Item, visiting map[uint32]bool, mem *bmff.MemoryAccount) ([]byte, error) {
	loc := it.Location
	if loc == nil {
		return nil, fmt.Errorf("heif: item %d has no location", it.ID)
	}
	if visiting[it.ID] {
		return nil, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "item %d: construction_method 2 dependency cycle", it.ID)
	}
	visiting[it.ID] = true
	defer delete(visiting, it.ID)

	var out []byte
	for _, ext := range loc.Extents {
		var chunk []byte
		var err error
		switch loc.ConstructionMethod {
		case 1:
			chunk, err = f.readIdatExtent(it.ID, ext)
		case 2:
			chunk, err = f.readItemOffsetExtent(it.ID, ext, visiting, mem)
		default:
			chunk, err = f.readFileOffsetExtent(it.ID, ext, loc.BaseOffset, mem)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (f *File) readIdatExtent(itemID uint32, ext bmff.Extent) ([]byte, error) {
	meta, err := f.getMeta()
	if err != nil {
		return nil, err
	}
	if meta.ItemData == nil {
		return nil, fmt.Errorf("heif: item %d: construction_method 1 but no idat box present", itemID)
	}
	if ext.Offset+ext.Length > uint64(len(meta.ItemData.Data)) {
		return nil, fmt.Errorf("heif: item %d: idat extent out of bounds", itemID)
	}
	return meta.ItemData.Data[ext.Offset : ext.Offset+ext.Length], nil
}

// readItemOffsetExtent resolves a construction_method=2 extent: Offset and
// Length are a byte range within the fully-resolved data of the item
// identified by ext.Index (not a raw file or idat position).
func (f *File) readItemOffsetExtent(itemID uint32, ext bmff.Extent, visiting map[uint32]bool, mem *bmff.MemoryAccount) ([]byte, error) {
	refItem, err := f.ItemByID(uint32(ext.Index))
	if err != nil {
		return nil, fmt.Errorf("heif: item %d: construction_method 2 references item %d: %w", itemID, ext.Index, err)
	}
	refData, err := f.getItemData(refItem, visiting, mem)
	if err != nil {
		return nil, err
	}
	if ext.Offset+ext.Length > uint64(len(refData)) {
		return nil, fmt.Errorf("heif: item %d: item-offset extent out of bounds of item %d's %d bytes", itemID, ext.Index, len(refData))
	}
	return refData[ext.Offset : ext.Offset+ext.Length], nil
}

func (f *File) readFileOffsetExtent(itemID uint32, ext bmff.Extent, baseOffset uint64, mem *bmff.MemoryAccount) ([]byte, error) {
	if ext.Length > maxExtentSize {
		return nil, bmff.ErrSecurityLimit(fmt.Sprintf("item %d: extent length %d exceeds sanity threshold", itemID, ext.Length))
	}
	if err := mem.Charge(int64(ext.Length)); err != nil {
		return nil, err
	}
	buf := make([]byte, ext.Length)
	n, err := f.ra.ReadAt(buf, int64(ext.Offset+baseOffset))
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return nil, fmt.Errorf("heif: item %d: read %d of %d bytes at offset %d: %w", itemID, n, ext.Length, ext.Offset+baseOffset, err)
	}
	return buf, nil
}
