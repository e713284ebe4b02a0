package bmff

// Extent is one (offset, length, index) record inside an iloc entry (§3
// Extent); construction_method, data_reference_index and base_offset are
// per-item and live on ItemLocationEntry.
type Extent struct {
	Offset uint64
	Length uint64
	Index  uint64 // only meaningful for construction_method 2 (item offset)
}

// ItemLocationEntry is one item's iloc record.
type ItemLocationEntry struct {
	ItemID             uint32
	ConstructionMethod uint8 // 0 = file offset, 1 = idat offset, 2 = item offset
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

// ItemLocationBox is "iloc": the item location table (§4.C).
type ItemLocationBox struct {
	Header
	OffsetSize, LengthSize, BaseOffsetSize, IndexSize uint8
	Items                                             []ItemLocationEntry
}

func ParseItemLocationBox(h Header, payload *Reader) (*ItemLocationBox, error) {
	ilb := &ItemLocationBox{Header: h}

	b1, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	ilb.OffsetSize = b1 >> 4
	ilb.LengthSize = b1 & 0x0F

	b2, err := payload.ReadU8()
	if err != nil {
		return nil, err
	}
	ilb.BaseOffsetSize = b2 >> 4
	if h.Version >= 1 {
		ilb.IndexSize = b2 & 0x0F
	}

	var count uint32
	if h.Version < 2 {
		c, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		count = uint32(c)
	} else {
		c, err := payload.ReadU32()
		if err != nil {
			return nil, err
		}
		count = c
	}

	for i := uint32(0); i < count; i++ {
		var ent ItemLocationEntry
		if h.Version < 2 {
			v, err := payload.ReadU16()
			if err != nil {
				return nil, err
			}
			ent.ItemID = uint32(v)
		} else {
			v, err := payload.ReadU32()
			if err != nil {
				return nil, err
			}
			ent.ItemID = v
		}

		if h.Version >= 1 {
			cm, err := payload.ReadU16()
			if err != nil {
				return nil, err
			}
			ent.ConstructionMethod = uint8(cm & 0x0F)
		}

		dri, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		ent.DataReferenceIndex = dri

		bo, err := payload.ReadUintN(int(ilb.BaseOffsetSize))
		if err != nil {
			return nil, err
		}
		ent.BaseOffset = bo

		extCount, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		for j := uint16(0); j < extCount; j++ {
			var ext Extent
			if h.Version >= 1 && ilb.IndexSize > 0 {
				idx, err := payload.ReadUintN(int(ilb.IndexSize))
				if err != nil {
					return nil, err
				}
				ext.Index = idx
			}
			off, err := payload.ReadUintN(int(ilb.OffsetSize))
			if err != nil {
				return nil, err
			}
			ln, err := payload.ReadUintN(int(ilb.LengthSize))
			if err != nil {
				return nil, err
			}
			ext.Offset, ext.Length = off, ln
			ent.Extents = append(ent.Extents, ext)
		}
		ilb.Items = append(ilb.Items, ent)
	}
	return ilb, payload.Err()
}

// ByItemID returns the entry for id, or nil if absent.
func (ilb *ItemLocationBox) ByItemID(id uint32) *ItemLocationEntry {
	for i := range ilb.Items {
		if ilb.Items[i].ItemID == id {
			return &ilb.Items[i]
		}
	}
	return nil
}
