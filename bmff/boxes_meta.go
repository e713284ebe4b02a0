package bmff

// MetaBox is the FullBox container mandated once per file: it directly
// contains hdlr, pitm, iloc, iinf, iprp, and may contain iref, idat, grpl,
// dinf (§4.C).
type MetaBox struct {
	Header
	Handler     *HandlerBox
	PrimaryItem *PrimaryItemBox
	ItemInfo    *ItemInfoBox
	ItemLoc     *ItemLocationBox
	Properties  *ItemPropertiesBox
	ItemRef     *ItemReferenceBox
	ItemData    *ItemDataBox
	GroupList   *GroupListBox
	DataInfo    *DataInformationBox

	// Unknown is every direct child whose type this registry does not
	// parse; preserved verbatim so writes round-trip bit-exact.
	Unknown []OpaqueBox
}

// ParseMetaBox parses a "meta" FullBox's children. Unknown children are
// preserved as opaque boxes (§4.C, "Unknown types are preserved as opaque
// bytes"). A parse error in any child this registry knows (hdlr, pitm,
// iinf, iloc, iprp, iref, idat, grpl, dinf) fails the whole meta box,
// optional children included; no failed child is dropped and skipped.
func ParseMetaBox(payload *Reader, depth int, limits *Limits) (*MetaBox, error) {
	mb := &MetaBox{}
	err := ReadChildHeaders(payload, depth, limits, func(h Header, body *Reader) error {
		switch h.Type {
		case TypeHdlr:
			v, err := ParseHandlerBox(h, body)
			if err != nil {
				return err
			}
			mb.Handler = v
		case TypePitm:
			v, err := ParsePrimaryItemBox(h, body)
			if err != nil {
				return err
			}
			mb.PrimaryItem = v
		case TypeIinf:
			v, err := ParseItemInfoBox(h, body, depth+1, limits)
			if err != nil {
				return err
			}
			mb.ItemInfo = v
		case TypeIloc:
			v, err := ParseItemLocationBox(h, body)
			if err != nil {
				return err
			}
			mb.ItemLoc = v
		case TypeIprp:
			v, err := ParseItemPropertiesBox(h, body, depth+1, limits)
			if err != nil {
				return err
			}
			mb.Properties = v
		case TypeIref:
			v, err := ParseItemReferenceBox(h, body, depth+1, limits)
			if err != nil {
				return err
			}
			mb.ItemRef = v
		case TypeIdat:
			v, err := ParseItemDataBox(h, body)
			if err != nil {
				return err
			}
			mb.ItemData = v
		case TypeGrpl:
			v, err := ParseGroupListBox(h, body, depth+1, limits)
			if err != nil {
				return err
			}
			mb.GroupList = v
		case TypeDinf:
			v, err := ParseDataInformationBox(h, body, depth+1, limits)
			if err != nil {
				return err
			}
			mb.DataInfo = v
		default:
			ob, err := ParseOpaqueBox(h, body)
			if err != nil {
				return err
			}
			mb.Unknown = append(mb.Unknown, ob)
			limits.Warnf("meta: keeping unrecognised child box %q as opaque bytes", h.Type)
		}
		return nil
	})
	return mb, err
}

// HandlerBox is "hdlr"; HandlerType must be "pict" for still images (§4.C).
type HandlerBox struct {
	Header
	HandlerType FourCC
	Name        string
}

func ParseHandlerBox(h Header, payload *Reader) (*HandlerBox, error) {
	hb := &HandlerBox{Header: h}
	if err := payload.Skip(4); err != nil { // pre_defined
		return nil, err
	}
	ht, err := payload.ReadFourCC()
	if err != nil {
		return nil, err
	}
	hb.HandlerType = ht
	if err := payload.Skip(12); err != nil { // reserved[3]
		return nil, err
	}
	name, err := payload.ReadString()
	if err != nil {
		// Some writers omit the trailing name entirely; tolerate that.
		hb.Name = ""
		return hb, nil
	}
	hb.Name = name
	return hb, nil
}

// PrimaryItemBox is "pitm": the item ID a simple viewer should display.
type PrimaryItemBox struct {
	Header
	ItemID uint32
}

func ParsePrimaryItemBox(h Header, payload *Reader) (*PrimaryItemBox, error) {
	pib := &PrimaryItemBox{Header: h}
	if h.Version == 0 {
		v, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		pib.ItemID = uint32(v)
	} else {
		v, err := payload.ReadU32()
		if err != nil {
			return nil, err
		}
		pib.ItemID = v
	}
	return pib, nil
}

// ItemInfoEntry is one "infe" record: an item's essential identity.
type ItemInfoEntry struct {
	Header
	ItemID          uint32
	ProtectionIndex uint16
	ItemType        FourCC
	Hidden          bool
	Name            string

	ContentType     string // "mime" items only
	ContentEncoding string // "mime" items only
	ItemURIType     string // "uri " items only
}

func ParseItemInfoEntry(h Header, payload *Reader) (*ItemInfoEntry, error) {
	ie := &ItemInfoEntry{Header: h}
	if h.Version >= 2 {
		if h.Version == 2 {
			v, err := payload.ReadU16()
			if err != nil {
				return nil, err
			}
			ie.ItemID = uint32(v)
		} else {
			v, err := payload.ReadU32()
			if err != nil {
				return nil, err
			}
			ie.ItemID = v
		}
		pi, err := payload.ReadU16()
		if err != nil {
			return nil, err
		}
		ie.ProtectionIndex = pi
		it, err := payload.ReadFourCC()
		if err != nil {
			return nil, err
		}
		ie.ItemType = it
		// Bit 0 of the flags is hidden_item (ISO/IEC 23008-12 8.11.6.2).
		ie.Hidden = h.Flags&1 != 0
		name, err := payload.ReadString()
		if err != nil {
			return nil, err
		}
		ie.Name = name

		switch ie.ItemType {
		case ItemMime:
			ct, err := payload.ReadString()
			if err != nil {
				return nil, err
			}
			ie.ContentType = ct
			if payload.AnyRemaining() {
				ce, err := payload.ReadString()
				if err == nil {
					ie.ContentEncoding = ce
				}
			}
		case ItemURI:
			uri, err := payload.ReadString()
			if err != nil {
				return nil, err
			}
			ie.ItemURIType = uri
		}
		return ie, payload.Err()
	}

	// Versions 0/1 are legacy layouts this registry does not need to
	// support for still-image HEIF/AVIF producers; they are reported as an
	// Unsupported_feature error, which ParseItemInfoBox logs as a warning
	// and drops the entry rather than aborting the whole iinf box.
	return nil, New(KindUnsupportedFeature, SubNone, "infe version %d not supported (only 2 and 3 are)", h.Version)
}

// ItemInfoBox is "iinf": one infe per item.
type ItemInfoBox struct {
	Header
	Items []*ItemInfoEntry
}

func ParseItemInfoBox(h Header, payload *Reader, depth int, limits *Limits) (*ItemInfoBox, error) {
	ib := &ItemInfoBox{Header: h}
	var count uint32
	if h.Version == 0 {
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
	if limits.MaxItemCount > 0 && int(count) > limits.MaxItemCount {
		return nil, ErrSecurityLimit("iinf item count exceeds max_item_count")
	}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		if ch.Type != TypeInfe {
			limits.Warnf("iinf: skipping unexpected child %q", ch.Type)
			return nil
		}
		ie, err := ParseItemInfoEntry(ch, body)
		if err != nil {
			limits.Warnf("iinf: dropping unparsable infe: %v", err)
			return nil
		}
		ib.Items = append(ib.Items, ie)
		return nil
	})
	return ib, err
}

// ItemDataBox is "idat": inline item data addressed by construction_method 1.
type ItemDataBox struct {
	Header
	Data []byte
}

func ParseItemDataBox(h Header, payload *Reader) (*ItemDataBox, error) {
	buf := make([]byte, payload.Remaining())
	if err := payload.ReadFull(buf); err != nil {
		return nil, err
	}
	return &ItemDataBox{Header: h, Data: buf}, nil
}

// ItemReferenceEntry is one typed edge "from_item -> {to_items...}".
type ItemReferenceEntry struct {
	Type       FourCC
	FromItemID uint32
	ToItemIDs  []uint32
}

// ItemReferenceBox is "iref".
type ItemReferenceBox struct {
	Header
	Refs []*ItemReferenceEntry
}

func ParseItemReferenceBox(h Header, payload *Reader, depth int, limits *Limits) (*ItemReferenceBox, error) {
	ib := &ItemReferenceBox{Header: h}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		entry := &ItemReferenceEntry{Type: ch.Type}
		if h.Version == 0 {
			from, err := body.ReadU16()
			if err != nil {
				return err
			}
			entry.FromItemID = uint32(from)
			count, err := body.ReadU16()
			if err != nil {
				return err
			}
			for i := uint16(0); i < count; i++ {
				id, err := body.ReadU16()
				if err != nil {
					return err
				}
				entry.ToItemIDs = append(entry.ToItemIDs, uint32(id))
			}
		} else {
			from, err := body.ReadU32()
			if err != nil {
				return err
			}
			entry.FromItemID = from
			count, err := body.ReadU16()
			if err != nil {
				return err
			}
			for i := uint16(0); i < count; i++ {
				id, err := body.ReadU32()
				if err != nil {
					return err
				}
				entry.ToItemIDs = append(entry.ToItemIDs, id)
			}
		}
		ib.Refs = append(ib.Refs, entry)
		return nil
	})
	return ib, err
}

// GroupListBox is "grpl", a container of entity-to-group boxes. This
// module does not interpret individual group types; it preserves them as
// opaque children so a write round-trips bit-exact (§4.C's fallthrough
// policy for boxes outside the modelled set).
type GroupListBox struct {
	Header
	Groups []OpaqueBox
}

func ParseGroupListBox(h Header, payload *Reader, depth int, limits *Limits) (*GroupListBox, error) {
	gb := &GroupListBox{Header: h}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		ob, err := ParseOpaqueBox(ch, body)
		if err != nil {
			return err
		}
		gb.Groups = append(gb.Groups, ob)
		return nil
	})
	return gb, err
}

// DataReferenceEntry is one "url "/"urn " entry inside dref.
type DataReferenceEntry struct {
	Type     FourCC
	SelfFlag bool
	Location string
}

// DataInformationBox is "dinf", the container for dref.
type DataInformationBox struct {
	Header
	Refs []*DataReferenceEntry
}

func ParseDataInformationBox(h Header, payload *Reader, depth int, limits *Limits) (*DataInformationBox, error) {
	dib := &DataInformationBox{Header: h}
	err := ReadChildHeaders(payload, depth, limits, func(ch Header, body *Reader) error {
		if ch.Type != TypeDref {
			return nil
		}
		count, err := body.ReadU32()
		if err != nil {
			return err
		}
		return ReadChildHeaders(body, depth+1, limits, func(eh Header, ebody *Reader) error {
			entry := &DataReferenceEntry{Type: eh.Type, SelfFlag: eh.Flags&1 != 0}
			if !entry.SelfFlag && ebody.AnyRemaining() {
				loc, err := ebody.ReadString()
				if err == nil {
					entry.Location = loc
				}
			}
			dib.Refs = append(dib.Refs, entry)
			_ = count
			return nil
		})
	})
	return dib, err
}
