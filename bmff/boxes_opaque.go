package bmff

// OpaqueBox preserves an unrecognised box's raw payload bytes verbatim, so
// a write round-trips bit-exact even for box types this registry does not
// model (§4.C: "Unknown types are preserved as opaque bytes").
type OpaqueBox struct {
	Header
	Payload []byte
}

func (b OpaqueBox) FourCC() FourCC { return b.Header.Type }

// ParseOpaqueBox copies payload's remaining bytes into an OpaqueBox. It
// never fails on content, only on a truncated read.
func ParseOpaqueBox(h Header, payload *Reader) (OpaqueBox, error) {
	var buf []byte
	if payload.Bounded() {
		buf = make([]byte, payload.Remaining())
		if err := payload.ReadFull(buf); err != nil {
			return OpaqueBox{}, err
		}
	}
	return OpaqueBox{Header: h, Payload: buf}, nil
}
