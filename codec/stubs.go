package codec

import (
	"image"

	"github.com/heifgo/heifbox/bmff"
)

// unsupportedCodecError reports a codec this module deliberately does not
// decode (HEVC/AV1/VVC/JPEG/JPEG 2000 bitstream decoding is out of scope;
// only the plugin interface contract is in scope — §1 "Out of scope").
type unsupportedCodecError struct {
	codec string
}

func (e *unsupportedCodecError) Error() string {
	return "codec: " + e.codec + " decoding is not implemented; link a real decoder plugin via codec.Registry.Register"
}

// Unwrap lets callers match bmff's error taxonomy via errors.Is against
// bmff.New(bmff.KindUnsupportedFeature, bmff.SubUnsupportedCodec, "").
func (e *unsupportedCodecError) Unwrap() error {
	return bmff.New(bmff.KindUnsupportedFeature, bmff.SubUnsupportedCodec, "%s", e.codec)
}

// stubDecoder satisfies Decoder for every codec this module does not
// implement: Push buffers bytes (so callers can still exercise the
// plugin-dispatch machinery in tests) but DecodeImage always fails.
type stubDecoder struct {
	codec  string
	strict bool
	data   []byte
}

func (d *stubDecoder) Push(data []byte) error {
	d.data = append(d.data, data...)
	return nil
}
func (d *stubDecoder) SetStrictDecoding(strict bool) { d.strict = strict }
func (d *stubDecoder) Reset()                        { d.data = nil }
func (d *stubDecoder) Free()                         { d.data = nil }
func (d *stubDecoder) DecodeImage() (image.Image, error) {
	return nil, &unsupportedCodecError{codec: d.codec}
}

// stubPlugin is a Plugin that claims a format but only ever returns a
// stubDecoder. Priority 0 means a real plugin registered at a higher
// priority is always preferred.
type stubPlugin struct {
	name     string
	formats  [][4]byte
}

func (p *stubPlugin) Name() string  { return p.name }
func (p *stubPlugin) Priority() int { return 0 }
func (p *stubPlugin) DoesSupportFormat(format [4]byte) bool {
	for _, f := range p.formats {
		if f == format {
			return true
		}
	}
	return false
}
func (p *stubPlugin) NewDecoder(opts ...Option) (Decoder, error) {
	d := &stubDecoder{codec: p.name}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// HEVCPlugin claims "hvc1"/"hev1" items. Grounded on the teacher's
// libde265.Decoder shape; this module carries only the hvcC config
// parser (bmff.HEVCConfigBox), not a bitstream decoder.
var HEVCPlugin = &stubPlugin{name: "hevc", formats: [][4]byte{{'h', 'v', 'c', '1'}, {'h', 'e', 'v', '1'}}}

// AV1Plugin claims "av01" items. Grounded on the teacher's
// dav1d.Decoder shape; this module carries only the av1C config parser
// (bmff.AV1ConfigBox), not a bitstream decoder.
var AV1Plugin = &stubPlugin{name: "av1", formats: [][4]byte{{'a', 'v', '0', '1'}}}

// VVCPlugin claims "vvc1" items (H.266/VVC, ISO/IEC 23008-12's newest
// permitted codec brand).
var VVCPlugin = &stubPlugin{name: "vvc", formats: [][4]byte{{'v', 'v', 'c', '1'}}}

// JPEGPlugin claims "jpeg" items (legacy baseline JPEG carried in a HEIF
// container, ISO/IEC 23008-12 Annex H).
var JPEGPlugin = &stubPlugin{name: "jpeg", formats: [][4]byte{{'j', 'p', 'e', 'g'}}}

// JPEG2000Plugin claims "j2k1" items (ISO/IEC 15444-1 codestreams).
var JPEG2000Plugin = &stubPlugin{name: "jpeg2000", formats: [][4]byte{{'j', '2', 'k', '1'}}}

func init() {
	DefaultRegistry.Register(UncompressedPlugin{})
	DefaultRegistry.Register(MaskPlugin{})
	DefaultRegistry.Register(HEVCPlugin)
	DefaultRegistry.Register(AV1Plugin)
	DefaultRegistry.Register(VVCPlugin)
	DefaultRegistry.Register(JPEGPlugin)
	DefaultRegistry.Register(JPEG2000Plugin)
}
