package codec_test

import (
	"image"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/codec"
)

func rgbLayout() (*bmff.ComponentDefinitionBox, *bmff.UncompressedConfigBox) {
	cmpd := &bmff.ComponentDefinitionBox{Components: []bmff.ComponentDefinition{
		{ComponentType: bmff.ComponentRed},
		{ComponentType: bmff.ComponentGreen},
		{ComponentType: bmff.ComponentBlue},
	}}
	uncC := &bmff.UncompressedConfigBox{Components: []bmff.UncompressedComponent{
		{ComponentBitDepth: 8}, {ComponentBitDepth: 8}, {ComponentBitDepth: 8},
	}}
	return cmpd, uncC
}

func TestUncompressedRGB24Decode(t *testing.T) {
	c := qt.New(t)

	cmpd, uncC := rgbLayout()
	plugin := codec.UncompressedPlugin{}
	dec, err := plugin.NewDecoder(codec.WithUncompressedLayout(cmpd, uncC, 2, 2))
	c.Assert(err, qt.IsNil)
	defer dec.Free()

	// 2x2 image: red, green / blue, white.
	pixels := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}
	c.Assert(dec.Push(pixels), qt.IsNil)

	img, err := dec.DecodeImage()
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds(), qt.Equals, image.Rect(0, 0, 2, 2))

	r, g, b, a := img.At(0, 0).RGBA()
	c.Assert([]uint32{r >> 8, g >> 8, b >> 8, a >> 8}, qt.DeepEquals, []uint32{255, 0, 0, 255})
}

func TestUncompressedTruncatedPayload(t *testing.T) {
	c := qt.New(t)

	cmpd, uncC := rgbLayout()
	plugin := codec.UncompressedPlugin{}
	dec, err := plugin.NewDecoder(codec.WithUncompressedLayout(cmpd, uncC, 4, 4))
	c.Assert(err, qt.IsNil)
	defer dec.Free()

	c.Assert(dec.Push([]byte{1, 2, 3}), qt.IsNil)
	_, err = dec.DecodeImage()
	c.Assert(err, qt.ErrorMatches, "codec: unci rgb24 payload too short.*")
}

func TestMaskDecode1bpp(t *testing.T) {
	c := qt.New(t)

	plugin := codec.MaskPlugin{}
	dec, err := plugin.NewDecoder(codec.WithMaskLayout(&bmff.MaskConfigBox{BitsPerPixel: 1}, 8, 1))
	c.Assert(err, qt.IsNil)
	defer dec.Free()

	c.Assert(dec.Push([]byte{0b10101010}), qt.IsNil)
	img, err := dec.DecodeImage()
	c.Assert(err, qt.IsNil)
	_, _, _, a0 := img.At(0, 0).RGBA()
	_, _, _, a1 := img.At(1, 0).RGBA()
	c.Assert(a0>>8, qt.Equals, uint32(255))
	c.Assert(a1>>8, qt.Equals, uint32(0))
}

func TestRegistryNoPlugin(t *testing.T) {
	c := qt.New(t)

	reg := codec.NewRegistry()
	_, err := reg.DecodeItem([4]byte{'z', 'z', 'z', 'z'}, nil)
	c.Assert(err, qt.Equals, codec.ErrNoDecoderPlugin)
}

func TestHEVCPluginIsStub(t *testing.T) {
	c := qt.New(t)

	dec, err := codec.HEVCPlugin.NewDecoder()
	c.Assert(err, qt.IsNil)
	defer dec.Free()
	c.Assert(dec.Push([]byte{0, 0, 0, 1}), qt.IsNil)
	_, err = dec.DecodeImage()
	c.Assert(err, qt.ErrorMatches, "codec: hevc decoding is not implemented.*")
}
