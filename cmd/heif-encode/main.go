// Command heif-encode reads a PNG and writes an uncompressed-frame
// ("unci") HEIF file. Reading a stdlib-decodable PNG is the CLI-contract
// exception to SPEC_FULL.md §1's ingest non-goal; the written file's
// pixel payload is packed into bytes by this command and written by
// heif.Builder, not borrowed from the PNG decoder.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/png" // registers the PNG decoder with image.Decode
	"log"
	"os"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/cmd/internal/exitcode"
	"github.com/heifgo/heifbox/heif"
)

func main() {
	quality := flag.Int("q", 100, "ignored for the uncompressed profile; accepted for CLI-contract completeness")
	thumb := flag.Int("thumb", 0, "generate a thumbnail item no larger than N pixels on its longest side (0 disables)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-q N] [--thumb N] <in.png> <out>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	_ = quality

	os.Exit(run(flag.Arg(0), flag.Arg(1), *thumb))
}

func run(in, out string, thumb int) int {
	src, err := os.Open(in)
	if err != nil {
		log.Printf("heif-encode: %v", err)
		return exitcode.For(err)
	}
	img, _, err := image.Decode(src)
	src.Close()
	if err != nil {
		log.Printf("heif-encode: decoding %s: %v", in, err)
		return exitcode.For(bmff.New(bmff.KindInvalidInput, bmff.SubNone, "%v", err))
	}

	b := heif.NewBuilder(bmff.FCC("heic"))
	b.PrimaryItemID = 1

	mainSpec, err := buildUncompressedItem(1, img)
	if err != nil {
		log.Printf("heif-encode: %v", err)
		return exitcode.For(err)
	}
	if err := b.AddItem(mainSpec); err != nil {
		log.Printf("heif-encode: %v", err)
		return exitcode.For(err)
	}

	if thumb > 0 {
		thumbImg := downscaleToFit(img, thumb)
		thumbSpec, err := buildUncompressedItem(2, thumbImg)
		if err != nil {
			log.Printf("heif-encode: thumbnail: %v", err)
			return exitcode.For(err)
		}
		thumbSpec.References = []heif.ItemRef{{Type: bmff.RefThmb, ToItemIDs: []uint32{1}}}
		if err := b.AddItem(thumbSpec); err != nil {
			log.Printf("heif-encode: %v", err)
			return exitcode.For(err)
		}
	}

	dst, err := os.Create(out)
	if err != nil {
		log.Printf("heif-encode: %v", err)
		return exitcode.For(err)
	}
	defer dst.Close()

	if _, err := b.WriteTo(dst); err != nil {
		log.Printf("heif-encode: %v", err)
		return exitcode.For(err)
	}
	return 0
}

// buildUncompressedItem packs img's pixels as 8-bit interleaved RGB rows,
// the layout codec.UncompressedPlugin's RGB24 fast path expects.
func buildUncompressedItem(id uint32, img image.Image) (heif.ItemSpec, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return heif.ItemSpec{}, bmff.New(bmff.KindInvalidInput, bmff.SubNone, "source image has zero dimensions")
	}

	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := (y*width + x) * 3
			data[off] = byte(r >> 8)
			data[off+1] = byte(g >> 8)
			data[off+2] = byte(b >> 8)
		}
	}

	cmpd := &bmff.ComponentDefinitionBox{Components: []bmff.ComponentDefinition{
		{ComponentType: bmff.ComponentRed},
		{ComponentType: bmff.ComponentGreen},
		{ComponentType: bmff.ComponentBlue},
	}}
	uncC := &bmff.UncompressedConfigBox{
		Profile:        bmff.UncProfileRGB,
		ProfileDefined: true,
		Components: []bmff.UncompressedComponent{
			{ComponentIndex: 0, ComponentBitDepth: 8},
			{ComponentIndex: 1, ComponentBitDepth: 8},
			{ComponentIndex: 2, ComponentBitDepth: 8},
		},
	}

	return heif.ItemSpec{
		ID:   id,
		Type: bmff.ItemUnci,
		Data: data,
		Properties: []bmff.Property{
			&bmff.ImageSpatialExtents{Width: uint32(width), Height: uint32(height)},
			cmpd,
			uncC,
		},
		Essential: []bool{true, true, true},
	}, nil
}

func downscaleToFit(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(longest)
	newW, newH := int(float64(width)*scale), int(float64(height)*scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	out := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*width/newW
			srcY := bounds.Min.Y + y*height/newH
			out.Set(x, y, img.At(srcX, srcY))
		}
	}
	return out
}
