// Command heif-decode decodes a HEIF/HEIC/AVIF file's primary item (or,
// with --with-aux, its alpha auxiliary) to a PNG file. Non-goal per
// SPEC_FULL.md §6: this command may only ever write PNG, never read one.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/cmd/internal/exitcode"
	"github.com/heifgo/heifbox/heif"
)

func main() {
	wantPNG := flag.Bool("png", true, "write PNG output (the only supported output format)")
	withAux := flag.Bool("with-aux", false, "decode the alpha auxiliary image instead of the primary item")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [--png] [--with-aux] <in> <out>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	if !*wantPNG {
		log.Printf("heif-decode: only PNG output is supported")
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0), flag.Arg(1), *withAux))
}

func run(in, out string, withAux bool) int {
	src, err := os.Open(in)
	if err != nil {
		log.Printf("heif-decode: %v", err)
		return exitcode.For(err)
	}
	defer src.Close()

	file := heif.Open(src)
	item, err := file.PrimaryItem()
	if err != nil {
		log.Printf("heif-decode: %v", err)
		return exitcode.For(err)
	}

	if withAux {
		ref := item.Reference(bmff.RefAuxl)
		if ref == nil || len(ref.ToItemIDs) == 0 {
			log.Printf("heif-decode: primary item has no auxl reference")
			return exitcode.For(bmff.New(bmff.KindInvalidInput, bmff.SubNone, "no auxiliary image"))
		}
		aux, err := file.ItemByID(ref.ToItemIDs[0])
		if err != nil {
			log.Printf("heif-decode: %v", err)
			return exitcode.For(err)
		}
		item = aux
	}

	dec := heif.NewDecoder(file)
	img, err := dec.Decode(context.Background(), item)
	if err != nil {
		log.Printf("heif-decode: %v", err)
		return exitcode.For(err)
	}

	dst, err := os.Create(out)
	if err != nil {
		log.Printf("heif-decode: %v", err)
		return exitcode.For(err)
	}
	defer dst.Close()

	if err := png.Encode(dst, img); err != nil {
		log.Printf("heif-decode: %v", err)
		return exitcode.For(err)
	}
	return 0
}
