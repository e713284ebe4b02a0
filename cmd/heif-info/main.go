// Command heif-info prints a HEIF/HEIC/AVIF file's primary item and the
// items reachable from it; it does not dump the box tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/heifgo/heifbox/bmff"
	"github.com/heifgo/heifbox/cmd/internal/exitcode"
	"github.com/heifgo/heifbox/heif"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <in>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(path string) int {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("heif-info: %v", err)
		return exitcode.For(err)
	}
	defer f.Close()

	file := heif.Open(f)

	primary, err := file.PrimaryItem()
	if err != nil {
		log.Printf("heif-info: %v", err)
		return exitcode.For(err)
	}

	type row struct {
		name string
		it   *heif.Item
	}
	var rows []row
	rows = append(rows, row{name: itemLabel(primary), it: primary})

	// Collect every item reachable via outgoing dimg/auxl/thmb/cdsc
	// references from the primary item, so a grid's tiles are listed too.
	// Alpha, thumbnail and metadata items reference their master item
	// rather than the other way round, so they are not reached and not
	// listed.
	seen := map[uint32]bool{primary.ID: true}
	queue := []*heif.Item{primary}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for _, refType := range []bmff.FourCC{bmff.RefDimg, bmff.RefAuxl, bmff.RefThmb, bmff.RefCdsc} {
			ref := it.Reference(refType)
			if ref == nil {
				continue
			}
			for _, id := range ref.ToItemIDs {
				if seen[id] {
					continue
				}
				seen[id] = true
				child, err := file.ItemByID(id)
				if err != nil {
					continue
				}
				rows = append(rows, row{name: itemLabel(child), it: child})
				queue = append(queue, child)
			}
		}
	}

	names := make([]string, len(rows))
	byName := make(map[string]row, len(rows))
	for i, r := range rows {
		names[i] = r.name
		byName[r.name] = r
	}
	col := collate.New(language.Und)
	col.SortStrings(names)

	fmt.Printf("primary item: %d (%s)\n", primary.ID, primary.Type())
	fmt.Println("items:")
	for _, name := range names {
		r := byName[name]
		w, h, ok := r.it.SpatialExtents()
		if ok {
			fmt.Printf("  %-24s id=%-4d type=%-4s %dx%d\n", name, r.it.ID, r.it.Type(), w, h)
		} else {
			fmt.Printf("  %-24s id=%-4d type=%-4s\n", name, r.it.ID, r.it.Type())
		}
	}
	return 0
}

func itemLabel(it *heif.Item) string {
	return fmt.Sprintf("%s#%d", it.Type(), it.ID)
}
