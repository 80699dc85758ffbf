// Command tsxcheck decodes and validates Tiled .tsx tilesets.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/retroblast-engine/tsxset"
)

// report is the result for one file.
type report struct {
	File     string           `json:"file"`
	Name     string           `json:"name,omitempty"`
	Tiles    int              `json:"tiles"`
	Problems []tsxset.Problem `json:"problems,omitempty"`
	Error    string           `json:"error,omitempty"`

	ts *tsxset.TileSet
}

func (r *report) failed() bool {
	return r.Error != "" || len(r.Problems) > 0
}

func main() {
	assets := flag.String("assets", ".", "Asset root that relative files and image sources resolve against")
	images := flag.Bool("images", false, "Open every referenced image")
	asJSON := flag.Bool("json", false, "Print reports as JSON")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Usage: tsxcheck [-assets dir] [-images] [-json] files...")
	}

	root := os.DirFS(*assets)
	var reports []*report
	for _, name := range flag.Args() {
		reports = append(reports, check(root, name, *images))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	} else {
		for _, r := range reports {
			r.print(os.Stdout)
		}
	}

	for _, r := range reports {
		if r.failed() {
			os.Exit(1)
		}
	}
}

// check reads and validates name. Absolute names are read from the
// whole file system, others from root.
func check(root fs.FS, name string, images bool) *report {
	r := &report{File: name}

	fsys := root
	if filepath.IsAbs(name) {
		fsys = os.DirFS("/")
	}

	var ts *tsxset.TileSet
	var err error
	if filepath.IsAbs(name) {
		ts, err = tsxset.ReadTSXFile(name)
	} else {
		ts, err = tsxset.ReadTSX(root, filepath.ToSlash(filepath.Clean(name)))
	}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ts = ts
	r.Name = ts.Name
	r.Tiles = ts.Len()

	if !images {
		fsys = nil
	}
	if err := tsxset.Validate(ts, fsys); err != nil {
		r.Problems = tsxset.ProblemsOf(err)
		if r.Problems == nil {
			r.Error = err.Error()
		}
	}
	return r
}

// print writes a human readable summary of r.
func (r *report) print(w io.Writer) {
	fmt.Fprintf(w, "Tileset %s:\n", r.File)
	fmt.Fprintln(w, "===================")
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n\n", r.Error)
		return
	}

	ts := r.ts
	fmt.Fprintf(w, "Name: %s\n", ts.Name)
	fmt.Fprintf(w, "Tile Size: %d x %d pixels\n", ts.TileWidth, ts.TileHeight)
	if ts.IsCollection() {
		ids := ts.IDs()
		if len(ids) > 0 {
			fmt.Fprintf(w, "Type: image collection, %d tiles (ids %d..%d)\n", ts.Len(), ids[0], ids[len(ids)-1])
		} else {
			fmt.Fprintln(w, "Type: image collection, no tiles")
		}
	} else {
		fmt.Fprintf(w, "Type: atlas %s, %d columns, %d tiles\n", ts.Image.Source, ts.Columns, ts.Span())
	}
	fmt.Fprintf(w, "Grid: %s %d x %d\n", ts.Grid.Orientation, ts.Grid.Width, ts.Grid.Height)

	if len(r.Problems) == 0 {
		fmt.Fprint(w, "Problems: none\n\n")
		return
	}
	fmt.Fprintf(w, "Problems: %d\n", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  %s\n", p.Error())
	}
	fmt.Fprintln(w)
}
