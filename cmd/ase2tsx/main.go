// Command ase2tsx converts the tileset embedded in an Aseprite file into a
// Tiled image collection: one PNG per tile plus a .tsx document.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroblast-engine/tsxset"
)

func main() {
	outDir := flag.String("out", ".", "Output directory")
	name := flag.String("name", "", "Tileset name (defaults to the Aseprite tileset name)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: ase2tsx [-out dir] [-name name] file.aseprite")
	}

	at, err := tsxset.ReadAsepriteTileset(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read Aseprite file: %v", err)
	}
	if *name == "" && at.Name == "" {
		base := filepath.Base(flag.Arg(0))
		*name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	path, err := export(at, *outDir, *name)
	if err != nil {
		log.Fatalf("Failed to export tileset: %v", err)
	}
	fmt.Printf("Wrote %s (%d tiles of %d x %d pixels)\n", path, len(at.Tiles), at.TileWidth, at.TileHeight)
}

// export writes the tile images and the .tsx document into outDir and
// returns the path of the document.
func export(at *tsxset.AsepriteTileset, outDir, name string) (string, error) {
	if name == "" {
		name = at.Name
	}
	if err := checkName(name); err != nil {
		return "", err
	}

	ts, err := tsxset.TileSetFromAseprite(at, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	for _, t := range ts.Tiles() {
		if err := writePNG(filepath.Join(outDir, t.Source), t); err != nil {
			return "", err
		}
	}

	path := filepath.Join(outDir, ts.Name+".tsx")
	if err := tsxset.WriteTSXFile(path, ts); err != nil {
		return "", err
	}
	return path, nil
}

func writePNG(path string, t tsxset.Tile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, t.Image); err != nil {
		f.Close()
		return fmt.Errorf("tile %d: %w", t.ID, err)
	}
	return f.Close()
}

// checkName rejects tileset names that are not a single file name, since
// they become part of the output file names.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("tileset name %q cannot be used as a file name", name)
	}
	return nil
}
