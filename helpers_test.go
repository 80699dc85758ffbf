package tsxset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path"
	"strings"
	"testing"
	"testing/fstest"
)

// pngBytes encodes a solid w x h PNG.
func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// levelFS returns an asset root holding testdata/level/tileset.tsx under
// "level/" and a 50x50 PNG for every image it references.
func levelFS(t *testing.T) fstest.MapFS {
	t.Helper()

	data, err := os.ReadFile("testdata/level/tileset.tsx")
	if err != nil {
		t.Fatalf("Failed to read testdata: %v", err)
	}

	fsys := fstest.MapFS{
		"level/tileset.tsx": &fstest.MapFile{Data: data},
	}
	ts, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode testdata: %v", err)
	}
	for _, tile := range ts.Tiles() {
		name := path.Join("level", tile.Source)
		fsys[name] = &fstest.MapFile{Data: pngBytes(t, 50, 50, color.NRGBA{R: uint8(tile.ID), A: 255})}
	}
	return fsys
}

func mustDecode(t *testing.T, doc string) *TileSet {
	t.Helper()

	ts, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return ts
}
