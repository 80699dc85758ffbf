package tsxset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoadImagesCollection(t *testing.T) {
	fsys := levelFS(t)

	ts, err := ReadTSX(fsys, "level/tileset.tsx")
	if err != nil {
		t.Fatalf("ReadTSX failed: %v", err)
	}
	loaded, err := LoadImages(ts, fsys)
	if err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}

	if loaded.Len() != ts.Len() {
		t.Fatalf("Expected %d tiles, got %d", ts.Len(), loaded.Len())
	}
	tile, _ := loaded.Lookup(14)
	if tile.Image == nil || tile.Image.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Fatalf("Unexpected image for tile 14: %v", tile.Image)
	}
	r, _, _, _ := tile.Image.At(10, 10).RGBA()
	if r>>8 != 14 {
		t.Errorf("Expected the red channel to carry the tile id, got %d", r>>8)
	}

	// The original tileset is left untouched.
	if orig, _ := ts.Lookup(14); orig.Image != nil {
		t.Error("LoadImages modified its input")
	}
}

func TestLoadImagesMissingFile(t *testing.T) {
	fsys := levelFS(t)
	delete(fsys, "img/enemy.png")

	ts, err := ReadTSX(fsys, "level/tileset.tsx")
	if err != nil {
		t.Fatalf("ReadTSX failed: %v", err)
	}
	if _, err := LoadImages(ts, fsys); err == nil {
		t.Error("Expected an error for a missing image")
	}
}

func TestLoadImagesAtlas(t *testing.T) {
	// 2 columns x 2 rows of 4x4 tiles, 1px margin and spacing: 11x11 pixels.
	atlas := image.NewNRGBA(image.Rect(0, 0, 11, 11))
	for id := 0; id < 4; id++ {
		x0 := 1 + (id%2)*5
		y0 := 1 + (id/2)*5
		for y := y0; y < y0+4; y++ {
			for x := x0; x < x0+4; x++ {
				atlas.Set(x, y, color.NRGBA{G: uint8(10 * (id + 1)), A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, atlas); err != nil {
		t.Fatalf("Failed to encode atlas: %v", err)
	}

	fsys := fstest.MapFS{"sheets/atlas.png": &fstest.MapFile{Data: buf.Bytes()}}
	ts := mustDecode(t, `<tileset name="atlas" tilewidth="4" tileheight="4" spacing="1" margin="1" tilecount="4" columns="2">
 <image source="atlas.png" width="11" height="11"/>
 <tile id="3" class="goal"/>
</tileset>`)
	ts.Path = "sheets/atlas.tsx"

	if err := Validate(ts, fsys); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	loaded, err := LoadImages(ts, fsys)
	if err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}
	if loaded.Len() != 4 {
		t.Fatalf("Expected 4 tiles, got %d", loaded.Len())
	}

	for id := 0; id < 4; id++ {
		tile, ok := loaded.Lookup(id)
		if !ok || tile.Image == nil {
			t.Fatalf("Tile %d missing image", id)
		}
		if b := tile.Image.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
			t.Errorf("Tile %d bounds %v", id, b)
		}
		_, g, _, _ := tile.Image.At(tile.Image.Bounds().Min.X+2, tile.Image.Bounds().Min.Y+2).RGBA()
		if int(g>>8) != 10*(id+1) {
			t.Errorf("Tile %d: green = %d, want %d", id, g>>8, 10*(id+1))
		}
	}
	if goal, _ := loaded.Lookup(3); goal.Class != "goal" {
		t.Errorf("Expected tile 3 to keep its class, got %q", goal.Class)
	}
}

func TestLoadImagesFromTilesetDirectory(t *testing.T) {
	root := t.TempDir()
	for name, f := range levelFS(t) {
		dst := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(dst, f.Data, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(filepath.Join(root, "level")); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	ts, err := ReadTSXFile("tileset.tsx")
	if err != nil {
		t.Fatalf("ReadTSXFile failed: %v", err)
	}
	loaded, err := LoadImages(ts, os.DirFS("/"))
	if err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}
	if tile, _ := loaded.Lookup(2); tile.Image == nil {
		t.Error("Expected tile 2 to carry ../img/player.png")
	}
	if err := Validate(ts, os.DirFS("/")); err != nil {
		t.Errorf("Expected the tileset to validate with its images: %v", err)
	}
}
