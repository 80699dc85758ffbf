package tsxset

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/png" // Tiled assets are PNG
	"io/fs"
)

// LoadImages returns a copy of ts with every Tile.Image decoded from fsys.
// Atlas tilesets are cut into one sub-image per tile; atlas ids without a
// <tile> element are added as plain tiles.
func LoadImages(ts *TileSet, fsys fs.FS) (*TileSet, error) {
	if ts.IsCollection() {
		tiles := make([]Tile, len(ts.tiles))
		for i, t := range ts.tiles {
			img, err := decodeImage(fsys, ts, t.Source)
			if err != nil {
				return nil, fmt.Errorf("tile %d: %w", t.ID, err)
			}
			t.Image = img
			tiles[i] = t
		}
		return ts.withTiles(tiles), nil
	}

	atlas, err := decodeImage(fsys, ts, ts.Image.Source)
	if err != nil {
		return nil, fmt.Errorf("tileset %q: %w", ts.Name, err)
	}

	var tiles []Tile
	for id := 0; id < ts.Span(); id++ {
		rect, _ := ts.TileRect(id)
		if !rect.In(atlas.Bounds()) {
			return nil, fmt.Errorf("tileset %q: tile %d at %v is outside the %v atlas", ts.Name, id, rect, atlas.Bounds())
		}

		t, ok := ts.Lookup(id)
		if !ok {
			t = Tile{ID: id, Width: ts.TileWidth, Height: ts.TileHeight}
		}
		t.Image = subImage(atlas, rect)
		tiles = append(tiles, t)
	}
	// Keep decorated tiles whose ids fall outside the atlas so lookups stay stable.
	for _, t := range ts.tiles {
		if t.ID >= ts.Span() {
			tiles = append(tiles, t)
		}
	}

	return NewTileSet(ts.options(), tiles)
}

func decodeImage(fsys fs.FS, ts *TileSet, source string) (image.Image, error) {
	name, err := ts.ResolveSource(source)
	if err != nil {
		return nil, err
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return img, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// subImage returns the rect portion of img, with bounds starting at 0,0.
func subImage(img image.Image, rect image.Rectangle) image.Image {
	if si, ok := img.(subImager); ok {
		sub := si.SubImage(rect)
		if sub.Bounds().Min == (image.Point{}) {
			return sub
		}
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

func (ts *TileSet) options() Options {
	return Options{
		Path:         ts.Path,
		Name:         ts.Name,
		Version:      ts.Version,
		TiledVersion: ts.TiledVersion,
		TileWidth:    ts.TileWidth,
		TileHeight:   ts.TileHeight,
		TileCount:    ts.TileCount,
		Columns:      ts.Columns,
		Spacing:      ts.Spacing,
		Margin:       ts.Margin,
		Grid:         ts.Grid,
		Image:        ts.Image,
		Properties:   ts.Properties,
	}
}
