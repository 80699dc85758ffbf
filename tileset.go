package tsxset

import (
	"errors"
	"fmt"
	"image"
	"slices"
)

var (
	// ErrDuplicateTileID is returned when two tiles of one tileset share an id.
	ErrDuplicateTileID = errors.New("duplicate tile id")
	// ErrNegativeTileID is returned for tile ids below zero.
	ErrNegativeTileID = errors.New("negative tile id")
)

// TileSet is an immutable, ordered collection of tiles keyed by id.
type TileSet struct {
	Path         string // Slash-separated document path, relative to the asset root
	Name         string
	Version      string
	TiledVersion string
	TileWidth    int
	TileHeight   int
	TileCount    int // Value of the tilecount attribute, not recomputed on decode
	Columns      int // 0 for image collection tilesets
	Spacing      int
	Margin       int
	Grid         Grid
	Image        *AtlasImage // nil for image collection tilesets
	Properties   map[string]string

	tiles []Tile
	index map[int]int
}

// Options holds the tileset-level attributes passed to NewTileSet.
type Options struct {
	Path                  string
	Name                  string
	Version, TiledVersion string
	TileWidth, TileHeight int
	TileCount             int
	Columns               int
	Spacing, Margin       int
	Grid                  Grid
	Image                 *AtlasImage
	Properties            map[string]string
}

// NewTileSet builds a tileset from its attributes and tiles, keeping the
// order of tiles. Tile ids must be unique and non-negative.
func NewTileSet(opts Options, tiles []Tile) (*TileSet, error) {
	ts := &TileSet{
		Path:         opts.Path,
		Name:         opts.Name,
		Version:      opts.Version,
		TiledVersion: opts.TiledVersion,
		TileWidth:    opts.TileWidth,
		TileHeight:   opts.TileHeight,
		TileCount:    opts.TileCount,
		Columns:      opts.Columns,
		Spacing:      opts.Spacing,
		Margin:       opts.Margin,
		Grid:         opts.Grid,
		Image:        opts.Image,
		Properties:   opts.Properties,
		tiles:        make([]Tile, 0, len(tiles)),
		index:        make(map[int]int, len(tiles)),
	}
	if ts.Grid.Orientation == "" {
		ts.Grid = Grid{Orientation: "orthogonal", Width: 1, Height: 1}
	}

	for _, t := range tiles {
		if t.ID < 0 {
			return nil, fmt.Errorf("tileset %q: tile %d: %w", opts.Name, t.ID, ErrNegativeTileID)
		}
		if _, exists := ts.index[t.ID]; exists {
			return nil, fmt.Errorf("tileset %q: tile %d: %w", opts.Name, t.ID, ErrDuplicateTileID)
		}
		if t.Width == 0 {
			t.Width = opts.TileWidth
		}
		if t.Height == 0 {
			t.Height = opts.TileHeight
		}
		ts.index[t.ID] = len(ts.tiles)
		ts.tiles = append(ts.tiles, t)
	}

	return ts, nil
}

// Tiles returns the tiles in document order. The slice must not be modified.
func (ts *TileSet) Tiles() []Tile {
	return ts.tiles
}

// Len returns the number of tile records.
func (ts *TileSet) Len() int {
	return len(ts.tiles)
}

// Lookup returns the tile with the given id.
func (ts *TileSet) Lookup(id int) (Tile, bool) {
	i, ok := ts.index[id]
	if !ok {
		return Tile{}, false
	}
	return ts.tiles[i], true
}

// Source returns the image path for a tile id.
func (ts *TileSet) Source(id int) (string, bool) {
	t, ok := ts.Lookup(id)
	if !ok || t.Source == "" {
		return "", false
	}
	return t.Source, true
}

// IDs returns all tile ids in ascending order.
func (ts *TileSet) IDs() []int {
	ids := make([]int, 0, len(ts.tiles))
	for _, t := range ts.tiles {
		ids = append(ids, t.ID)
	}
	slices.Sort(ids)
	return ids
}

// MaxID returns the highest tile id, or -1 for an empty tileset.
func (ts *TileSet) MaxID() int {
	highest := -1
	for _, t := range ts.tiles {
		if t.ID > highest {
			highest = t.ID
		}
	}
	return highest
}

// IsCollection reports whether every tile carries its own image.
func (ts *TileSet) IsCollection() bool {
	return ts.Image == nil
}

// Span returns the number of local ids the tileset occupies in a map's gid
// space. Tiled reserves MaxID+1 ids for image collections and
// tilecount ids for atlases.
func (ts *TileSet) Span() int {
	if ts.IsCollection() {
		return ts.MaxID() + 1
	}
	if n := ts.atlasTileCount(); n > 0 {
		return n
	}
	return ts.TileCount
}

// TileRect returns the pixel rectangle of a tile inside the atlas image.
// It reports false for image collection tilesets and ids outside the atlas.
func (ts *TileSet) TileRect(id int) (image.Rectangle, bool) {
	if ts.IsCollection() || ts.Columns <= 0 || id < 0 {
		return image.Rectangle{}, false
	}
	if n := ts.atlasTileCount(); n > 0 && id >= n {
		return image.Rectangle{}, false
	}

	col := id % ts.Columns
	row := id / ts.Columns
	x := ts.Margin + col*(ts.TileWidth+ts.Spacing)
	y := ts.Margin + row*(ts.TileHeight+ts.Spacing)

	return image.Rect(x, y, x+ts.TileWidth, y+ts.TileHeight), true
}

// atlasTileCount derives the number of tiles from the atlas size, falling
// back to the tilecount attribute.
func (ts *TileSet) atlasTileCount() int {
	if ts.Image == nil || ts.Image.Height == 0 || ts.TileHeight == 0 || ts.Columns == 0 {
		return ts.TileCount
	}
	rows := (ts.Image.Height - 2*ts.Margin + ts.Spacing) / (ts.TileHeight + ts.Spacing)
	return rows * ts.Columns
}

// withTiles returns a copy of the tileset carrying different tile values for
// the same ids.
func (ts *TileSet) withTiles(tiles []Tile) *TileSet {
	cp := *ts
	cp.tiles = tiles
	return &cp
}
