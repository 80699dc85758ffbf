package tsxset

import (
	"image"
	"time"
)

// Tile represents a single tile mapping record of a tileset.
type Tile struct {
	ID            int
	Width, Height int
	Source        string            // Image path as written in the document, relative to the .tsx file
	Class         string            // Tiled "type" (before 1.9) or "class" attribute
	Properties    map[string]string // Custom properties like "solid", "hazard", etc.
	Animation     []Frame
	Image         image.Image // Set by LoadImages
}

// Frame is one step of a tile animation.
type Frame struct {
	TileID   int
	Duration time.Duration
}

// Grid describes the <grid> element of a tileset.
type Grid struct {
	Orientation   string
	Width, Height int
}

// AtlasImage is the tileset-level image of a single-image tileset.
type AtlasImage struct {
	Source        string
	Width, Height int
	Trans         string
}

// TileMap is a grid of tiles resolved from global ids.
type TileMap struct {
	Tiles      [][]Cell
	Rows, Cols int
}

// Cell is one position of a TileMap. Empty cells have a nil Tile.
type Cell struct {
	Tile                       *Tile
	XFlip, YFlip, DiagonalFlip bool
	X, Y                       float64
}
