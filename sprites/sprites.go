// Package sprites turns tilesets with decoded images into ebiten images
// and draws tilemaps with them.
package sprites

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/retroblast-engine/tsxset"
)

// Sheet holds one ebiten image per tile of a tileset.
type Sheet struct {
	Tileset    *tsxset.TileSet
	images     map[int]*ebiten.Image
	animations map[int]*tsxset.Animation
}

// FromTileSet uploads every tile image of ts. The tileset must have been
// passed through tsxset.LoadImages.
func FromTileSet(ts *tsxset.TileSet) (*Sheet, error) {
	sheet := &Sheet{
		Tileset:    ts,
		images:     make(map[int]*ebiten.Image, ts.Len()),
		animations: make(map[int]*tsxset.Animation),
	}

	now := time.Now()
	for _, t := range ts.Tiles() {
		if t.Image == nil {
			return nil, fmt.Errorf("tile %d of %q has no decoded image", t.ID, ts.Name)
		}
		sheet.images[t.ID] = ebiten.NewImageFromImage(t.Image)
		if a := tsxset.NewAnimation(t, now); a != nil {
			sheet.animations[t.ID] = a
		}
	}

	return sheet, nil
}

// Image returns the image of a tile id, or nil.
func (s *Sheet) Image(id int) *ebiten.Image {
	return s.images[id]
}

// Update advances every animated tile to now. Call it from ebiten.Game.Update.
func (s *Sheet) Update(now time.Time) {
	for _, a := range s.animations {
		a.Update(now)
	}
}

// Frame returns the image currently shown for id, following its animation.
func (s *Sheet) Frame(id int) *ebiten.Image {
	if a, ok := s.animations[id]; ok {
		if img := s.images[a.Current()]; img != nil {
			return img
		}
	}
	return s.images[id]
}

// DrawTileMap draws every non-empty cell of tm onto dst, offset by (x, y).
func (s *Sheet) DrawTileMap(dst *ebiten.Image, tm tsxset.TileMap, x, y float64) {
	for _, row := range tm.Tiles {
		for _, cell := range row {
			if cell.Tile == nil {
				continue
			}
			img := s.Frame(cell.Tile.ID)
			if img == nil {
				continue
			}

			w, h := img.Bounds().Dx(), img.Bounds().Dy()
			op := &ebiten.DrawImageOptions{}
			op.GeoM = CellGeoM(cell, float64(w), float64(h))
			op.GeoM.Translate(x+cell.X, y+cell.Y)
			dst.DrawImage(img, op)
		}
	}
}

// CellGeoM returns the transform applying a cell's flip flags to a w x h
// tile, keeping it inside its own bounds. Tiled applies the diagonal flip
// first, then the horizontal, then the vertical one.
func CellGeoM(cell tsxset.Cell, w, h float64) ebiten.GeoM {
	var g ebiten.GeoM
	if cell.DiagonalFlip {
		// Swap the x and y axes.
		g.SetElement(0, 0, 0)
		g.SetElement(0, 1, 1)
		g.SetElement(1, 0, 1)
		g.SetElement(1, 1, 0)
		w, h = h, w
	}
	if cell.XFlip {
		g.Scale(-1, 1)
		g.Translate(w, 0)
	}
	if cell.YFlip {
		g.Scale(1, -1)
		g.Translate(0, h)
	}
	return g
}
