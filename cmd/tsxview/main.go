// Command tsxview opens a window showing every tile of a tileset in a grid.
//
// Keys: H, V and D toggle the horizontal, vertical and diagonal flip of all
// cells.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/retroblast-engine/tsxset"
	"github.com/retroblast-engine/tsxset/sprites"
)

const padding = 4

type viewer struct {
	ts    *tsxset.TileSet
	sheet *sprites.Sheet
	res   *tsxset.Resolver
	cols  int
	flags uint32
	scale float64

	tm     tsxset.TileMap
	canvas *ebiten.Image
}

func newViewer(ts *tsxset.TileSet, scale float64) (*viewer, error) {
	sheet, err := sprites.FromTileSet(ts)
	if err != nil {
		return nil, err
	}
	res, err := tsxset.NewResolver(tsxset.Ref{FirstGID: 1, Tileset: ts})
	if err != nil {
		return nil, err
	}

	v := &viewer{
		ts:    ts,
		sheet: sheet,
		res:   res,
		cols:  int(math.Ceil(math.Sqrt(float64(ts.Len())))),
		scale: scale,
	}
	if v.cols == 0 {
		v.cols = 1
	}
	if err := v.rebuild(); err != nil {
		return nil, err
	}
	return v, nil
}

// rebuild lays every tile out in a square grid of gids carrying the
// current flip flags.
func (v *viewer) rebuild() error {
	var rows [][]uint32
	for i, id := range v.ts.IDs() {
		if i%v.cols == 0 {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], (uint32(id)+1)|v.flags)
	}

	tm, err := tsxset.BuildTileMap(v.res, rows, v.ts.TileWidth+padding, v.ts.TileHeight+padding)
	if err != nil {
		return err
	}
	v.tm = tm
	return nil
}

func (v *viewer) canvasSize() (int, int) {
	w := v.tm.Cols*(v.ts.TileWidth+padding) + padding
	h := v.tm.Rows*(v.ts.TileHeight+padding) + padding
	return w, h
}

func (v *viewer) Update() error {
	for key, bit := range map[ebiten.Key]uint32{
		ebiten.KeyH: tsxset.FlagFlippedHorizontally,
		ebiten.KeyV: tsxset.FlagFlippedVertically,
		ebiten.KeyD: tsxset.FlagFlippedDiagonally,
	} {
		if inpututil.IsKeyJustPressed(key) {
			v.flags ^= bit
			if err := v.rebuild(); err != nil {
				return err
			}
		}
	}

	v.sheet.Update(time.Now())
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	w, h := v.canvasSize()
	if v.canvas == nil {
		v.canvas = ebiten.NewImage(w, h)
	}
	v.canvas.Clear()
	v.sheet.DrawTileMap(v.canvas, v.tm, padding, padding)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(v.scale, v.scale)
	screen.DrawImage(v.canvas, op)

	g := tsxset.DecodeGID(v.flags)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s  %d tiles  H:%v V:%v D:%v",
		v.ts.Name, v.ts.Len(), g.XFlip, g.YFlip, g.DiagonalFlip), 2, int(float64(h)*v.scale)+2)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := v.canvasSize()
	return int(float64(w) * v.scale), int(float64(h)*v.scale) + 20
}

func main() {
	scale := flag.Float64("scale", 2, "Window scale factor")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: tsxview [-scale n] file.tsx")
	}
	name := flag.Arg(0)

	ts, err := tsxset.ReadTSXFile(name)
	if err != nil {
		log.Fatalf("Failed to read tileset: %v", err)
	}

	ts, err = tsxset.LoadImages(ts, os.DirFS("/"))
	if err != nil {
		log.Fatalf("Failed to load tile images: %v", err)
	}

	v, err := newViewer(ts, *scale)
	if err != nil {
		log.Fatalf("Failed to prepare viewer: %v", err)
	}

	w, h := v.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("tsxview: " + ts.Name)
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
