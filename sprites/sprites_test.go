package sprites

import (
	"testing"

	"github.com/retroblast-engine/tsxset"
)

func TestCellGeoM(t *testing.T) {
	// A 2x1 tile; Tiled applies diagonal, then horizontal, then vertical.
	tests := []struct {
		name  string
		cell  tsxset.Cell
		in    [2]float64
		wantX float64
		wantY float64
	}{
		{"none", tsxset.Cell{}, [2]float64{1, 0}, 1, 0},
		{"horizontal", tsxset.Cell{XFlip: true}, [2]float64{0, 0}, 2, 0},
		{"vertical", tsxset.Cell{YFlip: true}, [2]float64{0, 0}, 0, 1},
		{"diagonal", tsxset.Cell{DiagonalFlip: true}, [2]float64{1, 0}, 0, 1},
		{"clockwise", tsxset.Cell{DiagonalFlip: true, XFlip: true}, [2]float64{0, 0}, 1, 0},
		{"half turn", tsxset.Cell{XFlip: true, YFlip: true}, [2]float64{0, 0}, 2, 1},
	}

	for _, tt := range tests {
		g := CellGeoM(tt.cell, 2, 1)
		x, y := g.Apply(tt.in[0], tt.in[1])
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("%s: (%v, %v) -> (%v, %v), want (%v, %v)", tt.name, tt.in[0], tt.in[1], x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestFromTileSetRequiresImages(t *testing.T) {
	ts, err := tsxset.NewTileSet(tsxset.Options{Name: "bare", TileWidth: 8, TileHeight: 8}, []tsxset.Tile{{ID: 0, Source: "a.png"}})
	if err != nil {
		t.Fatalf("NewTileSet failed: %v", err)
	}
	if _, err := FromTileSet(ts); err == nil {
		t.Error("Expected an error for tiles without decoded images")
	}
}
