package tsxset

import "fmt"

// BuildTileMap resolves a grid of raw global ids, row by row from top to
// bottom, into a TileMap. Cells are cellWidth x cellHeight pixels; gid 0
// leaves the cell empty. Rows may have different lengths; Cols is the
// longest.
func BuildTileMap(r *Resolver, rows [][]uint32, cellWidth, cellHeight int) (TileMap, error) {
	tm := TileMap{
		Tiles: make([][]Cell, len(rows)),
		Rows:  len(rows),
	}

	for row, gids := range rows {
		tm.Tiles[row] = make([]Cell, len(gids))
		if len(gids) > tm.Cols {
			tm.Cols = len(gids)
		}

		for col, raw := range gids {
			cell := Cell{
				X: float64(col * cellWidth),
				Y: float64(row * cellHeight),
			}

			tile, g, ok := r.Resolve(raw)
			if !ok && g.ID != 0 {
				return TileMap{}, fmt.Errorf("cell %d,%d: gid %d does not match any tile", col, row, g.ID)
			}
			if ok {
				cell.Tile = &tile
				cell.XFlip = g.XFlip
				cell.YFlip = g.YFlip
				cell.DiagonalFlip = g.DiagonalFlip
			}

			tm.Tiles[row][col] = cell
		}
	}

	return tm, nil
}

// Count returns how many cells reference each local tile id.
func (tm TileMap) Count() map[int]int {
	counts := make(map[int]int)
	for _, row := range tm.Tiles {
		for _, cell := range row {
			if cell.Tile != nil {
				counts[cell.Tile.ID]++
			}
		}
	}
	return counts
}

// String renders one column per cell: the local id with X, Y or D
// appended for flips, and "--" for empty cells.
func (tm TileMap) String() string {
	var out string
	for _, row := range tm.Tiles {
		rowStr := ""
		for _, cell := range row {
			str := "--"
			if cell.Tile != nil {
				str = fmt.Sprintf("%02d", cell.Tile.ID)
				if cell.XFlip {
					str += "X"
				}
				if cell.YFlip {
					str += "Y"
				}
				if cell.DiagonalFlip {
					str += "D"
				}
			}
			rowStr += fmt.Sprintf("%-4s", str)
		}
		out += rowStr + "\n"
	}
	return out
}
