package tsxset

import (
	"cmp"
	"fmt"
	"slices"
)

/* Global tile id flags, as stored in Tiled map layer data
Bit 31 - Horizontal (X) flip
Bit 30 - Vertical (Y) flip
Bit 29 - Diagonal flip (anti-diagonal for orthogonal maps)
Bit 28 - 120 degree rotation (hexagonal maps only)
*/

const (
	FlagFlippedHorizontally uint32 = 0x80000000
	FlagFlippedVertically   uint32 = 0x40000000
	FlagFlippedDiagonally   uint32 = 0x20000000
	FlagRotatedHexagonal120 uint32 = 0x10000000

	gidMask = ^(FlagFlippedHorizontally | FlagFlippedVertically | FlagFlippedDiagonally | FlagRotatedHexagonal120)
)

// GID is a decoded global tile id.
type GID struct {
	ID                         uint32 // Global id with the flag bits cleared
	XFlip, YFlip, DiagonalFlip bool
	HexRotate                  bool
}

// DecodeGID splits a raw global id into id and flip flags.
func DecodeGID(raw uint32) GID {
	return GID{
		ID:           raw & gidMask,
		XFlip:        raw&FlagFlippedHorizontally != 0,
		YFlip:        raw&FlagFlippedVertically != 0,
		DiagonalFlip: raw&FlagFlippedDiagonally != 0,
		HexRotate:    raw&FlagRotatedHexagonal120 != 0,
	}
}

// Raw encodes g back into a global id with its flag bits.
func (g GID) Raw() uint32 {
	raw := g.ID & gidMask
	if g.XFlip {
		raw |= FlagFlippedHorizontally
	}
	if g.YFlip {
		raw |= FlagFlippedVertically
	}
	if g.DiagonalFlip {
		raw |= FlagFlippedDiagonally
	}
	if g.HexRotate {
		raw |= FlagRotatedHexagonal120
	}
	return raw
}

// Ref places a tileset in a map's global id space.
type Ref struct {
	FirstGID uint32
	Tileset  *TileSet
}

// Resolver maps global ids onto the tilesets referenced by a map.
type Resolver struct {
	refs []Ref
}

// NewResolver sorts refs by FirstGID and checks that their id ranges do not
// overlap. FirstGID must be at least 1.
func NewResolver(refs ...Ref) (*Resolver, error) {
	sorted := slices.Clone(refs)
	slices.SortFunc(sorted, func(a, b Ref) int {
		return cmp.Compare(a.FirstGID, b.FirstGID)
	})

	for i, ref := range sorted {
		if ref.FirstGID == 0 {
			return nil, fmt.Errorf("tileset %q: firstgid must be at least 1", ref.Tileset.Name)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if end := prev.FirstGID + uint32(prev.Tileset.Span()); ref.FirstGID < end {
			return nil, fmt.Errorf("tileset %q (firstgid %d) overlaps %q (gids %d-%d)",
				ref.Tileset.Name, ref.FirstGID, prev.Tileset.Name, prev.FirstGID, end-1)
		}
	}

	return &Resolver{refs: sorted}, nil
}

// Resolve returns the tile a raw global id refers to. The empty gid 0 and
// ids not present in the owning tileset report false.
func (r *Resolver) Resolve(raw uint32) (Tile, GID, bool) {
	g := DecodeGID(raw)
	if g.ID == 0 {
		return Tile{}, g, false
	}

	// Last ref whose FirstGID <= g.ID.
	i, found := slices.BinarySearchFunc(r.refs, g.ID, func(ref Ref, id uint32) int {
		return cmp.Compare(ref.FirstGID, id)
	})
	if !found {
		i--
	}
	if i < 0 {
		return Tile{}, g, false
	}

	ref := r.refs[i]
	tile, ok := ref.Tileset.Lookup(int(g.ID - ref.FirstGID))
	if !ok {
		if rect, inAtlas := ref.Tileset.TileRect(int(g.ID - ref.FirstGID)); inAtlas {
			return Tile{ID: int(g.ID - ref.FirstGID), Width: rect.Dx(), Height: rect.Dy()}, g, true
		}
	}
	return tile, g, ok
}

// NextFirstGID returns the firstgid a tileset appended after all refs would get.
func (r *Resolver) NextFirstGID() uint32 {
	if len(r.refs) == 0 {
		return 1
	}
	last := r.refs[len(r.refs)-1]
	return last.FirstGID + uint32(last.Tileset.Span())
}
