package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/retroblast-engine/tsxset"
)

// Record is the stored form of one tile mapping.
type Record struct {
	ID        int    `json:"id"`
	ImagePath string `json:"image_path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Class     string `json:"class,omitempty"`
}

// Manifest is the stored form of a tileset.
type Manifest struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	TileWidth  int       `json:"tile_width"`
	TileHeight int       `json:"tile_height"`
	Atlas      string    `json:"atlas,omitempty"` // Resolved atlas image of single-image tilesets
	Records    []Record  `json:"records"`
	Checksum   string    `json:"checksum"` // SHA-256 of the .tsx document
	LoadedAt   time.Time `json:"loaded_at"`
}

// NewManifest builds a manifest from a decoded tileset and the raw document
// it was decoded from. Image paths are resolved against the asset root;
// sources that cannot be resolved are kept as written.
func NewManifest(ts *tsxset.TileSet, document []byte, loadedAt time.Time) *Manifest {
	sum := sha256.Sum256(document)
	m := &Manifest{
		Name:       ts.Name,
		Path:       ts.Path,
		TileWidth:  ts.TileWidth,
		TileHeight: ts.TileHeight,
		Records:    make([]Record, 0, ts.Len()),
		Checksum:   hex.EncodeToString(sum[:]),
		LoadedAt:   loadedAt.UTC(),
	}
	if ts.Image != nil {
		m.Atlas = resolve(ts, ts.Image.Source)
	}

	for _, id := range ts.IDs() {
		t, _ := ts.Lookup(id)
		m.Records = append(m.Records, Record{
			ID:        t.ID,
			ImagePath: resolve(ts, t.Source),
			Width:     t.Width,
			Height:    t.Height,
			Class:     t.Class,
		})
	}
	return m
}

func resolve(ts *tsxset.TileSet, source string) string {
	if source == "" {
		return ""
	}
	name, err := ts.ResolveSource(source)
	if err != nil {
		return source
	}
	return name
}

// Lookup returns the record for a tile id.
func (m *Manifest) Lookup(id int) (Record, bool) {
	for _, r := range m.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
