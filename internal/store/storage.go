package store

import (
	"errors"
	"fmt"

	"github.com/retroblast-engine/tsxset/internal/config"
)

// ErrNotFound is returned when a tileset name is not in the catalog.
var ErrNotFound = errors.New("tileset not found")

// Storage defines the interface for the tileset catalog
type Storage interface {
	SaveTileset(name string, m *Manifest) error
	LoadTileset(name string) (*Manifest, error)
	ListTilesets() ([]string, error)
	Close() error
}

// Open creates the storage selected by cfg.
func Open(cfg config.StoreConfig) (Storage, error) {
	switch cfg.Type {
	case config.StoreLevelDB:
		return NewLevelDBStore(cfg.Path)
	case config.StoreJSON:
		return NewJSONStore(cfg.Path)
	case config.StorePostgres:
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}
