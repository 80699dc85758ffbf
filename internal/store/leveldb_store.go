package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const tilesetPrefix = "tileset:"

// LevelDBStore keeps manifests in a LevelDB database, one key per tileset
type LevelDBStore struct {
	db *leveldb.DB
}

// NewLevelDBStore opens or creates the database directory at path
func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

func tilesetKey(name string) []byte {
	return []byte(tilesetPrefix + name)
}

// SaveTileset stores a manifest under name
func (s *LevelDBStore) SaveTileset(name string, m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := s.db.Put(tilesetKey(name), data, nil); err != nil {
		return fmt.Errorf("failed to save tileset %s: %w", name, err)
	}
	return nil
}

// LoadTileset loads a manifest by name
func (s *LevelDBStore) LoadTileset(name string) (*Manifest, error) {
	data, err := s.db.Get(tilesetKey(name), nil)
	if err == leveldb.ErrNotFound {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tileset %s: %w", name, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// ListTilesets returns the stored names in key order
func (s *LevelDBStore) ListTilesets() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(tilesetPrefix)), nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		names = append(names, strings.TrimPrefix(string(iter.Key()), tilesetPrefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to list tilesets: %w", err)
	}
	return names, nil
}

// Close closes the database
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
