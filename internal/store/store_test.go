package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/retroblast-engine/tsxset"
	"github.com/retroblast-engine/tsxset/internal/config"
)

func testManifest(t *testing.T) *Manifest {
	t.Helper()

	data, err := os.ReadFile("../../testdata/level/tileset.tsx")
	if err != nil {
		t.Fatalf("Failed to read testdata: %v", err)
	}
	ts, err := tsxset.ReadTSXFile("../../testdata/level/tileset.tsx")
	if err != nil {
		t.Fatalf("ReadTSXFile failed: %v", err)
	}
	ts.Path = "level/tileset.tsx"

	return NewManifest(ts, data, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func TestNewManifest(t *testing.T) {
	m := testManifest(t)

	if m.Name != "tileset" || m.TileWidth != 50 || len(m.Records) != 23 {
		t.Fatalf("Unexpected manifest: %+v", m)
	}
	if len(m.Checksum) != 64 {
		t.Errorf("Expected a hex SHA-256 checksum, got %q", m.Checksum)
	}
	if m.Records[0].ID != 2 || m.Records[len(m.Records)-1].ID != 26 {
		t.Errorf("Records should be sorted by id: first=%d last=%d", m.Records[0].ID, m.Records[len(m.Records)-1].ID)
	}

	r, ok := m.Lookup(14)
	if !ok || r.ImagePath != "img/cocainer.png" || r.Width != 50 || r.Height != 50 {
		t.Errorf("Lookup(14) = %+v, %v", r, ok)
	}
	if _, ok := m.Lookup(7); ok {
		t.Error("Expected id 7 to be absent")
	}
}

// exerciseStorage runs the Storage contract against s.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()

	if _, err := s.LoadTileset("tileset"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	m := testManifest(t)
	if err := s.SaveTileset("tileset", m); err != nil {
		t.Fatalf("SaveTileset failed: %v", err)
	}
	other := *m
	other.Name = "props"
	if err := s.SaveTileset("props", &other); err != nil {
		t.Fatalf("SaveTileset failed: %v", err)
	}

	loaded, err := s.LoadTileset("tileset")
	if err != nil {
		t.Fatalf("LoadTileset failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, m) {
		t.Errorf("Loaded manifest differs:\n got %+v\nwant %+v", loaded, m)
	}

	names, err := s.ListTilesets()
	if err != nil {
		t.Fatalf("ListTilesets failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"props", "tileset"}) {
		t.Errorf("Unexpected names %v", names)
	}
}

func TestLevelDBStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog")

	s, err := NewLevelDBStore(path)
	if err != nil {
		t.Fatalf("NewLevelDBStore failed: %v", err)
	}
	exerciseStorage(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen and make sure the data persisted
	s, err = NewLevelDBStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	if _, err := s.LoadTileset("props"); err != nil {
		t.Errorf("Expected props to persist: %v", err)
	}
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")

	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	exerciseStorage(t, s)

	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	names, _ := reopened.ListTilesets()
	if len(names) != 2 {
		t.Errorf("Expected 2 persisted tilesets, got %v", names)
	}
}

func TestOpenUnknownType(t *testing.T) {
	if _, err := Open(config.StoreConfig{Type: "redis"}); err == nil {
		t.Error("Expected an error for an unknown store type")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TSX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TSX_TEST_DATABASE_URL not set")
	}

	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	defer s.Close()

	if _, err := s.db.Exec(`DELETE FROM tilesets`); err != nil {
		t.Fatalf("Failed to clear table: %v", err)
	}
	exerciseStorage(t, s)
}

func TestJSONStoreCopiesManifests(t *testing.T) {
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "catalog.json"))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}

	m := testManifest(t)
	if err := s.SaveTileset("tileset", m); err != nil {
		t.Fatalf("SaveTileset failed: %v", err)
	}
	m.Name = "changed"
	m.Records[0].ImagePath = "changed.png"

	loaded, err := s.LoadTileset("tileset")
	if err != nil {
		t.Fatalf("LoadTileset failed: %v", err)
	}
	if loaded.Name != "tileset" || loaded.Records[0].ImagePath != "img/player.png" {
		t.Errorf("Stored manifest followed the caller's edits: %s %s", loaded.Name, loaded.Records[0].ImagePath)
	}

	loaded.Records[0].ImagePath = "again.png"
	again, _ := s.LoadTileset("tileset")
	if again.Records[0].ImagePath != "img/player.png" {
		t.Error("LoadTileset should return a copy")
	}
}
