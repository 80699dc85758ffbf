package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// JSONStore keeps the catalog in a single local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	writeMu  sync.Mutex // serializes file writes
	data     *JSONData
}

// JSONData represents the structure of the JSON file
type JSONData struct {
	Tilesets map[string]*Manifest `json:"tilesets"`
}

// NewJSONStore opens the JSON catalog at filePath, creating it if needed
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Tilesets: make(map[string]*Manifest),
		},
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create JSON store directory: %w", err)
		}
		if err := store.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %w", err)
		}
	}

	return store, nil
}

func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(file, js.data); err != nil {
		return err
	}
	if js.data.Tilesets == nil {
		js.data.Tilesets = make(map[string]*Manifest)
	}
	return nil
}

// saveToFile writes through a temporary file so readers never see a partial catalog
func (js *JSONStore) saveToFile() error {
	js.writeMu.Lock()
	defer js.writeMu.Unlock()

	js.mutex.RLock()
	data, err := json.MarshalIndent(js.data, "", "  ")
	js.mutex.RUnlock()
	if err != nil {
		return err
	}

	tmp := js.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, js.filePath)
}

// SaveTileset stores a manifest under name
func (js *JSONStore) SaveTileset(name string, m *Manifest) error {
	stored := cloneManifest(m)
	js.mutex.Lock()
	js.data.Tilesets[name] = stored
	js.mutex.Unlock()

	return js.saveToFile()
}

// LoadTileset loads a manifest by name
func (js *JSONStore) LoadTileset(name string) (*Manifest, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	m, exists := js.data.Tilesets[name]
	if !exists {
		return nil, notFound(name)
	}
	return cloneManifest(m), nil
}

// cloneManifest copies m so callers never share the stored value.
func cloneManifest(m *Manifest) *Manifest {
	cp := *m
	cp.Records = slices.Clone(m.Records)
	return &cp
}

// ListTilesets returns the stored names in ascending order
func (js *JSONStore) ListTilesets() ([]string, error) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	names := make([]string, 0, len(js.data.Tilesets))
	for name := range js.data.Tilesets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Close is a no-op for the JSON store
func (js *JSONStore) Close() error {
	return nil
}
