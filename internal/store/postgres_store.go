package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps manifests in a PostgreSQL table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and creates the schema if needed
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tilesets (
		name TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		tile_width INTEGER NOT NULL,
		tile_height INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		manifest JSONB NOT NULL,
		loaded_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	_, err := ps.db.Exec(schema)
	return err
}

// SaveTileset upserts a manifest under name
func (ps *PostgresStore) SaveTileset(name string, m *Manifest) error {
	manifestJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	query := `
	INSERT INTO tilesets (name, path, tile_width, tile_height, checksum, manifest, loaded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (name)
	DO UPDATE SET
		path = $2, tile_width = $3, tile_height = $4, checksum = $5,
		manifest = $6, loaded_at = $7, updated_at = NOW()
	`

	_, err = ps.db.Exec(query,
		name, m.Path, m.TileWidth, m.TileHeight, m.Checksum,
		string(manifestJSON), m.LoadedAt)
	if err != nil {
		return fmt.Errorf("failed to save tileset %s: %w", name, err)
	}

	return nil
}

// LoadTileset loads a manifest by name
func (ps *PostgresStore) LoadTileset(name string) (*Manifest, error) {
	var manifestJSON string
	err := ps.db.QueryRow(`SELECT manifest FROM tilesets WHERE name = $1`, name).Scan(&manifestJSON)
	if err == sql.ErrNoRows {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tileset %s: %w", name, err)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(manifestJSON), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}

// ListTilesets returns the stored names in ascending order
func (ps *PostgresStore) ListTilesets() ([]string, error) {
	rows, err := ps.db.Query(`SELECT name FROM tilesets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tilesets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	log.Println("Closing database connection...")
	return ps.db.Close()
}
