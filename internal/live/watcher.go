package live

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"time"

	"github.com/retroblast-engine/tsxset"
	"github.com/retroblast-engine/tsxset/internal/store"
)

// Options configures a Watcher.
type Options struct {
	Interval    time.Duration // Poll interval for Run
	CheckImages bool          // Open referenced images during validation
}

type fileState struct {
	modTime time.Time
	size    int64
	name    string // Catalog name of the last decode
}

// Watcher polls tileset files and republishes them when they change.
type Watcher struct {
	fsys    fs.FS
	paths   []string
	storage store.Storage
	out     Broadcaster
	opts    Options
	now     func() time.Time

	seen   map[string]fileState
	owners map[string]string // Catalog name to the path that last saved it
}

// NewWatcher creates a watcher over paths inside fsys. out may be nil.
func NewWatcher(fsys fs.FS, paths []string, storage store.Storage, out Broadcaster, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	return &Watcher{
		fsys:    fsys,
		paths:   paths,
		storage: storage,
		out:     out,
		opts:    opts,
		now:     time.Now,
		seen:    make(map[string]fileState),
		owners:  make(map[string]string),
	}
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (w *Watcher) Run(ctx context.Context) error {
	w.Poll()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll checks every path once and returns the events it published.
func (w *Watcher) Poll() []Event {
	var events []Event
	for _, p := range w.paths {
		if ev, changed := w.check(p); changed {
			events = append(events, ev)
			if w.out != nil {
				w.out.Broadcast(ev)
			}
		}
	}
	return events
}

func (w *Watcher) check(p string) (Event, bool) {
	info, err := fs.Stat(w.fsys, p)
	if err != nil {
		prev, known := w.seen[p]
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Failed to stat %s: %v", p, err)
			return Event{}, false
		}
		if !known {
			return Event{}, false
		}
		delete(w.seen, p)
		w.release(p)
		log.Printf("Tileset %s removed", p)
		return Event{Type: EventTilesetRemoved, Name: prev.name, Path: p}, true
	}

	prev, known := w.seen[p]
	if known && prev.modTime.Equal(info.ModTime()) && prev.size == info.Size() {
		return Event{}, false
	}

	ev := w.reload(p)
	w.seen[p] = fileState{modTime: info.ModTime(), size: info.Size(), name: ev.Name}
	return ev, true
}

// reload decodes and validates p. Only valid tilesets reach the catalog, so
// a broken edit leaves the last good manifest in place.
func (w *Watcher) reload(p string) Event {
	ev := Event{Type: EventTilesetInvalid, Name: catalogName(p, nil), Path: p}

	data, err := fs.ReadFile(w.fsys, p)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}

	ts, err := tsxset.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("Failed to decode %s: %v", p, err)
		ev.Error = err.Error()
		return ev
	}
	ts.Path = p
	ev.Name = catalogName(p, ts)
	ev.Tiles = ts.Len()

	if owner, ok := w.owners[ev.Name]; ok && owner != p {
		log.Printf("Tileset %s from %s clashes with %s", ev.Name, p, owner)
		ev.Error = fmt.Sprintf("tileset name %q is already used by %s", ev.Name, owner)
		return ev
	}

	var images fs.FS
	if w.opts.CheckImages {
		images = w.fsys
	}
	if err := tsxset.Validate(ts, images); err != nil {
		log.Printf("Tileset %s is invalid: %v", p, err)
		ev.Problems = tsxset.ProblemsOf(err)
		ev.Error = err.Error()
		return ev
	}

	m := store.NewManifest(ts, data, w.now())
	if err := w.storage.SaveTileset(ev.Name, m); err != nil {
		log.Printf("Failed to save tileset %s: %v", ev.Name, err)
		ev.Error = err.Error()
		return ev
	}

	w.release(p)
	w.owners[ev.Name] = p

	log.Printf("Loaded tileset %s from %s (%d tiles)", ev.Name, p, ev.Tiles)
	ev.Type = EventTilesetUpdated
	ev.Checksum = m.Checksum
	return ev
}

// release frees every catalog name owned by p.
func (w *Watcher) release(p string) {
	for name, owner := range w.owners {
		if owner == p {
			delete(w.owners, name)
		}
	}
}

// catalogName is the tileset's name attribute, or the file name without
// extension when the attribute is empty.
func catalogName(p string, ts *tsxset.TileSet) string {
	if ts != nil && ts.Name != "" {
		return ts.Name
	}
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
