package live

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/retroblast-engine/tsxset"
	"github.com/retroblast-engine/tsxset/internal/store"
)

const torchDoc = `<?xml version="1.0" encoding="UTF-8"?>
<tileset version="1.9" tiledversion="1.9.1" name="torches" tilewidth="16" tileheight="16" tilecount="2" columns="0">
 <tile id="0"><image width="16" height="16" source="img/torch_0.png"/></tile>
 <tile id="1"><image width="16" height="16" source="img/torch_1.png"/></tile>
</tileset>
`

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Broadcast(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func newTestWatcher(t *testing.T, fsys fstest.MapFS) (*Watcher, store.Storage, *recorder) {
	t.Helper()

	s, err := store.NewJSONStore(t.TempDir() + "/catalog.json")
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	rec := &recorder{}
	w := NewWatcher(fsys, []string{"fx/torches.tsx"}, s, rec, Options{})
	w.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return w, s, rec
}

func TestWatcherLifecycle(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fsys := fstest.MapFS{
		"fx/torches.tsx": &fstest.MapFile{Data: []byte(torchDoc), ModTime: t0},
	}
	w, s, rec := newTestWatcher(t, fsys)

	events := w.Poll()
	if len(events) != 1 || events[0].Type != EventTilesetUpdated || events[0].Name != "torches" || events[0].Tiles != 2 {
		t.Fatalf("Unexpected first poll: %+v", events)
	}
	m, err := s.LoadTileset("torches")
	if err != nil {
		t.Fatalf("LoadTileset failed: %v", err)
	}
	if m.Checksum != events[0].Checksum || m.Path != "fx/torches.tsx" {
		t.Errorf("Unexpected manifest %+v", m)
	}
	if r, ok := m.Lookup(1); !ok || r.ImagePath != "fx/img/torch_1.png" {
		t.Errorf("Lookup(1) = %+v, %v", r, ok)
	}

	if events := w.Poll(); len(events) != 0 {
		t.Errorf("Unchanged file should not publish, got %+v", events)
	}

	// A broken edit is reported and the stored manifest stays.
	fsys["fx/torches.tsx"] = &fstest.MapFile{Data: []byte(`<tileset name="torches"><tile id="1">`), ModTime: t0.Add(time.Second)}
	events = w.Poll()
	if len(events) != 1 || events[0].Type != EventTilesetInvalid || events[0].Error == "" {
		t.Fatalf("Expected an invalid event, got %+v", events)
	}
	if kept, _ := s.LoadTileset("torches"); kept.Checksum != m.Checksum {
		t.Error("Invalid edit should not replace the stored manifest")
	}

	// Validation problems travel with the event.
	fsys["fx/torches.tsx"] = &fstest.MapFile{
		Data:    []byte(`<tileset name="torches" tilewidth="16" tileheight="16" tilecount="3" columns="0"><tile id="0"/></tileset>`),
		ModTime: t0.Add(2 * time.Second),
	}
	events = w.Poll()
	if len(events) != 1 || len(events[0].Problems) != 2 {
		t.Fatalf("Expected two problems, got %+v", events)
	}
	if events[0].Problems[0].Kind != tsxset.ProblemTileCount || events[0].Problems[1].Kind != tsxset.ProblemMissingSource {
		t.Errorf("Unexpected problems %+v", events[0].Problems)
	}

	delete(fsys, "fx/torches.tsx")
	events = w.Poll()
	if len(events) != 1 || events[0].Type != EventTilesetRemoved || events[0].Name != "torches" {
		t.Fatalf("Expected a removed event, got %+v", events)
	}
	if events := w.Poll(); len(events) != 0 {
		t.Errorf("Removal should be reported once, got %+v", events)
	}

	if len(rec.events) != 4 {
		t.Errorf("Broadcaster saw %d events, want 4", len(rec.events))
	}
}

func TestWatcherChecksImages(t *testing.T) {
	fsys := fstest.MapFS{
		"fx/torches.tsx": &fstest.MapFile{Data: []byte(torchDoc)},
	}
	w, _, _ := newTestWatcher(t, fsys)
	w.opts.CheckImages = true

	events := w.Poll()
	if len(events) != 1 || len(events[0].Problems) != 2 {
		t.Fatalf("Expected two missing images, got %+v", events)
	}
	for _, p := range events[0].Problems {
		if p.Kind != tsxset.ProblemMissingImage {
			t.Errorf("Unexpected problem %+v", p)
		}
	}
}

func TestWatcherNameFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"fx/torches.tsx": &fstest.MapFile{Data: []byte(`<tileset tilewidth="16" tileheight="16" tilecount="0" columns="0"></tileset>`)},
	}
	w, s, _ := newTestWatcher(t, fsys)

	events := w.Poll()
	if len(events) != 1 || events[0].Name != "torches" || events[0].Type != EventTilesetUpdated {
		t.Fatalf("Unexpected events %+v", events)
	}
	if _, err := s.LoadTileset("torches"); err != nil {
		t.Errorf("Expected the file name to key the catalog: %v", err)
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	fsys := fstest.MapFS{
		"fx/torches.tsx": &fstest.MapFile{Data: []byte(torchDoc)},
	}
	w, _, rec := newTestWatcher(t, fsys)
	w.opts.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.events)
		rec.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Run never published the initial load")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherNameClash(t *testing.T) {
	fsys := fstest.MapFS{
		"level/tileset.tsx": &fstest.MapFile{Data: []byte(torchDoc)},
		"props/tileset.tsx": &fstest.MapFile{Data: []byte(torchDoc)},
	}
	s, err := store.NewJSONStore(t.TempDir() + "/catalog.json")
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	w := NewWatcher(fsys, []string{"level/tileset.tsx", "props/tileset.tsx"}, s, nil, Options{})

	events := w.Poll()
	if len(events) != 2 || events[0].Type != EventTilesetUpdated || events[1].Type != EventTilesetInvalid {
		t.Fatalf("Expected the second file to be rejected, got %+v", events)
	}
	if !strings.Contains(events[1].Error, "level/tileset.tsx") {
		t.Errorf("Error should name the owning file: %q", events[1].Error)
	}
	if m, _ := s.LoadTileset("torches"); m.Path != "level/tileset.tsx" {
		t.Errorf("Catalog entry was taken over by %s", m.Path)
	}

	// Once the owner goes away the name is free again.
	delete(fsys, "level/tileset.tsx")
	fsys["props/tileset.tsx"] = &fstest.MapFile{Data: []byte(torchDoc), ModTime: time.Unix(1, 0)}
	events = w.Poll()
	if len(events) != 2 || events[0].Type != EventTilesetRemoved || events[1].Type != EventTilesetUpdated {
		t.Fatalf("Unexpected events %+v", events)
	}
	if m, _ := s.LoadTileset("torches"); m.Path != "props/tileset.tsx" {
		t.Errorf("Expected props/tileset.tsx to own the entry, got %s", m.Path)
	}
}
