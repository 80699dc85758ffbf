package tsxset

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// ProblemKind classifies a validation finding.
type ProblemKind string

const (
	ProblemTileCount      ProblemKind = "tilecount"
	ProblemMissingSource  ProblemKind = "missing_source"
	ProblemSizeMismatch   ProblemKind = "size_mismatch"
	ProblemMissingImage   ProblemKind = "missing_image"
	ProblemUnreadable     ProblemKind = "unreadable_image"
	ProblemImageSize      ProblemKind = "image_size"
	ProblemBadFrame       ProblemKind = "bad_frame"
	ProblemSourceEscapes  ProblemKind = "source_escapes_root"
	ProblemAtlasOversized ProblemKind = "atlas_id_out_of_range"
)

// Problem is a single validation finding. TileID is -1 for tileset-level
// problems.
type Problem struct {
	TileID int         `json:"tile_id"`
	Kind   ProblemKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (p Problem) Error() string {
	if p.TileID < 0 {
		return fmt.Sprintf("%s: %s", p.Kind, p.Detail)
	}
	return fmt.Sprintf("tile %d: %s: %s", p.TileID, p.Kind, p.Detail)
}

// ValidationError collects every problem found in one tileset.
type ValidationError struct {
	Tileset  string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tileset %q: %d problem(s)", e.Tileset, len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  ")
		b.WriteString(p.Error())
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p
	}
	return errs
}

// ProblemsOf returns the problems carried by err, or nil.
func ProblemsOf(err error) []Problem {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	return nil
}

// Validate checks a decoded tileset. When fsys is non-nil, referenced image
// files are opened and their headers checked against the declared size.
// It returns nil or a *ValidationError.
func Validate(ts *TileSet, fsys fs.FS) error {
	var problems []Problem
	add := func(id int, kind ProblemKind, format string, args ...any) {
		problems = append(problems, Problem{TileID: id, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	if ts.IsCollection() {
		if ts.TileCount != ts.Len() {
			add(-1, ProblemTileCount, "tilecount is %d but %d tiles are declared", ts.TileCount, ts.Len())
		}
	} else {
		if fsys != nil {
			checkImage(fsys, ts, -1, ts.Image.Source, ts.Image.Width, ts.Image.Height, add)
		}
		span := ts.Span()
		for _, t := range ts.Tiles() {
			if span > 0 && t.ID >= span {
				add(t.ID, ProblemAtlasOversized, "atlas holds %d tiles", span)
			}
		}
	}

	for _, t := range ts.Tiles() {
		if ts.IsCollection() {
			if t.Source == "" {
				add(t.ID, ProblemMissingSource, "tile has no image")
				continue
			}
			if t.Width != ts.TileWidth || t.Height != ts.TileHeight {
				add(t.ID, ProblemSizeMismatch, "image is %dx%d, grid is %dx%d", t.Width, t.Height, ts.TileWidth, ts.TileHeight)
			}
			if fsys != nil {
				checkImage(fsys, ts, t.ID, t.Source, t.Width, t.Height, add)
			}
		}

		for i, f := range t.Animation {
			if _, ok := ts.Lookup(f.TileID); !ok && !ts.inAtlas(f.TileID) {
				add(t.ID, ProblemBadFrame, "frame %d references unknown tile %d", i, f.TileID)
			}
			if f.Duration <= 0 {
				add(t.ID, ProblemBadFrame, "frame %d has duration %v", i, f.Duration)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}

	slices.SortStableFunc(problems, func(a, b Problem) int {
		if a.TileID != b.TileID {
			return a.TileID - b.TileID
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
	return &ValidationError{Tileset: ts.Name, Problems: problems}
}

var errEmptySource = errors.New("empty image source")

func checkImage(fsys fs.FS, ts *TileSet, id int, source string, width, height int, add func(int, ProblemKind, string, ...any)) {
	name, err := ts.ResolveSource(source)
	if errors.Is(err, errEmptySource) {
		add(id, ProblemMissingSource, "%v", err)
		return
	}
	if err != nil {
		add(id, ProblemSourceEscapes, "%v", err)
		return
	}

	f, err := fsys.Open(name)
	if err != nil {
		add(id, ProblemMissingImage, "%s: %v", name, unwrapPathError(err))
		return
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		add(id, ProblemUnreadable, "%s: %v", name, err)
		return
	}
	if cfg.Width != width || cfg.Height != height {
		add(id, ProblemImageSize, "%s is %dx%d, declared %dx%d", name, cfg.Width, cfg.Height, width, height)
	}
}

// ResolveSource maps an image source of the tileset onto a slash-separated
// path relative to the asset root the tileset was read from. Tilesets read
// through an absolute path resolve against os.DirFS("/").
func (ts *TileSet) ResolveSource(source string) (string, error) {
	if source == "" {
		return "", errEmptySource
	}
	if path.IsAbs(source) {
		return "", fmt.Errorf("absolute image source %q", source)
	}

	name := path.Join(path.Dir(ts.Path), source)
	if path.IsAbs(ts.Path) {
		name = strings.TrimPrefix(name, "/")
	}
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("image source %q escapes the asset root", source)
	}
	return name, nil
}

func (ts *TileSet) inAtlas(id int) bool {
	_, ok := ts.TileRect(id)
	return ok
}

func unwrapPathError(err error) error {
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}
