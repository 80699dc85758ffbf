package tsxset

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrUnsupportedFile is returned for files whose extension is not handled.
var ErrUnsupportedFile = errors.New("unsupported file type")

// tsxTileset mirrors the <tileset> root element of a .tsx document.
// Field order is the element order Tiled writes.
type tsxTileset struct {
	XMLName      xml.Name       `xml:"tileset"`
	Version      string         `xml:"version,attr,omitempty"`
	TiledVersion string         `xml:"tiledversion,attr,omitempty"`
	Name         string         `xml:"name,attr"`
	TileWidth    int            `xml:"tilewidth,attr"`
	TileHeight   int            `xml:"tileheight,attr"`
	Spacing      int            `xml:"spacing,attr,omitempty"`
	Margin       int            `xml:"margin,attr,omitempty"`
	TileCount    int            `xml:"tilecount,attr"`
	Columns      int            `xml:"columns,attr"`
	Grid         *tsxGrid       `xml:"grid,omitempty"`
	Properties   *tsxProperties `xml:"properties,omitempty"`
	Image        *tsxImage      `xml:"image,omitempty"`
	Tiles        []tsxTile      `xml:"tile"`
}

type tsxGrid struct {
	Orientation string `xml:"orientation,attr"`
	Width       int    `xml:"width,attr"`
	Height      int    `xml:"height,attr"`
}

type tsxImage struct {
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Trans  string `xml:"trans,attr,omitempty"`
	Source string `xml:"source,attr"`
}

type tsxProperties struct {
	Properties []tsxProperty `xml:"property"`
}

type tsxProperty struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"` // multi-line string values are stored as text
}

type tsxTile struct {
	ID         int            `xml:"id,attr"`
	Type       string         `xml:"type,attr,omitempty"`
	Class      string         `xml:"class,attr,omitempty"`
	Properties *tsxProperties `xml:"properties,omitempty"`
	Image      *tsxImage      `xml:"image,omitempty"`
	Animation  *tsxAnimation  `xml:"animation,omitempty"`
}

type tsxAnimation struct {
	Frames []tsxFrame `xml:"frame"`
}

type tsxFrame struct {
	TileID   int `xml:"tileid,attr"`
	Duration int `xml:"duration,attr"` // milliseconds
}

// Decode parses a .tsx document.
func Decode(r io.Reader) (*TileSet, error) {
	var doc tsxTileset
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding tileset: %w", err)
	}
	if doc.TileWidth < 0 || doc.TileHeight < 0 {
		return nil, fmt.Errorf("tileset %q: invalid tile size %dx%d", doc.Name, doc.TileWidth, doc.TileHeight)
	}

	opts := Options{
		Name:         doc.Name,
		Version:      doc.Version,
		TiledVersion: doc.TiledVersion,
		TileWidth:    doc.TileWidth,
		TileHeight:   doc.TileHeight,
		TileCount:    doc.TileCount,
		Columns:      doc.Columns,
		Spacing:      doc.Spacing,
		Margin:       doc.Margin,
		Properties:   doc.Properties.toMap(),
	}
	if doc.Grid != nil {
		opts.Grid = Grid{Orientation: doc.Grid.Orientation, Width: doc.Grid.Width, Height: doc.Grid.Height}
	}
	if doc.Image != nil {
		opts.Image = &AtlasImage{
			Source: doc.Image.Source,
			Width:  doc.Image.Width,
			Height: doc.Image.Height,
			Trans:  doc.Image.Trans,
		}
	}

	tiles := make([]Tile, 0, len(doc.Tiles))
	for _, t := range doc.Tiles {
		tile := Tile{
			ID:         t.ID,
			Class:      t.Class,
			Properties: t.Properties.toMap(),
		}
		if tile.Class == "" {
			tile.Class = t.Type
		}
		if t.Image != nil {
			tile.Source = t.Image.Source
			tile.Width = t.Image.Width
			tile.Height = t.Image.Height
		}
		if t.Animation != nil {
			for _, f := range t.Animation.Frames {
				tile.Animation = append(tile.Animation, Frame{
					TileID:   f.TileID,
					Duration: time.Duration(f.Duration) * time.Millisecond,
				})
			}
		}
		tiles = append(tiles, tile)
	}

	return NewTileSet(opts, tiles)
}

// ReadTSX reads the named .tsx document from fsys. The tileset's Path is
// set to name, so image sources resolve against the same file system.
func ReadTSX(fsys fs.FS, name string) (*TileSet, error) {
	if err := checkExt(name); err != nil {
		return nil, err
	}

	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ts.Path = name

	return ts, nil
}

// ReadTSXFile reads a .tsx document from disk. The tileset's Path is made
// absolute, so image sources resolve against os.DirFS("/").
func ReadTSXFile(filePath string) (*TileSet, error) {
	if err := checkExt(filePath); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ts, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	ts.Path = filepath.ToSlash(abs)

	return ts, nil
}

func checkExt(name string) error {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".tsx", ".xml":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
}

// Encode writes ts as a .tsx document. The tilecount attribute of image
// collection tilesets is recomputed from the tiles.
func Encode(w io.Writer, ts *TileSet) error {
	doc := tsxTileset{
		Version:      ts.Version,
		TiledVersion: ts.TiledVersion,
		Name:         ts.Name,
		TileWidth:    ts.TileWidth,
		TileHeight:   ts.TileHeight,
		Spacing:      ts.Spacing,
		Margin:       ts.Margin,
		TileCount:    ts.TileCount,
		Columns:      ts.Columns,
		Grid:         &tsxGrid{Orientation: ts.Grid.Orientation, Width: ts.Grid.Width, Height: ts.Grid.Height},
		Properties:   fromMap(ts.Properties),
	}
	if ts.IsCollection() {
		doc.TileCount = ts.Len()
	} else {
		doc.Image = &tsxImage{
			Width:  ts.Image.Width,
			Height: ts.Image.Height,
			Trans:  ts.Image.Trans,
			Source: ts.Image.Source,
		}
	}

	for _, t := range ts.Tiles() {
		xt := tsxTile{ID: t.ID, Class: t.Class, Properties: fromMap(t.Properties)}
		if t.Source != "" {
			xt.Image = &tsxImage{Width: t.Width, Height: t.Height, Source: t.Source}
		}
		if len(t.Animation) > 0 {
			xt.Animation = &tsxAnimation{}
			for _, f := range t.Animation {
				xt.Animation.Frames = append(xt.Animation.Frames, tsxFrame{
					TileID:   f.TileID,
					Duration: int(f.Duration / time.Millisecond),
				})
			}
		}
		// Atlas tiles without extra data are implied by the image.
		if !ts.IsCollection() && xt.Image == nil && xt.Properties == nil && xt.Animation == nil && xt.Class == "" {
			continue
		}
		doc.Tiles = append(doc.Tiles, xt)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding tileset %q: %w", ts.Name, err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteTSXFile writes ts to filePath, replacing any existing file.
func WriteTSXFile(filePath string, ts *TileSet) error {
	if err := checkExt(filePath); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	if err := Encode(w, ts); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (p *tsxProperties) toMap() map[string]string {
	if p == nil || len(p.Properties) == 0 {
		return nil
	}
	m := make(map[string]string, len(p.Properties))
	for _, prop := range p.Properties {
		value := prop.Value
		if value == "" {
			value = strings.TrimSpace(prop.Text)
		}
		m[prop.Name] = value
	}
	return m
}

func fromMap(m map[string]string) *tsxProperties {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	p := &tsxProperties{}
	for _, name := range names {
		p.Properties = append(p.Properties, tsxProperty{Name: name, Value: m[name]})
	}
	return p
}
