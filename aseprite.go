package tsxset

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// From https://github.com/aseprite/aseprite/blob/main/docs/ase-file-specs.md#references

type (
	BYTE  = uint8  // An 8-bit unsigned integer value
	WORD  = uint16 // A 16-bit unsigned integer value
	SHORT = int16  // A 16-bit signed integer value
	DWORD = uint32 // A 32-bit unsigned integer value
)

const (
	MagicNumber      = 0xA5E0 // File header magic number
	MagicNumberFrame = 0xF1FA // Frame header magic number

	// Color depth (bits per pixel)
	ColorDepthRGBA      WORD = 32
	ColorDepthGrayscale WORD = 16
	ColorDepthIndexed   WORD = 8

	chunkOldPalette WORD = 0x0004
	chunkPalette    WORD = 0x2019
	chunkTileset    WORD = 0x2023
)

/* Tileset flags (1: Enabled, 0: Disabled)
Bit 2 (4)  - Tilemaps using this tileset use tile ID=0 as empty tile
Bit 1 (2)  - Include tiles inside this file
Bit 0 (1)  - Include link to external file
*/

const (
	FlagIncludeLinkToExternalFile = 1 << iota // 1
	FlagIncludeTilesInsideFile                // 2
	FlagTileIDZeroAsEmptyTile                 // 4
)

// Header is the 128-byte Aseprite file header.
type Header struct {
	FileSize          DWORD    // File size
	MagicNumberHeader WORD     // Magic number (0xA5E0)
	FrameCount        WORD     // Number of frames
	Width             WORD     // Width in pixels
	Height            WORD     // Height in pixels
	ColorDepth        WORD     // 32 bpp = RGBA, 16 bpp = Grayscale, 8 bpp = Indexed
	Flags             DWORD    // 1 = Layer opacity has valid value
	Speed             WORD     // Deprecated, frame headers carry durations
	Reserved1         DWORD    // Set to 0
	Reserved2         DWORD    // Set to 0
	TransparentIdx    BYTE     // Palette entry which represents transparent color (Indexed sprites only)
	IgnoreBytes       [3]BYTE  // Ignore these bytes
	NumColors         WORD     // Number of colors (0 means 256 for old sprites format)
	PixelWidth        BYTE     // Pixel ratio is "pixel width/pixel height"
	PixelHeight       BYTE     // Pixel height
	GridX             SHORT    // X position of the grid
	GridY             SHORT    // Y position of the grid
	GridWidth         WORD     // Zero if there is no grid
	GridHeight        WORD     // Zero if there is no grid
	FutureUse         [84]BYTE // Set to zero
}

// bytesPerPixel returns the pixel size for the header's color depth.
func (h Header) bytesPerPixel() (int, error) {
	switch h.ColorDepth {
	case ColorDepthRGBA:
		return 4, nil
	case ColorDepthGrayscale:
		return 2, nil
	case ColorDepthIndexed:
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown color depth: %d", h.ColorDepth)
	}
}

// FrameHeader is the 16-byte header in front of every frame.
type FrameHeader struct {
	BytesInFrame  DWORD   // Bytes in frame, header included
	MagicNumber   WORD    // Magic number (0xF1FA)
	OldChunkCount WORD    // 0xFFFF means more chunks, use NewChunkCount
	FrameDuration WORD    // Frame duration in milliseconds
	Reserved      [2]BYTE // Set to 0
	NewChunkCount DWORD   // If this is 0, use OldChunkCount
}

// NumberOfChunks returns the number of chunks in the frame
func (fh *FrameHeader) NumberOfChunks() uint32 {
	if fh.OldChunkCount == 0xFFFF {
		return fh.NewChunkCount
	}
	if fh.NewChunkCount == 0 {
		return uint32(fh.OldChunkCount)
	}
	return fh.NewChunkCount
}

type chunk struct {
	Size DWORD
	Type WORD
	Data []byte
}

type frame struct {
	Header FrameHeader
	Chunks []chunk
}

// AsepriteTileset is the first tileset embedded in an Aseprite file,
// with tiles already converted to images.
type AsepriteTileset struct {
	Name                  string
	TileWidth, TileHeight int
	EmptyTileZero         bool // Tile 0 is the empty tile
	Tiles                 []image.Image
}

// ReadAsepriteTileset reads the first tileset of an .aseprite or .ase file.
func ReadAsepriteTileset(filePath string) (*AsepriteTileset, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".aseprite" && ext != ".ase" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	at, err := DecodeAsepriteTileset(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return at, nil
}

// DecodeAsepriteTileset parses an Aseprite stream and extracts its first
// tileset that stores tiles inside the file.
func DecodeAsepriteTileset(r io.Reader) (*AsepriteTileset, error) {
	header, frames, err := readAseprite(r)
	if err != nil {
		return nil, err
	}

	var palette []color.Color
	for _, f := range frames {
		for _, c := range f.Chunks {
			switch c.Type {
			case chunkOldPalette:
				// The old chunk is only authoritative when no new palette exists.
				if palette != nil {
					continue
				}
				if palette, err = parseOldPalette(c.Data); err != nil {
					return nil, fmt.Errorf("parsing 0x0004 chunk: %w", err)
				}
			case chunkPalette:
				if palette, err = parsePalette(c.Data, palette); err != nil {
					return nil, fmt.Errorf("parsing 0x2019 chunk: %w", err)
				}
			}
		}
	}

	for _, f := range frames {
		for _, c := range f.Chunks {
			if c.Type != chunkTileset {
				continue
			}
			ts, err := parseTileset(c.Data)
			if err != nil {
				return nil, fmt.Errorf("parsing 0x2023 chunk: %w", err)
			}
			if ts.Flags&FlagIncludeTilesInsideFile == 0 {
				continue
			}
			return ts.decode(header, palette)
		}
	}

	return nil, errors.New("no tileset with embedded tiles")
}

// readAseprite reads the header, frame headers and raw chunks of an Aseprite stream.
func readAseprite(r io.Reader) (*Header, []frame, error) {
	header := &Header{}
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	if header.MagicNumberHeader != MagicNumber {
		return nil, nil, fmt.Errorf("invalid magic number 0x%X", header.MagicNumberHeader)
	}

	frames := make([]frame, 0, header.FrameCount)
	for i := 0; i < int(header.FrameCount); i++ {
		fh := FrameHeader{}
		if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
			return nil, nil, fmt.Errorf("frame %d: reading header: %w", i, err)
		}
		if fh.MagicNumber != MagicNumberFrame {
			return nil, nil, fmt.Errorf("frame %d: invalid magic number 0x%X", i, fh.MagicNumber)
		}

		var chunks []chunk
		var totalChunkSize uint32
		for j := 0; j < int(fh.NumberOfChunks()); j++ {
			c := chunk{}
			if err := binary.Read(r, binary.LittleEndian, &c.Size); err != nil {
				return nil, nil, err
			}
			if err := binary.Read(r, binary.LittleEndian, &c.Type); err != nil {
				return nil, nil, err
			}
			// 4 bytes for the size + 2 bytes for the type
			if c.Size < 6 {
				return nil, nil, fmt.Errorf("frame %d: invalid chunk size %d", i, c.Size)
			}

			c.Data = make([]byte, c.Size-6)
			if _, err := io.ReadFull(r, c.Data); err != nil {
				return nil, nil, fmt.Errorf("frame %d: chunk 0x%04X: %w", i, c.Type, err)
			}

			chunks = append(chunks, c)
			totalChunkSize += c.Size
		}

		const frameHeaderSize = 16
		if totalChunkSize+frameHeaderSize != fh.BytesInFrame {
			return nil, nil, fmt.Errorf("frame %d: size mismatch: expected %d, got %d", i, fh.BytesInFrame, totalChunkSize+frameHeaderSize)
		}

		frames = append(frames, frame{Header: fh, Chunks: chunks})
	}

	return header, frames, nil
}

func parseOldPalette(data []byte) ([]color.Color, error) {
	r := bytes.NewReader(data)

	var packets WORD
	if err := binary.Read(r, binary.LittleEndian, &packets); err != nil {
		return nil, err
	}

	palette := make([]color.Color, 0, 256)
	for i := 0; i < int(packets); i++ {
		var skip, count BYTE
		if err := binary.Read(r, binary.LittleEndian, &skip); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, err
		}
		for k := 0; k < int(skip); k++ {
			palette = append(palette, color.RGBA{})
		}

		n := int(count)
		if n == 0 {
			n = 256
		}
		for j := 0; j < n; j++ {
			var rgb [3]BYTE
			if err := binary.Read(r, binary.LittleEndian, &rgb); err != nil {
				return nil, err
			}
			palette = append(palette, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}

	return palette, nil
}

// parsePalette applies a 0x2019 palette chunk on top of palette.
func parsePalette(data []byte, palette []color.Color) ([]color.Color, error) {
	r := bytes.NewReader(data)

	var head struct {
		NewPaletteSize DWORD
		FirstColor     DWORD
		LastColor      DWORD
		Reserved       [8]BYTE
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, err
	}
	if head.LastColor < head.FirstColor || head.LastColor >= head.NewPaletteSize {
		return nil, fmt.Errorf("invalid color range %d-%d for palette of %d", head.FirstColor, head.LastColor, head.NewPaletteSize)
	}

	out := make([]color.Color, head.NewPaletteSize)
	copy(out, palette)
	for i := range out {
		if out[i] == nil {
			out[i] = color.RGBA{}
		}
	}

	for i := head.FirstColor; i <= head.LastColor; i++ {
		var entry struct {
			Flags      WORD
			R, G, B, A BYTE
		}
		if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
			return nil, err
		}
		// Bit 0: the entry has a name, which is skipped.
		if entry.Flags&1 != 0 {
			if _, err := readString(r); err != nil {
				return nil, err
			}
		}
		out[i] = color.NRGBA{R: entry.R, G: entry.G, B: entry.B, A: entry.A}
	}

	return out, nil
}

type tilesetChunk struct {
	ID, Flags, NumberOfTiles DWORD
	TileWidth, TileHeight    WORD
	Name                     string
	CompressedImage          []byte
}

func parseTileset(data []byte) (*tilesetChunk, error) {
	r := bytes.NewReader(data)

	var head struct {
		TilesetID     DWORD
		TilesetFlags  DWORD
		NumberOfTiles DWORD
		TileWidth     WORD
		TileHeight    WORD
		BaseIndex     SHORT
		Reserved      [14]BYTE
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}

	tc := &tilesetChunk{
		ID:            head.TilesetID,
		Flags:         head.TilesetFlags,
		NumberOfTiles: head.NumberOfTiles,
		TileWidth:     head.TileWidth,
		TileHeight:    head.TileHeight,
		Name:          name,
	}

	if tc.Flags&FlagIncludeLinkToExternalFile != 0 {
		// External file id and tileset id inside it.
		var external [2]DWORD
		if err := binary.Read(r, binary.LittleEndian, &external); err != nil {
			return nil, err
		}
	}
	if tc.Flags&FlagIncludeTilesInsideFile != 0 {
		var size DWORD
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if int(size) > r.Len() {
			return nil, fmt.Errorf("tileset image of %d bytes exceeds the %d bytes left", size, r.Len())
		}
		tc.CompressedImage = make([]byte, size)
		if _, err := io.ReadFull(r, tc.CompressedImage); err != nil {
			return nil, err
		}
	}

	return tc, nil
}

// decode converts the tileset image, stored as one column of tiles, into
// one image per tile.
func (c *tilesetChunk) decode(header *Header, palette []color.Color) (*AsepriteTileset, error) {
	bpp, err := header.bytesPerPixel()
	if err != nil {
		return nil, err
	}

	decompressed, err := decompressZlib(c.CompressedImage)
	if err != nil {
		return nil, fmt.Errorf("error decompressing tileset image data: %w", err)
	}

	tileWidth := int(c.TileWidth)
	tileHeight := int(c.TileHeight)
	numTiles := int(c.NumberOfTiles)
	tileSize := tileWidth * tileHeight * bpp
	if len(decompressed) != numTiles*tileSize {
		return nil, fmt.Errorf("tileset image holds %d bytes, expected %d tiles of %d bytes", len(decompressed), numTiles, tileSize)
	}

	at := &AsepriteTileset{
		Name:          c.Name,
		TileWidth:     tileWidth,
		TileHeight:    tileHeight,
		EmptyTileZero: c.Flags&FlagTileIDZeroAsEmptyTile != 0,
		Tiles:         make([]image.Image, numTiles),
	}

	for tile := 0; tile < numTiles; tile++ {
		tileImage := image.NewNRGBA(image.Rect(0, 0, tileWidth, tileHeight))
		pixels := decompressed[tile*tileSize : (tile+1)*tileSize]

		for y := 0; y < tileHeight; y++ {
			for x := 0; x < tileWidth; x++ {
				p := pixels[(y*tileWidth+x)*bpp:]
				switch bpp {
				case 4:
					tileImage.Set(x, y, color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
				case 2:
					tileImage.Set(x, y, color.NRGBA{R: p[0], G: p[0], B: p[0], A: p[1]})
				case 1:
					idx := p[0]
					if idx == header.TransparentIdx || int(idx) >= len(palette) {
						continue
					}
					tileImage.Set(x, y, palette[idx])
				}
			}
		}

		at.Tiles[tile] = tileImage
	}

	return at, nil
}

// TileSetFromAseprite converts an Aseprite tileset into a tileset whose
// tiles carry their images and sources named "<name>_<id>.png". The empty
// tile 0 is left out when the Aseprite tileset marks it as such.
func TileSetFromAseprite(at *AsepriteTileset, name string) (*TileSet, error) {
	if name == "" {
		name = at.Name
	}

	var tiles []Tile
	for id, img := range at.Tiles {
		if id == 0 && at.EmptyTileZero {
			continue
		}
		tiles = append(tiles, Tile{
			ID:     id,
			Width:  at.TileWidth,
			Height: at.TileHeight,
			Source: fmt.Sprintf("%s_%d.png", name, id),
			Image:  img,
		})
	}

	return NewTileSet(Options{
		Name:       name,
		TileWidth:  at.TileWidth,
		TileHeight: at.TileHeight,
		TileCount:  len(tiles),
	}, tiles)
}

func readString(r io.Reader) (string, error) {
	var length WORD
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	chars := make([]byte, length)
	if _, err := io.ReadFull(r, chars); err != nil {
		return "", err
	}
	return string(chars), nil
}

// decompressZlib inflates ZLIB data.
func decompressZlib(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("input data is empty")
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("failed to copy decompressed data: %w", err)
	}
	return out.Bytes(), nil
}
