// Package images lays out page images under the storage tree, transcodes
// them through an external codec and writes the per-volume manifests.
package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"image/jpeg"
	"io"
	"os"

	"golang.org/x/image/tiff"
)

// Format is the container format detected from the file header
type Format string

const (
	FormatUnknown Format = ""
	FormatTIFF    Format = "TIFF"
	FormatJPEG    Format = "JPEG"
)

// Info describes a page image as found on disk
type Info struct {
	Format      Format
	Width       int
	Height      int
	Size        int64
	Compression string // TIFF only: none, group3, group4, lzw, ...
	Mode        string // pixel mode: 1, L, P, RGB, RGBA, CMYK, ...
}

// ErrCorrupt is returned when a file has a known header but unreadable content
var ErrCorrupt = errors.New("corrupt image")

// TIFF tags read from the first IFD
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagSamplesPerPixel = 277
)

var compressionNames = map[uint32]string{
	1:     "none",
	2:     "ccitt_rle",
	3:     "group3",
	4:     "group4",
	5:     "lzw",
	6:     "ojpeg",
	7:     "jpeg",
	8:     "deflate",
	32773: "packbits",
	32946: "deflate",
}

// Inspect reads the header of the image at path. Files that are neither TIFF
// nor JPEG are returned with FormatUnknown and no error.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("failed to stat image: %w", err)
	}
	info := Info{Size: st.Size()}

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return info, nil
	}

	switch {
	case bytes.Equal(magic, []byte("II*\x00")), bytes.Equal(magic, []byte("MM\x00*")):
		info.Format = FormatTIFF
		return inspectTIFF(f, info)
	case magic[0] == 0xFF && magic[1] == 0xD8 && magic[2] == 0xFF:
		info.Format = FormatJPEG
		return inspectJPEG(f, info)
	default:
		return info, nil
	}
}

func inspectJPEG(f *os.File, info Info) (Info, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info, err
	}
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	info.Width, info.Height = cfg.Width, cfg.Height
	switch cfg.ColorModel {
	case color.GrayModel:
		info.Mode = "L"
	case color.CMYKModel:
		info.Mode = "CMYK"
	default:
		info.Mode = "RGB"
	}
	return info, nil
}

func inspectTIFF(f *os.File, info Info) (Info, error) {
	tags, err := readIFD(f)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	compression := tagValue(tags, tagCompression, 1)
	if name, ok := compressionNames[compression]; ok {
		info.Compression = name
	} else {
		info.Compression = fmt.Sprintf("unknown(%d)", compression)
	}
	info.Mode = tiffMode(tagValue(tags, tagPhotometric, 0), tagValue(tags, tagBitsPerSample, 1), tagValue(tags, tagSamplesPerPixel, 1))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info, err
	}
	if cfg, err := tiff.DecodeConfig(f); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
		return info, nil
	}

	// some bilevel layouts are rejected by the decoder, the IFD still has the size
	info.Width = int(tagValue(tags, tagImageWidth, 0))
	info.Height = int(tagValue(tags, tagImageLength, 0))
	if info.Width == 0 || info.Height == 0 {
		return info, fmt.Errorf("%w: missing image dimensions", ErrCorrupt)
	}
	return info, nil
}

func tiffMode(photometric, bits, samples uint32) string {
	switch photometric {
	case 3:
		return "P"
	case 5:
		return "CMYK"
	}
	switch samples {
	case 1:
		switch bits {
		case 1:
			return "1"
		case 8:
			return "L"
		case 16:
			return "I;16"
		}
	case 2:
		return "LA"
	case 3:
		return "RGB"
	case 4:
		return "RGBA"
	}
	return fmt.Sprintf("%dx%d", samples, bits)
}

func tagValue(tags map[uint16]uint32, tag uint16, def uint32) uint32 {
	if v, ok := tags[tag]; ok {
		return v
	}
	return def
}

// readIFD returns the first value of every SHORT or LONG entry of the first
// image file directory
func readIFD(r io.ReaderAt) (map[uint16]uint32, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("short header: %w", err)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if header[0] == 'M' {
		order = binary.BigEndian
	}
	offset := int64(order.Uint32(header[4:]))

	countBuf := make([]byte, 2)
	if _, err := r.ReadAt(countBuf, offset); err != nil {
		return nil, fmt.Errorf("unreadable directory at %d: %w", offset, err)
	}
	count := int(order.Uint16(countBuf))
	entries := make([]byte, count*12)
	if _, err := r.ReadAt(entries, offset+2); err != nil {
		return nil, fmt.Errorf("truncated directory: %w", err)
	}

	tags := make(map[uint16]uint32, count)
	for i := 0; i < count; i++ {
		e := entries[i*12 : (i+1)*12]
		tag := order.Uint16(e[0:])
		typ := order.Uint16(e[2:])
		n := order.Uint32(e[4:])
		if n == 0 {
			continue
		}

		var size uint32
		switch typ {
		case 3: // SHORT
			size = 2
		case 4: // LONG
			size = 4
		default:
			continue
		}

		raw := e[8:12]
		if n*size > 4 {
			raw = make([]byte, size)
			if _, err := r.ReadAt(raw, int64(order.Uint32(e[8:]))); err != nil {
				return nil, fmt.Errorf("unreadable value of tag %d: %w", tag, err)
			}
		}
		if size == 2 {
			tags[tag] = uint32(order.Uint16(raw))
		} else {
			tags[tag] = order.Uint32(raw)
		}
	}
	return tags, nil
}
