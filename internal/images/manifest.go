package images

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// ManifestName is the file name of the per-volume dimensions manifest
const ManifestName = "dimensions.json"

// Entry is one image of a dimensions manifest
type Entry struct {
	Filename string   `json:"filename"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Size     int64    `json:"size,omitempty"`
	PILMode  string   `json:"pilmode,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// VolumeImage is one image of a volume list
type VolumeImage struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

// VolumeEntry is one volume of a work's volume list
type VolumeEntry struct {
	ID     string        `json:"id"`
	Folder string        `json:"folder"`
	Images []VolumeImage `json:"images"`
}

// WriteGzipJSON writes v as gzip-compressed JSON to path, creating parent
// directories. The gzip header carries no timestamp so output is stable.
func WriteGzipJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(path), err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadGzipJSON decodes a file written by WriteGzipJSON into v
func ReadGzipJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return json.Unmarshal(data, v)
}
