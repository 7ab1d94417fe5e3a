package images

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/buda-base/gnd-pilot/internal/config"
)

// Manifest error codes
const (
	CodeTooLarge      = "toolarge"
	CodeTIFFNotGroup4 = "tiffnotgroup4"
	CodeNonBinaryTIFF = "nonbinarytif"
	CodeExtMismatch   = "extformatmismatch"
	CodeInvalidFormat = "invalidformat"
)

// Check returns the policy violations of an image named name
func Check(info Info, name string, policy config.FormatPolicy) []string {
	var codes []string
	if info.Size > policy.MaxBytes {
		codes = append(codes, CodeTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch info.Format {
	case FormatTIFF:
		if info.Compression != policy.TIFFCompression {
			codes = append(codes, CodeTIFFNotGroup4)
		}
		if info.Mode != "1" {
			codes = append(codes, CodeNonBinaryTIFF)
		}
		if !slices.Contains(policy.TIFFExtensions, ext) {
			codes = append(codes, CodeExtMismatch)
		}
	case FormatJPEG:
		if !slices.Contains(policy.JPEGExtensions, ext) {
			codes = append(codes, CodeExtMismatch)
		}
	default:
		codes = append(codes, CodeInvalidFormat)
	}
	return codes
}

// NewEntry builds the manifest entry of an image stored as filename. The
// format rules apply to the source file.
func NewEntry(filename, source string, info Info, policy config.FormatPolicy) Entry {
	entry := Entry{
		Filename: filename,
		Width:    info.Width,
		Height:   info.Height,
		Errors:   Check(info, source, policy),
	}
	if info.Size > policy.ReportSizeBytes {
		entry.Size = info.Size
	}
	if info.Format == FormatTIFF && info.Mode != "1" {
		entry.PILMode = info.Mode
	}
	return entry
}

func isJPEGName(name string, policy config.FormatPolicy) bool {
	return slices.Contains(policy.JPEGExtensions, strings.ToLower(filepath.Ext(name)))
}
