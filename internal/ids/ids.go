// Package ids derives identifiers and storage paths from catalog record ids.
//
// Every function here is pure: downstream storage and IIIF services locate
// assets by recomputing these values, so output must stay byte-identical
// across runs.
package ids

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/buda-base/gnd-pilot/internal/utils"
)

// ErrDerivation marks a record whose identifiers or derived values could not be computed
var ErrDerivation = errors.New("derivation error")

const (
	// WorksRoot is the top-level directory of the storage layout
	WorksRoot = "Works"

	// InstanceMarker prefixes an instance id derived from its reproduction id
	InstanceMarker = "M"

	groupMarker = 'I'
)

// ValidateID checks that id is usable as the local name of a resource IRI:
// non-empty ASCII letters, digits, underscores and hyphens.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty identifier", ErrDerivation)
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return fmt.Errorf("%w: identifier %q contains %q", ErrDerivation, id, c)
		}
	}
	return nil
}

// ValidateURL checks that s is an absolute http(s) URL usable as an IRI
func ValidateURL(s string) error {
	if strings.ContainsAny(s, " <>\"{}|^`\\") {
		return fmt.Errorf("%w: URL %q contains characters not allowed in an IRI", ErrDerivation, s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %q: %w", ErrDerivation, s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: URL %q is not an absolute http(s) URL", ErrDerivation, s)
	}
	return nil
}

// ValidateLocalPath checks that a slash-separated path cell stays inside
// the directory it is joined to
func ValidateLocalPath(p string) error {
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return fmt.Errorf("%w: path %q is empty, absolute or leaves its root", ErrDerivation, p)
	}
	return nil
}

// AdminID returns the admin data id for a resource. It is the same string,
// placed in the admindata namespace by the graph assembler.
func AdminID(id string) string {
	return id
}

// ReproductionID strips the one-character type marker from an instance id
// (MW100 -> W100).
func ReproductionID(id string) string {
	if len(id) < 2 {
		return id
	}
	return id[1:]
}

// InstanceID is the inverse of ReproductionID
func InstanceID(reproductionID string) string {
	return InstanceMarker + reproductionID
}

// Bucket returns the two-character storage shard for a work id: the first
// two hex characters of the MD5 of the id.
func Bucket(workID string) string {
	return utils.CalculateStringMD5(workID)[:2]
}

// GroupSuffix normalizes an image group id for use in a folder name.
// I0886 -> 0886, anything else is returned unchanged.
func GroupSuffix(groupID string) string {
	if len(groupID) != 5 || groupID[0] != groupMarker {
		return groupID
	}
	for _, c := range groupID[1:] {
		if c < '0' || c > '9' {
			return groupID
		}
	}
	return groupID[1:]
}

// TitleID returns the id of the n-th title (1-based) of an instance
func TitleID(instanceID string, n int) string {
	return fmt.Sprintf("TT%s_%03d", instanceID, n)
}

// EventID returns the id of the copy event of an instance
func EventID(instanceID string) string {
	return "EV" + instanceID + "_CE"
}

// ContentLocationID returns the id of the content location of a sub-part
func ContentLocationID(instanceID string) string {
	return "CL" + instanceID
}

// WorkDir returns Works/{bucket}/{workID}
func WorkDir(workID string) string {
	return path.Join(WorksRoot, Bucket(workID), workID)
}

// ImageGroupDir returns Works/{bucket}/{workID}/images/{workID}-{suffix}
func ImageGroupDir(workID, groupID string) string {
	return path.Join(WorkDir(workID), "images", workID+"-"+GroupSuffix(groupID))
}

// SourcesDir returns Works/{bucket}/{workID}/sources
func SourcesDir(workID string) string {
	return path.Join(WorkDir(workID), "sources")
}

// VolumeListPath returns Works/{bucket}/{workID}.json
func VolumeListPath(workID string) string {
	return path.Join(WorksRoot, Bucket(workID), workID+".json")
}

// ParsePageNumber parses a positive page number
func ParsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: page number %q is not numeric", ErrDerivation, s)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: page number %d must be positive", ErrDerivation, n)
	}
	return n, nil
}

// ParseCount parses a non-negative count. An empty string is zero.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: count %q is not a non-negative integer", ErrDerivation, s)
	}
	return n, nil
}
