// Package appimage classifies release assets and derives AppImage release entries.
// Everything here is a pure function over plain values; the pipeline passes the
// arch mode and checksum flag explicitly into each stage
package appimage

import (
	"encoding/json"
	"strings"

	perr "appimagefinder/internal/platform/errors"
)

// BinarySuffix marks a primary AppImage binary. Matching is case-sensitive
const BinarySuffix = ".AppImage"

// Asset is a file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Architecture is the CPU family inferred from a filename; the zero value means unknown
type Architecture string

const (
	// ArchUnknown is used when no architecture token is present
	ArchUnknown Architecture = ""
	// ArchX86_64 covers the x86 token family
	ArchX86_64 Architecture = "x86_64"
	// ArchAarch64 covers the arm64 token family
	ArchAarch64 Architecture = "aarch64"
)

// MarshalJSON renders an unknown architecture as null
func (a Architecture) MarshalJSON() ([]byte, error) {
	if a == ArchUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts null as unknown
func (a *Architecture) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = ArchUnknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = Architecture(s)
	return nil
}

// ArchMode is the architecture filter applied to binaries
type ArchMode string

const (
	// ModeAll keeps every binary
	ModeAll ArchMode = "all"
	// ModeX86_64 keeps x86_64 and untagged binaries
	ModeX86_64 ArchMode = "x86_64"
	// ModeAarch64 keeps only binaries tagged aarch64
	ModeAarch64 ArchMode = "aarch64"
)

// Modes lists accepted mode spellings, in flag help order
var Modes = []string{string(ModeX86_64), string(ModeAarch64), string(ModeAll)}

// ParseArchMode maps a case-insensitive spelling onto an ArchMode
func ParseArchMode(s string) (ArchMode, error) {
	switch ArchMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAll:
		return ModeAll, nil
	case ModeX86_64:
		return ModeX86_64, nil
	case ModeAarch64:
		return ModeAarch64, nil
	default:
		return "", perr.WithField(perr.InvalidArgf("arch %q: want one of %s", s, strings.Join(Modes, ", ")), "arch")
	}
}

// ReleaseInput is the subset of a release event the extractor needs
type ReleaseInput struct {
	Repo        string
	Name        *string
	TagName     *string
	PublishedAt string
}

// Release is one accepted asset of one release, with every derived field filled in
type Release struct {
	Repo         string       `json:"repo"`
	ReleaseName  *string      `json:"release_name"`
	TagName      *string      `json:"tag_name"`
	PublishedAt  string       `json:"published_at"`
	AssetName    string       `json:"appimage_name"`
	DownloadURL  string       `json:"download_url"`
	Architecture Architecture `json:"architecture"`
	PackageName  string       `json:"package_name"`
	Version      string       `json:"version"`
}
