// Package output renders release entries as JSON or CSV files
package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"appimagefinder/internal/core/appimage"
	perr "appimagefinder/internal/platform/errors"
	"appimagefinder/internal/platform/logger"
	pstrings "appimagefinder/internal/platform/strings"
)

// Format is an output encoding
type Format string

const (
	// JSON is a pretty-printed array
	JSON Format = "json"
	// CSV has a header row followed by one row per entry
	CSV Format = "csv"
)

// Formats lists accepted spellings
var Formats = []string{string(JSON), string(CSV)}

// UnknownArch names the group of entries without an architecture
const UnknownArch = "unknown"

// Header is the CSV column order, matching the JSON field names
var Header = []string{
	"repo", "release_name", "tag_name", "published_at", "appimage_name",
	"download_url", "architecture", "package_name", "version",
}

// ParseFormat maps a case-insensitive spelling onto a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case JSON:
		return JSON, nil
	case CSV:
		return CSV, nil
	default:
		return "", perr.WithField(perr.InvalidArgf("format %q: want json or csv", s), "format")
	}
}

// Ext returns the file extension for f
func (f Format) Ext() string { return string(f) }

// ContentType returns the media type for f
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Sort orders releases by repo then architecture, in place
func Sort(rs []appimage.Release) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Repo != rs[j].Repo {
			return rs[i].Repo < rs[j].Repo
		}
		return rs[i].Architecture < rs[j].Architecture
	})
}

// Encode writes releases to w in format f
func Encode(w io.Writer, f Format, rs []appimage.Release) error {
	if rs == nil {
		rs = []appimage.Release{}
	}
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rs); err != nil {
			return perr.Wrap(err, perr.ErrorCodeIO, "output: encode json")
		}
		return nil
	case CSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(Header); err != nil {
			return perr.Wrap(err, perr.ErrorCodeIO, "output: write csv header")
		}
		for _, r := range rs {
			if err := cw.Write(row(r)); err != nil {
				return perr.Wrap(err, perr.ErrorCodeIO, "output: write csv row")
			}
		}
		cw.Flush()
		return perr.WrapIf(cw.Error(), perr.ErrorCodeIO, "output: flush csv")
	default:
		return perr.InvalidArgf("output: unsupported format %q", f)
	}
}

func row(r appimage.Release) []string {
	return []string{
		r.Repo, pstrings.Deref(r.ReleaseName), pstrings.Deref(r.TagName), r.PublishedAt, r.AssetName,
		r.DownloadURL, string(r.Architecture), r.PackageName, r.Version,
	}
}

// Group splits releases into files. Under mode all each architecture gets its own
// group keyed by arch name (UnknownArch when absent); otherwise one group keyed by mode
func Group(mode appimage.ArchMode, rs []appimage.Release) map[string][]appimage.Release {
	groups := make(map[string][]appimage.Release)
	if mode != appimage.ModeAll {
		groups[string(mode)] = rs
		return groups
	}
	for _, r := range rs {
		k := string(r.Architecture)
		if k == "" {
			k = UnknownArch
		}
		groups[k] = append(groups[k], r)
	}
	return groups
}

// FileName returns <prefix>-<group>.<ext>
func FileName(prefix, group string, f Format) string {
	return prefix + "-" + group + "." + f.Ext()
}

// Write sorts releases, groups them per mode and writes one file per group into
// dir. It returns the written paths in name order. Nothing is written for an
// empty input
func Write(dir, prefix string, f Format, mode appimage.ArchMode, rs []appimage.Release) ([]string, error) {
	if len(rs) == 0 {
		return []string{}, nil
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "output: create %s", dir)
	}

	sorted := append([]appimage.Release(nil), rs...)
	Sort(sorted)

	groups := Group(mode, sorted)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	log := logger.Named("output")
	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		p := filepath.Join(dir, FileName(prefix, k, f))
		if err := writeFile(p, f, groups[k]); err != nil {
			return paths, err
		}
		log.Info().Str("path", p).Int("entries", len(groups[k])).Msg("output: wrote file")
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, f Format, rs []appimage.Release) (err error) {
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "output: create %s", tmp)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()
	if err = Encode(out, f, rs); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "output: close %s", tmp)
	}
	if err = os.Rename(tmp, path); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "output: rename %s", tmp)
	}
	return nil
}
