package appimage

import (
	"regexp"
	"strings"
)

// DefaultVersion is used when neither the tag nor the filename carries a version
const DefaultVersion = "1.0.0.0"

var strictVersionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)(?:\.(\d+))?`)

// ExtractVersion returns the first N.N.N[.N] found in tag, then filename, padded to
// four groups with "0"
func ExtractVersion(tag, filename string) string {
	for _, s := range []string{tag, filename} {
		m := strictVersionRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		parts := m[1:5]
		if parts[3] == "" {
			parts[3] = "0"
		}
		return strings.Join(parts, ".")
	}
	return DefaultVersion
}

// PackageName derives the reverse-DNS id io.github.<owner>.<repo> from owner/repo
func PackageName(repo string) string {
	owner, name, _ := strings.Cut(strings.ToLower(repo), "/")
	return "io.github." + owner + "." + name
}
