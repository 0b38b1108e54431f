package appimage

import "regexp"

// archFamilies is checked in order; the first family that matches wins
var archFamilies = []struct {
	arch Architecture
	re   *regexp.Regexp
}{
	{ArchX86_64, regexp.MustCompile(`x86_64|x86-64|amd64|64bit|x64|x86`)},
	{ArchAarch64, regexp.MustCompile(`(?i:aarch64|arm64)`)},
}

// InferArchitecture returns the architecture named by a filename token, or ArchUnknown
func InferArchitecture(name string) Architecture {
	for _, f := range archFamilies {
		if f.re.MatchString(name) {
			return f.arch
		}
	}
	return ArchUnknown
}

// ResolveArchitecture infers the architecture and applies the x86_64 default for
// untagged names under the all and x86_64 modes
func ResolveArchitecture(name string, mode ArchMode) Architecture {
	a := InferArchitecture(name)
	if a == ArchUnknown && (mode == ModeAll || mode == ModeX86_64) {
		return ArchX86_64
	}
	return a
}
