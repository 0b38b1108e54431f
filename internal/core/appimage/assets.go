package appimage

import "strings"

// ChecksumSuffixes are the companion file endings kept alongside binaries
var ChecksumSuffixes = []string{".sha256sum", ".md5", ".sha256", ".sha512", ".md5sum"}

// FilterAssets returns the binaries selected by mode plus, when includeChecksums is
// set, checksum files paired with a sibling binary. Input order is preserved and
// assets is not modified
func FilterAssets(assets []Asset, includeChecksums bool, mode ArchMode) []Asset {
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		switch {
		case strings.HasSuffix(a.Name, BinarySuffix):
			if keepBinary(InferArchitecture(a.Name), mode) {
				out = append(out, a)
			}
		case includeChecksums && isChecksum(a.Name):
			if hasPairedBinary(assets, checksumBase(a.Name)) {
				out = append(out, a)
			}
		}
	}
	return out
}

func keepBinary(arch Architecture, mode ArchMode) bool {
	switch mode {
	case ModeAll:
		return true
	case ModeX86_64:
		return arch == ArchX86_64 || arch == ArchUnknown
	case ModeAarch64:
		return arch == ArchAarch64
	default:
		return false
	}
}

func isChecksum(name string) bool {
	for _, suf := range ChecksumSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// checksumBase is the name up to its first dot
func checksumBase(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return base
}

func hasPairedBinary(assets []Asset, base string) bool {
	for _, a := range assets {
		if strings.HasPrefix(a.Name, base) && strings.HasSuffix(a.Name, BinarySuffix) {
			return true
		}
	}
	return false
}
