package appimage

import pstrings "appimagefinder/internal/platform/strings"

// NewRelease builds the entry for one accepted asset. All derived fields are
// computed here and the value is not modified afterwards
func NewRelease(ev ReleaseInput, asset Asset, mode ArchMode) Release {
	return Release{
		Repo:         ev.Repo,
		ReleaseName:  ev.Name,
		TagName:      ev.TagName,
		PublishedAt:  ev.PublishedAt,
		AssetName:    asset.Name,
		DownloadURL:  asset.BrowserDownloadURL,
		Architecture: ResolveArchitecture(asset.Name, mode),
		PackageName:  PackageName(ev.Repo),
		Version:      ExtractVersion(pstrings.Deref(ev.TagName), asset.Name),
	}
}

// Classify runs one release through filter, rolling-build check and extraction.
// It returns nil when nothing survives
func Classify(ev ReleaseInput, assets []Asset, includeChecksums bool, mode ArchMode) []Release {
	accepted := FilterAssets(assets, includeChecksums, mode)
	if len(accepted) == 0 {
		return nil
	}
	if IsContinuous(pstrings.Deref(ev.Name), accepted) {
		return nil
	}
	out := make([]Release, 0, len(accepted))
	for _, a := range accepted {
		out = append(out, NewRelease(ev, a, mode))
	}
	return out
}
