package appimage

import (
	"time"

	ptime "appimagefinder/internal/platform/time"
)

// Sentinel ranks unparseable publish times below any archived release
var Sentinel = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// Key identifies one slot after deduplication
type Key struct {
	Repo         string
	Architecture Architecture
}

// KeyOf returns the dedup key of r
func KeyOf(r Release) Key { return Key{Repo: r.Repo, Architecture: r.Architecture} }

// PublishedTime parses r.PublishedAt, falling back to Sentinel
func PublishedTime(r Release) time.Time {
	t, err := ptime.Parse(r.PublishedAt)
	if err != nil {
		return Sentinel
	}
	return t
}

// KeepLatest returns one release per (repo, architecture), the most recently
// published one. A later entry replaces a stored one only when strictly newer,
// so ties keep the first seen. Output order is unspecified
func KeepLatest(rs []Release) []Release {
	type slot struct {
		r  Release
		at time.Time
	}
	latest := make(map[Key]slot, len(rs))
	for _, r := range rs {
		k := KeyOf(r)
		at := PublishedTime(r)
		if cur, ok := latest[k]; ok && !at.After(cur.at) {
			continue
		}
		latest[k] = slot{r: r, at: at}
	}
	out := make([]Release, 0, len(latest))
	for _, s := range latest {
		out = append(out, s.r)
	}
	return out
}
