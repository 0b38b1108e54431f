package appimage

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// ContinuousKeywords mark rolling builds when found anywhere in a release name.
// "continous" is a misspelling seen in the wild
var ContinuousKeywords = []string{"continuous", "continous", "latest", "nightly", "daily", "current"}

// MinDistinctVersions is how many distinct loose version tokens across one
// release's assets mark it as rolling
const MinDistinctVersions = 3

var looseVersionRe = regexp.MustCompile(`[-_]?v?(\d+\.\d+(?:\.\d+)*)`)

// casers are stateful, so each goroutine borrows its own
var foldPool = sync.Pool{New: func() any { return cases.Fold() }}

func fold(s string) string {
	c := foldPool.Get().(cases.Caser)
	out := c.String(s)
	c.Reset()
	foldPool.Put(c)
	return out
}

// IsContinuous reports whether a release is a rolling build, either by keyword in
// its name or by its accepted assets carrying several different version tokens
func IsContinuous(releaseName string, accepted []Asset) bool {
	name := fold(releaseName)
	for _, kw := range ContinuousKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}

	seen := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		if m := looseVersionRe.FindStringSubmatch(a.Name); m != nil {
			seen[m[1]] = struct{}{}
		}
	}
	return len(seen) >= MinDistinctVersions
}
