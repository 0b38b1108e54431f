// Package strings provides small string and slice helpers
package strings

import std "strings"

// IfEmpty returns def if in is empty, otherwise returns in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// Ptr returns a pointer to s, or nil if s is empty
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" if ps is nil, else *ps
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// FirstNonBlank returns the first value with non whitespace content, trimmed
func FirstNonBlank(vals ...string) string {
	for _, v := range vals {
		if t := std.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
