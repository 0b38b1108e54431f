// Package domain holds the releases API request and response shapes
package domain

import (
	"time"

	"appimagefinder/internal/core/appimage"
)

// Query selects one scan. GET reads it from the query string, POST from a JSON body
type Query struct {
	Start            string `json:"start" query:"start" validate:"required,timestr"`
	End              string `json:"end" query:"end" validate:"required,timestr"`
	Arch             string `json:"arch,omitempty" query:"arch" validate:"omitempty,oneof=x86_64 aarch64 all"`
	IncludeChecksums *bool  `json:"include_checksums,omitempty" query:"checksums"`
	Format           string `json:"format,omitempty" query:"format" validate:"omitempty,oneof=json csv"`
}

// Result is one finished scan
type Result struct {
	RunID    string             `json:"run_id"`
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	Arch     appimage.ArchMode  `json:"arch"`
	Cached   bool               `json:"cached"`
	Count    int                `json:"count"`
	Releases []appimage.Release `json:"releases"`
}
