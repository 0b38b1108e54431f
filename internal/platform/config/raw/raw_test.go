package raw

import (
	"testing"
)

func TestConfGet(t *testing.T) {
	t.Setenv("LOG_LEVEL", " warn ")
	t.Setenv("LOG_FORMAT", "")

	lc := New().Prefix("LOG_")
	tests := []struct {
		name string
		key  string
		def  string
		want string
	}{
		{name: "trimmed hit", key: "LEVEL", def: "info", want: "warn"},
		{name: "empty uses default", key: "FORMAT", def: "console", want: "console"},
		{name: "missing uses default", key: "MISSING", def: "x", want: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lc.Get(tt.key, tt.def); got != tt.want {
				t.Fatalf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfGetBool(t *testing.T) {
	lc := New().Prefix("LOG_")
	t.Setenv("LOG_T1", "true")
	t.Setenv("LOG_T2", "1")
	t.Setenv("LOG_T3", "YES")
	t.Setenv("LOG_F1", "false")
	t.Setenv("LOG_F2", "off")

	tests := []struct {
		key  string
		def  bool
		want bool
	}{
		{"T1", false, true},
		{"T2", false, true},
		{"T3", false, true},
		{"F1", true, false},
		{"F2", true, false},
		{"MISSING", true, true},
	}
	for _, tt := range tests {
		if got := lc.GetBool(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetBool(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestConfGetInt(t *testing.T) {
	lc := New().Prefix("LOG_")
	t.Setenv("LOG_OK", "42")
	t.Setenv("LOG_WS", "  7  ")
	t.Setenv("LOG_NONNUM", "12x")
	t.Setenv("LOG_NEG", "-5")

	tests := []struct {
		key  string
		def  int
		want int
	}{
		{"OK", 0, 42},
		{"WS", 1, 7},
		{"NONNUM", 9, 9},
		{"NEG", 3, 3},
		{"MISSING", 11, 11},
	}
	for _, tt := range tests {
		if got := lc.GetInt(tt.key, tt.def); got != tt.want {
			t.Fatalf("GetInt(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}
