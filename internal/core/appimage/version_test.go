package appimage

import "testing"

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		tag, file string
		want      string
	}{
		{"v1.2.3", "App.AppImage", "1.2.3.0"},
		{"v1.2.3.4", "App.AppImage", "1.2.3.4"},
		{"release", "App-4.5.6-x86_64.AppImage", "4.5.6.0"},
		{"v9.8.7", "App-1.2.3.AppImage", "9.8.7.0"},
		{"v1.2", "App-1.2.AppImage", DefaultVersion},
		{"", "", DefaultVersion},
		{"build-10.20.30.40.50", "", "10.20.30.40"},
	}
	for _, tt := range tests {
		if got := ExtractVersion(tt.tag, tt.file); got != tt.want {
			t.Fatalf("ExtractVersion(%q, %q) = %q, want %q", tt.tag, tt.file, got, tt.want)
		}
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Foo/Bar", "io.github.foo.bar"},
		{"owner/Repo.Name", "io.github.owner.repo.name"},
		{"a/b/c", "io.github.a.b/c"},
		{"solo", "io.github.solo."},
	}
	for _, tt := range tests {
		if got := PackageName(tt.in); got != tt.want {
			t.Fatalf("PackageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	// stable under re-derivation from the same repo
	if PackageName("Foo/Bar") != PackageName("foo/BAR") {
		t.Fatalf("package name should be case independent")
	}
}
