package fetch

import (
	"errors"
	"testing"

	"github.com/git-pkgs/blueprints/client"
	"github.com/git-pkgs/blueprints/internal/core"
)

type stubRegistry struct {
	download func(name, version string) string
}

func (s *stubRegistry) URLs() client.URLBuilder {
	return &client.BaseURLs{DownloadFn: s.download}
}

func TestTarball(t *testing.T) {
	reg := &stubRegistry{download: func(name, version string) string {
		return "https://npm.example.com/" + name + "/-/" + name + "-" + version + ".tgz"
	}}

	tests := []struct {
		name         string
		version      core.Version
		wantURL      string
		wantFilename string
	}{
		{
			name:         "metadata tarball",
			version:      core.Version{Number: "1.0.0", Tarball: "https://cdn.example.com/my-blueprint-1.0.0.tgz?sig=x", Integrity: "sha512-abc"},
			wantURL:      "https://cdn.example.com/my-blueprint-1.0.0.tgz?sig=x",
			wantFilename: "my-blueprint-1.0.0.tgz",
		},
		{
			name:         "registry layout",
			version:      core.Version{Number: "2.0.0", Integrity: "sha1-deadbeef"},
			wantURL:      "https://npm.example.com/my-blueprint/-/my-blueprint-2.0.0.tgz",
			wantFilename: "my-blueprint-2.0.0.tgz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := NewResolver(reg).Tarball("my-blueprint", &tt.version)
			if err != nil {
				t.Fatalf("Tarball failed: %v", err)
			}
			if info.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", info.URL, tt.wantURL)
			}
			if info.Filename != tt.wantFilename {
				t.Errorf("Filename = %q, want %q", info.Filename, tt.wantFilename)
			}
			if info.Integrity != tt.version.Integrity {
				t.Errorf("Integrity = %q, want %q", info.Integrity, tt.version.Integrity)
			}
		})
	}
}

func TestTarballWithoutURL(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
	}{
		{"no registry", nil},
		{"registry without layout", &stubRegistry{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.reg).Tarball("my-blueprint", &core.Version{Number: "1.0.0"})
			if !errors.Is(err, ErrNoDownloadURL) {
				t.Errorf("expected ErrNoDownloadURL, got %v", err)
			}
		})
	}
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://registry.npmjs.org/ember-cli/-/ember-cli-5.4.0.tgz", "ember-cli-5.4.0.tgz"},
		{"https://example.com/blueprint.tgz?token=abc", "blueprint.tgz"},
		{"simple.tgz", "simple.tgz"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := filenameFromURL(tt.url)
			if got != tt.expected {
				t.Errorf("filenameFromURL(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
