package blueprint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRefRegistry(t *testing.T) {
	tests := []struct {
		ref       string
		wantName  string
		wantRange string
	}{
		{"ember-cli", "ember-cli", ""},
		{"ember-cli@^5.0.0", "ember-cli", "^5.0.0"},
		{"@glimmer/blueprint", "@glimmer/blueprint", ""},
		{"@glimmer/blueprint@beta", "@glimmer/blueprint", "beta"},
		{"pkg:npm/ember-cli@5.4.0", "ember-cli", "5.4.0"},
		{"pkg:npm/%40glimmer/blueprint", "@glimmer/blueprint", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ref, err := ParseRef("/project", tt.ref)
			if err != nil {
				t.Fatalf("ParseRef failed: %v", err)
			}
			if ref.Kind != RefRegistry {
				t.Errorf("Kind = %v, want RefRegistry", ref.Kind)
			}
			if ref.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", ref.Name, tt.wantName)
			}
			if ref.Range != tt.wantRange {
				t.Errorf("Range = %q, want %q", ref.Range, tt.wantRange)
			}
		})
	}
}

func TestParseRefRepositoryURL(t *testing.T) {
	ref, err := ParseRef("/project", "pkg:npm/ember-cli@5.4.0?repository_url=https://npm.example.com")
	if err != nil {
		t.Fatalf("ParseRef failed: %v", err)
	}
	if ref.Registry != "https://npm.example.com" {
		t.Errorf("Registry = %q", ref.Registry)
	}
	if ref.Name != "ember-cli" || ref.Range != "5.4.0" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestParseRefURL(t *testing.T) {
	ref, err := ParseRef("/project", "https://example.com/my-blueprint-1.0.0.tgz")
	if err != nil {
		t.Fatalf("ParseRef failed: %v", err)
	}
	if ref.Kind != RefURL || ref.URL != "https://example.com/my-blueprint-1.0.0.tgz" {
		t.Errorf("unexpected ref: %+v", ref)
	}
	if ref.Location != ref.URL {
		t.Errorf("Location = %q, want the URL", ref.Location)
	}
}

func TestParseRefPath(t *testing.T) {
	cwd := t.TempDir()
	dir := filepath.Join(cwd, "blueprints", "mine")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"my-blueprint","version":"1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, in := range []string{"./blueprints/mine", "file:./blueprints/mine", dir} {
		t.Run(in, func(t *testing.T) {
			ref, err := ParseRef(cwd, in)
			if err != nil {
				t.Fatalf("ParseRef failed: %v", err)
			}
			if ref.Kind != RefPath {
				t.Errorf("Kind = %v, want RefPath", ref.Kind)
			}
			if ref.Name != "my-blueprint" {
				t.Errorf("Name = %q", ref.Name)
			}
			if filepath.Clean(ref.URL) != dir {
				t.Errorf("URL = %q, want %q", ref.URL, dir)
			}
		})
	}
}

func TestParseRefErrors(t *testing.T) {
	tests := []string{
		"",
		"pkg:cargo/serde",
		"./does-not-exist",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseRef(t.TempDir(), in); err == nil {
				t.Errorf("ParseRef(%q) expected error", in)
			}
		})
	}
}
