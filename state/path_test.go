package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativeFilePath(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		statePath string
		want      string
	}{
		{"no manifest", "", "", "config/blueprint-update.json"},
		{"manifest without config", `{"name":"my-app"}`, "", "config/blueprint-update.json"},
		{"configured state path", `{"name":"my-app"}`, ".blueprints/state.json", ".blueprints/state.json"},
		{"manifest config path", `{"blueprint-update":{"configPath":"tests/dummy/config"}}`, "other.json", "tests/dummy/config/blueprint-update.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.manifest != "" {
				if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(tt.manifest), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := RelativeFilePath(dir, tt.statePath)
			if err != nil {
				t.Fatalf("RelativeFilePath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("RelativeFilePath = %q, want %q", got, tt.want)
			}

			abs, err := FilePath(dir, tt.statePath)
			if err != nil {
				t.Fatalf("FilePath failed: %v", err)
			}
			if abs != filepath.Join(dir, filepath.FromSlash(tt.want)) {
				t.Errorf("FilePath = %q", abs)
			}
		})
	}
}

func TestRelativeFilePathAbsoluteStatePath(t *testing.T) {
	dir := t.TempDir()
	got, err := RelativeFilePath(dir, filepath.Join(dir, "state", "bp.json"))
	if err != nil {
		t.Fatalf("RelativeFilePath failed: %v", err)
	}
	if got != "state/bp.json" {
		t.Errorf("RelativeFilePath = %q", got)
	}
}
