package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/git-pkgs/blueprints/blueprint"
)

func TestDiskDefaults(t *testing.T) {
	t.Run("configured wins", func(t *testing.T) {
		d := &DiskDefaults{Configured: &Default{PackageName: "my-blueprint", CodemodsURL: "https://example.com/c.json"}}
		def, err := d.LoadDefault(t.TempDir())
		if err != nil {
			t.Fatalf("LoadDefault failed: %v", err)
		}
		if def.Name != "my-blueprint" || def.CodemodsURL != "https://example.com/c.json" {
			t.Errorf("unexpected default: %+v", def)
		}
	})

	t.Run("base record", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultPath)
		if err := Save(path, &blueprint.Blueprint{PackageName: "@glimmer/blueprint", Name: "@glimmer/blueprint", IsBaseBlueprint: true}); err != nil {
			t.Fatal(err)
		}
		def, err := (&DiskDefaults{}).LoadDefault(dir)
		if err != nil {
			t.Fatalf("LoadDefault failed: %v", err)
		}
		if def.PackageName != "@glimmer/blueprint" {
			t.Errorf("PackageName = %q", def.PackageName)
		}
	})

	t.Run("base record keeps location", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultPath)
		if err := Save(path, &blueprint.Blueprint{PackageName: "my-blueprint", Name: "my-blueprint", Location: "./bp", IsBaseBlueprint: true}); err != nil {
			t.Fatal(err)
		}
		def, err := (&DiskDefaults{}).LoadDefault(dir)
		if err != nil {
			t.Fatalf("LoadDefault failed: %v", err)
		}
		if def.PackageName != "my-blueprint" || def.Location != "./bp" {
			t.Errorf("unexpected default: %+v", def)
		}
	})

	t.Run("configured location", func(t *testing.T) {
		d := &DiskDefaults{Configured: &Default{Location: "https://example.com/bp.tgz"}}
		def, err := d.LoadDefault(t.TempDir())
		if err != nil {
			t.Fatalf("LoadDefault failed: %v", err)
		}
		if def.Location != "https://example.com/bp.tgz" {
			t.Errorf("unexpected default: %+v", def)
		}
	})

	t.Run("ember addon manifest", func(t *testing.T) {
		dir := t.TempDir()
		manifest := `{"keywords":["ember-addon"],"devDependencies":{"ember-cli":"~5.4.0"}}`
		if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
		def, err := (&DiskDefaults{}).LoadDefault(dir)
		if err != nil {
			t.Fatalf("LoadDefault failed: %v", err)
		}
		if def.PackageName != "ember-cli" || def.Name != "addon" {
			t.Errorf("unexpected default: %+v", def)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := (&DiskDefaults{}).LoadDefault(t.TempDir())
		if !errors.Is(err, ErrNoDefaultBlueprint) {
			t.Errorf("expected ErrNoDefaultBlueprint, got %v", err)
		}
	})
}
