package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/git-pkgs/blueprints"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestConflictingModes(t *testing.T) {
	_, err := execute(t, "-C", t.TempDir(), "--reset", "--compare-only")
	if !errors.Is(err, blueprints.ErrConflictingModes) {
		t.Errorf("expected ErrConflictingModes, got %v", err)
	}
}

func TestUpdateRejectsArgs(t *testing.T) {
	if _, err := execute(t, "-C", t.TempDir(), "ember-cli"); err == nil {
		t.Error("expected an error for a positional argument")
	}
}

func TestSaveRequiresFrom(t *testing.T) {
	_, err := execute(t, "save", "-C", t.TempDir())
	if !errors.Is(err, blueprints.ErrFromRequired) {
		t.Errorf("expected ErrFromRequired, got %v", err)
	}
}

func TestSaveLocalBlueprint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name":"my-app"}`)
	writeFile(t, filepath.Join(dir, "bp", "package.json"), `{"name":"my-blueprint","version":"1.2.0"}`)

	out, err := execute(t, "save", "-C", dir, "--blueprint", "./bp", "--from", "1.2.0", "--", "--no-welcome")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.Contains(out, "saved my-blueprint@1.2.0") {
		t.Errorf("output = %q", out)
	}

	doc, err := blueprints.LoadState(filepath.Join(dir, "config", "blueprint-update.json"))
	if err != nil {
		t.Fatal(err)
	}
	b := doc.Find("my-blueprint", "my-blueprint")
	if b == nil {
		t.Fatal("record not saved")
	}
	if b.Location != "./bp" || b.Version != "1.2.0" || !b.IsBaseBlueprint {
		t.Errorf("record = %+v", b)
	}
	if !slices.Equal(b.Options, []string{"--no-welcome"}) {
		t.Errorf("options = %v", b.Options)
	}
}

func TestCreateCustomDiffIsAccepted(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "-C", dir, "--create-custom-diff", "--reset", "--stats-only")
	if !errors.Is(err, blueprints.ErrConflictingModes) {
		t.Errorf("expected the deprecated flag to parse and modes to conflict, got %v", err)
	}
}
