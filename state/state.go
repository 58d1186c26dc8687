// Package state reads and writes the file that records which blueprints are
// applied to a project and at which version.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/git-pkgs/blueprints/blueprint"
)

const SchemaVersion = "1.0.0"

// Document is the persisted set of applied blueprints.
type Document struct {
	SchemaVersion string                 `json:"schemaVersion,omitempty"`
	Blueprints    []*blueprint.Blueprint `json:"blueprints"`
}

// CorruptStateError reports a state file that exists but cannot be used.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// Load reads the document at path. A missing file yields an empty document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Document{SchemaVersion: SchemaVersion, Blueprints: []*blueprint.Blueprint{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptStateError{Path: path, Err: err}
	}

	seen := make(map[blueprint.Identity]bool, len(doc.Blueprints))
	for i, b := range doc.Blueprints {
		if b == nil || b.PackageName == "" {
			return nil, &CorruptStateError{Path: path, Err: fmt.Errorf("blueprint %d has no packageName", i)}
		}
		b.Normalize()
		if seen[b.Identity()] {
			return nil, &CorruptStateError{Path: path, Err: fmt.Errorf("duplicate blueprint %s", b.Identity())}
		}
		seen[b.Identity()] = true
	}
	if doc.Blueprints == nil {
		doc.Blueprints = []*blueprint.Blueprint{}
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = SchemaVersion
	}
	return &doc, nil
}

// Find returns the record with exactly this package name and blueprint name.
func (d *Document) Find(packageName, name string) *blueprint.Blueprint {
	for _, b := range d.Blueprints {
		if b.PackageName == packageName && b.Name == name {
			return b
		}
	}
	return nil
}

// Base returns the record flagged as the project's base blueprint, if any.
func (d *Document) Base() *blueprint.Blueprint {
	for _, b := range d.Blueprints {
		if b.IsBaseBlueprint {
			return b
		}
	}
	return nil
}

// Upsert replaces the record with b's identity, or appends b when none exists.
// The stored record is a copy of b.
func (d *Document) Upsert(b *blueprint.Blueprint) {
	cp := b.Clone().Normalize()
	cp.Path = ""
	for i, existing := range d.Blueprints {
		if existing.Identity() == cp.Identity() {
			d.Blueprints[i] = cp
			return
		}
	}
	d.Blueprints = append(d.Blueprints, cp)
}

// Save upserts b into the document at path and writes it back.
func Save(path string, b *blueprint.Blueprint) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	doc.Upsert(b)
	return Write(path, doc)
}

// Write replaces the file at path with doc. The file is written to a
// temporary sibling and renamed, so readers never see a partial document.
func Write(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
