// Package blueprint defines the record kept for every blueprint applied to a
// project, together with its identity and merge rules.
package blueprint

import "slices"

// Blueprint is one applied blueprint as recorded in the state file.
type Blueprint struct {
	PackageName string `json:"packageName"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Version     string `json:"version"`

	// Path is the on-disk location of the resolved package for this run.
	// It is never persisted.
	Path string `json:"-"`

	Options         []string `json:"options"`
	IsBaseBlueprint bool     `json:"isBaseBlueprint,omitempty"`
	CodemodsURL     string   `json:"codemodsUrl,omitempty"`
}

// Identity is the key a blueprint is stored under.
type Identity struct {
	PackageName string
	Name        string
}

func (id Identity) String() string {
	if id.Name == "" || id.Name == id.PackageName {
		return id.PackageName
	}
	return id.PackageName + ":" + id.Name
}

// Identity returns the (packageName, name) pair of b.
func (b *Blueprint) Identity() Identity {
	return Identity{PackageName: b.PackageName, Name: b.Name}
}

// Clone returns a deep copy of b.
func (b *Blueprint) Clone() *Blueprint {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Options = slices.Clone(b.Options)
	return &cp
}

// Normalize fills the defaults a record read from disk may be missing.
func (b *Blueprint) Normalize() *Blueprint {
	if b.Name == "" {
		b.Name = b.PackageName
	}
	if b.Options == nil {
		b.Options = []string{}
	}
	return b
}

// Merge builds the record for this run from an existing one and freshly
// supplied values. An existing record keeps its location and options; fresh
// values only fill a record that does not exist yet. A non-empty codemodsURL
// always replaces the recorded one. Version and path are not touched.
func Merge(existing *Blueprint, fresh Blueprint, codemodsURL string) *Blueprint {
	var b *Blueprint
	if existing != nil {
		b = existing.Clone()
	} else {
		b = &Blueprint{
			PackageName: fresh.PackageName,
			Name:        fresh.Name,
			Location:    fresh.Location,
			Options:     slices.Clone(fresh.Options),
			CodemodsURL: fresh.CodemodsURL,
		}
	}
	b.Normalize()
	if codemodsURL != "" {
		b.CodemodsURL = codemodsURL
	}
	return b
}
