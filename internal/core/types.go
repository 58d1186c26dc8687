// Package core provides shared types and the registry system.
package core

import "time"

// Package represents metadata about a package from a registry.
type Package struct {
	Name          string
	Description   string
	Homepage      string
	Repository    string
	Namespace     string            // @scope for npm
	LatestVersion string            // the "latest" dist-tag, if any
	DistTags      map[string]string // tag name => version
	Metadata      map[string]any    // registry-specific data
}

// Version represents a specific version of a package.
type Version struct {
	Number      string
	PublishedAt time.Time
	Integrity   string        // sha512-..., sha1-...
	Tarball     string        // download URL of the packed package
	Status      VersionStatus // "", "deprecated"
	Metadata    map[string]any
}

// VersionStatus represents the status of a package version.
type VersionStatus string

const (
	StatusNone       VersionStatus = ""
	StatusDeprecated VersionStatus = "deprecated"
)
