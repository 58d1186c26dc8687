package core

import (
	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with registry-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the format expected by the registry.
// For npm: "@glimmer/blueprint".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	// packageurl-go keeps @ in namespace, so "@glimmer" + "/" + "blueprint"
	return p.Namespace + "/" + p.Name
}

// RepositoryURL returns the repository_url qualifier, used for private registries.
func (p PURL) RepositoryURL() string {
	return p.Qualifiers.Map()["repository_url"]
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:npm/ember-cli) and version PURLs (pkg:npm/ember-cli@5.4.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}
