package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/blueprints/client"
	"github.com/git-pkgs/blueprints/internal/core"
)

var ErrNoDownloadURL = errors.New("no download URL available")

// Registry supplies the tarball layout of a registry. core.Registry
// satisfies it.
type Registry interface {
	URLs() client.URLBuilder
}

// Resolver determines the tarball URL for a published blueprint version.
type Resolver struct {
	registry Registry
}

// NewResolver creates a resolver for versions published to reg.
func NewResolver(reg Registry) *Resolver {
	return &Resolver{registry: reg}
}

// ArtifactInfo contains information about a downloadable tarball.
type ArtifactInfo struct {
	URL       string
	Filename  string
	Integrity string // sha512-... or sha1-...
}

// Tarball returns where v of name can be downloaded. The tarball URL from the
// version metadata wins; without one the registry's own layout is used.
func (r *Resolver) Tarball(name string, v *core.Version) (*ArtifactInfo, error) {
	url := v.Tarball
	if url == "" && r.registry != nil {
		url = r.registry.URLs().Download(name, v.Number)
	}
	if url == "" {
		return nil, fmt.Errorf("%w for %s@%s", ErrNoDownloadURL, name, v.Number)
	}
	return &ArtifactInfo{
		URL:       url,
		Filename:  filenameFromURL(url),
		Integrity: v.Integrity,
	}, nil
}

func filenameFromURL(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx >= 0 {
		url = url[:idx]
	}
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
