package update

import (
	"path/filepath"
	"strings"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/state"
)

// Identity is the blueprint a run is about, before its package is resolved.
type Identity struct {
	PackageName string
	Name        string
	Location    string

	// URL is handed to the package resolver instead of the name when the
	// blueprint lives on disk or behind a tarball URL.
	URL string

	// Range is a version range embedded in the reference ("name@^2").
	Range string

	// Registry overrides the configured registry for this blueprint.
	Registry string

	CodemodsURL string
}

// ResolveIdentity works out which blueprint a run targets. An explicit ref
// is parsed; without one the project's default blueprint is used. A
// non-empty codemodsURL always replaces the default's.
func ResolveIdentity(dir, ref, codemodsURL string, defaults state.DefaultLoader) (*Identity, error) {
	var id Identity
	if ref != "" {
		parsed, err := blueprint.ParseRef(dir, ref)
		if err != nil {
			return nil, err
		}
		id = Identity{
			PackageName: parsed.Name,
			Name:        parsed.Name,
			Location:    parsed.Location,
			URL:         parsed.URL,
			Range:       parsed.Range,
			Registry:    parsed.Registry,
		}
	} else {
		def, err := defaults.LoadDefault(dir)
		if err != nil {
			return nil, err
		}
		id = Identity{
			PackageName: def.PackageName,
			Name:        def.Name,
			Location:    def.Location,
			URL:         locate(dir, def.Location),
			CodemodsURL: def.CodemodsURL,
		}
	}

	if codemodsURL != "" {
		id.CodemodsURL = codemodsURL
	}
	return &id, nil
}

// locate turns a recorded location into something the package resolver can
// fetch: tarball URLs as they are, paths absolute against dir.
func locate(dir, location string) string {
	switch {
	case location == "", isURL(location), filepath.IsAbs(location):
		return location
	}
	return filepath.Join(dir, location)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
