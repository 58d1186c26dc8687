package blueprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/blueprints/internal/core"
)

// RefKind says where a blueprint reference points.
type RefKind int

const (
	RefRegistry RefKind = iota // published package, resolved by name
	RefPath                    // directory on local disk
	RefURL                     // tarball reachable over http(s)
)

// Ref is a parsed blueprint reference from the command line.
type Ref struct {
	Kind RefKind

	// Name is the package name. For path and URL references it is read
	// from the package manifest when that is possible, otherwise empty.
	Name string

	// Range is a version range or dist-tag embedded in the reference,
	// as in "ember-cli@^5" or "pkg:npm/ember-cli@5.4.0".
	Range string

	// Location is the path or URL as written by the user, recorded so the
	// blueprint can be found again without a registry.
	Location string

	// URL is what the package resolver fetches: an absolute directory for
	// path references, the tarball URL for URL references.
	URL string

	// Registry is a registry base URL taken from the repository_url
	// qualifier of a package URL. Empty means the configured registry.
	Registry string
}

// ParseRef parses a blueprint reference relative to cwd. Accepted forms are
// npm names with an optional "@range", pkg:npm package URLs, local paths
// ("./x", "../x", "/x", "file:x") and http(s) tarball URLs.
func ParseRef(cwd, ref string) (*Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty blueprint reference")
	}

	switch {
	case strings.HasPrefix(ref, "pkg:"):
		p, err := core.ParsePURL(ref)
		if err != nil {
			return nil, err
		}
		if p.Type != "npm" {
			return nil, fmt.Errorf("blueprint %q: only npm packages are supported", ref)
		}
		return &Ref{Kind: RefRegistry, Name: p.FullName(), Range: p.Version, Registry: p.RepositoryURL()}, nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return &Ref{Kind: RefURL, Location: ref, URL: ref}, nil

	case strings.HasPrefix(ref, "file:"), isPath(ref):
		loc := strings.TrimPrefix(ref, "file:")
		abs := loc
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, loc)
		}
		name, err := manifestName(abs)
		if err != nil {
			return nil, fmt.Errorf("blueprint %q: %w", ref, err)
		}
		return &Ref{Kind: RefPath, Name: name, Location: loc, URL: abs}, nil
	}

	name, rng := splitNameRange(ref)
	return &Ref{Kind: RefRegistry, Name: name, Range: rng}, nil
}

func isPath(ref string) bool {
	return strings.HasPrefix(ref, "./") ||
		strings.HasPrefix(ref, "../") ||
		strings.HasPrefix(ref, "/") ||
		strings.HasPrefix(ref, "~") ||
		ref == "." || ref == ".."
}

// splitNameRange splits "name@range", leaving the scope's "@" alone.
func splitNameRange(ref string) (string, string) {
	at := strings.LastIndex(ref, "@")
	if at <= 0 {
		return ref, ""
	}
	return ref[:at], ref[at+1:]
}

// Manifest is the subset of package.json read for blueprint packages.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadManifest reads package.json from dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Join(dir, "package.json"), err)
	}
	return &m, nil
}

func manifestName(dir string) (string, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return "", err
	}
	if m.Name == "" {
		return "", fmt.Errorf("package.json in %s has no name", dir)
	}
	return m.Name, nil
}
