// Package resolve turns a blueprint reference and a version range into a
// concrete version unpacked on local disk.
package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/fetch"
	"github.com/git-pkgs/blueprints/internal/core"
)

// ErrNoMatchingVersion is wrapped by a ResolutionError when no published
// version satisfies the requested range.
var ErrNoMatchingVersion = core.ErrNoMatchingVersion

// ErrUnsupportedURL is returned for references that are neither a local
// directory nor an http(s) tarball.
var ErrUnsupportedURL = errors.New("unsupported blueprint URL")

// Request names what to resolve. URL, when set, is an absolute directory or
// an http(s) tarball and takes precedence over Name.
type Request struct {
	Name  string
	URL   string
	Range string

	// Registry is a registry base URL to use instead of the resolver's.
	Registry string
}

// PackageInfo is a resolved package.
type PackageInfo struct {
	Name    string
	Version string
	Path    string
}

// ResolutionError reports a package that could not be resolved.
type ResolutionError struct {
	Name  string
	Range string
	Err   error
}

func (e *ResolutionError) Error() string {
	target := e.Name
	if e.Range != "" {
		target += "@" + e.Range
	}
	return fmt.Sprintf("resolving %s: %v", target, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PackageResolver is what the orchestrator needs from a resolver.
type PackageResolver interface {
	Resolve(ctx context.Context, req Request) (*PackageInfo, error)
}

// Resolver resolves blueprint packages against an npm registry and keeps the
// unpacked tarballs in CacheDir, one directory per name and version.
type Resolver struct {
	Registry core.Registry
	Fetcher  fetch.FetcherInterface
	CacheDir string
	Logger   *slog.Logger
}

// New returns a Resolver. A nil fetcher gets a circuit-breaking default.
func New(reg core.Registry, f fetch.FetcherInterface, cacheDir string, logger *slog.Logger) *Resolver {
	if f == nil {
		f = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Registry: reg, Fetcher: f, CacheDir: cacheDir, Logger: logger}
}

// Resolve finds the version of req that best matches its range and returns
// where it is unpacked. Results are cached, so asking twice returns the same
// version and path as long as the registry has not changed.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*PackageInfo, error) {
	if req.URL != "" {
		info, err := r.resolveURL(ctx, req.URL)
		if err != nil {
			return nil, &ResolutionError{Name: req.URL, Err: err}
		}
		return info, nil
	}
	if req.Name == "" {
		return nil, &ResolutionError{Err: errors.New("no package name given")}
	}

	rng := req.Range
	if rng == "" {
		rng = core.LatestTag
	}

	reg, err := r.registryFor(req.Registry)
	if err != nil {
		return nil, &ResolutionError{Name: req.Name, Range: rng, Err: err}
	}
	v, err := core.ResolveVersion(ctx, reg, req.Name, rng)
	if err != nil {
		return nil, &ResolutionError{Name: req.Name, Range: rng, Err: err}
	}

	dir := filepath.Join(r.CacheDir, filepath.FromSlash(req.Name), v.Number)
	if !unpacked(dir) {
		tarball, err := fetch.NewResolver(reg).Tarball(req.Name, v)
		if err != nil {
			return nil, &ResolutionError{Name: req.Name, Range: rng, Err: err}
		}
		r.Logger.Info("downloading blueprint", "package", req.Name, "version", v.Number, "url", tarball.URL)
		if err := r.download(ctx, tarball, dir); err != nil {
			return nil, &ResolutionError{Name: req.Name, Range: rng, Err: err}
		}
	}
	r.Logger.Debug("resolved blueprint", "package", req.Name, "range", rng, "version", v.Number, "path", dir)

	return &PackageInfo{Name: req.Name, Version: v.Number, Path: dir}, nil
}

// registryFor returns the registry at baseURL, or the resolver's own when
// baseURL is empty.
func (r *Resolver) registryFor(baseURL string) (core.Registry, error) {
	if baseURL == "" {
		return r.Registry, nil
	}
	ecosystem := "npm"
	if r.Registry != nil {
		ecosystem = r.Registry.Ecosystem()
	}
	return core.New(ecosystem, baseURL, nil)
}

func (r *Resolver) resolveURL(ctx context.Context, url string) (*PackageInfo, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		sum := sha256.Sum256([]byte(url))
		dir := filepath.Join(r.CacheDir, "_urls", hex.EncodeToString(sum[:8]))
		if !unpacked(dir) {
			r.Logger.Info("downloading blueprint", "url", url)
			if err := r.download(ctx, &fetch.ArtifactInfo{URL: url}, dir); err != nil {
				return nil, err
			}
		}
		return fromManifest(dir)

	case filepath.IsAbs(url):
		return fromManifest(url)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}

// download unpacks into a temporary sibling of dir and renames it into place.
func (r *Resolver) download(ctx context.Context, info *fetch.ArtifactInfo, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(filepath.Dir(dir), "."+filepath.Base(dir)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := fetch.Download(ctx, r.Fetcher, info, tmp); err != nil {
		if cb, ok := r.Fetcher.(interface{ BreakerStates() map[string]string }); ok {
			for host, state := range cb.BreakerStates() {
				if state == "open" {
					r.Logger.Warn("registry host unavailable", "host", host)
				}
			}
		}
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		// Another run may have unpacked the same version first.
		if unpacked(dir) {
			return nil
		}
		return err
	}
	return nil
}

func unpacked(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "package.json"))
	return err == nil
}

func fromManifest(dir string) (*PackageInfo, error) {
	m, err := blueprint.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, fmt.Errorf("package.json in %s has no name", dir)
	}
	return &PackageInfo{Name: m.Name, Version: m.Version, Path: dir}, nil
}
