package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// LatestTag is the dist-tag used when no range is requested.
const LatestTag = "latest"

// ResolveVersion picks the version of name that best satisfies rng.
//
// rng may be a dist-tag ("latest", "beta"), an exact version, or an npm-style
// semver range ("^3.1.0", "~2.0", ">=1 <2", "3.x"). An empty range means
// "latest". When the latest dist-tag satisfies the range it wins, otherwise the
// highest satisfying non-deprecated version is chosen, falling back to
// deprecated versions only when nothing else matches.
func ResolveVersion(ctx context.Context, reg Registry, name, rng string) (*Version, error) {
	if rng == "" {
		rng = LatestTag
	}

	pkg, err := reg.FetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	versions, err := reg.FetchVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, &NotFoundError{Ecosystem: reg.Ecosystem(), Name: name}
	}

	byNumber := make(map[string]*Version, len(versions))
	for i := range versions {
		byNumber[versions[i].Number] = &versions[i]
	}

	if tagged, ok := pkg.DistTags[rng]; ok {
		if v, ok := byNumber[tagged]; ok {
			return v, nil
		}
	}
	if rng == LatestTag {
		if v := latestOf(versions); v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s@%s", ErrNoMatchingVersion, name, rng)
	}

	if v, ok := byNumber[rng]; ok {
		return v, nil
	}

	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return nil, fmt.Errorf("invalid version range %q for %s: %w", rng, name, err)
	}

	if latest, ok := byNumber[pkg.LatestVersion]; ok {
		if sv, err := semver.NewVersion(latest.Number); err == nil && constraint.Check(sv) {
			return latest, nil
		}
	}

	var deprecated *Version
	for _, c := range sortedDesc(versions) {
		if !constraint.Check(c.semver) {
			continue
		}
		if c.version.Status == StatusNone {
			return c.version, nil
		}
		if deprecated == nil {
			deprecated = c.version
		}
	}
	if deprecated != nil {
		return deprecated, nil
	}

	return nil, fmt.Errorf("%w: %s@%s", ErrNoMatchingVersion, name, rng)
}

type candidate struct {
	version *Version
	semver  *semver.Version
}

// sortedDesc returns the parseable versions, highest first.
func sortedDesc(versions []Version) []candidate {
	out := make([]candidate, 0, len(versions))
	for i := range versions {
		sv, err := semver.NewVersion(versions[i].Number)
		if err != nil {
			continue
		}
		out = append(out, candidate{version: &versions[i], semver: sv})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].semver.GreaterThan(out[j].semver)
	})
	return out
}

// latestOf returns the newest non-deprecated, non-prerelease version.
// Publish time decides when present; otherwise semver order does.
func latestOf(versions []Version) *Version {
	var valid []candidate
	for _, c := range sortedDesc(versions) {
		if c.version.Status == StatusNone && c.semver.Prerelease() == "" {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	hasTimestamps := false
	for _, c := range valid {
		if !c.version.PublishedAt.IsZero() {
			hasTimestamps = true
			break
		}
	}

	if hasTimestamps {
		sort.SliceStable(valid, func(i, j int) bool {
			return valid[i].version.PublishedAt.After(valid[j].version.PublishedAt)
		})
	}

	return valid[0].version
}
