package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRegistry struct {
	pkg      *Package
	versions []Version
	err      error
}

func (f *fakeRegistry) Ecosystem() string { return "npm" }
func (f *fakeRegistry) FetchPackage(ctx context.Context, name string) (*Package, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pkg, nil
}
func (f *fakeRegistry) FetchVersions(ctx context.Context, name string) ([]Version, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Version, len(f.versions))
	copy(out, f.versions)
	return out, nil
}
func (f *fakeRegistry) URLs() URLBuilder { return &BaseURLs{} }

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		pkg: &Package{
			Name:          "ember-cli",
			LatestVersion: "3.28.0",
			DistTags:      map[string]string{"latest": "3.28.0", "beta": "4.0.0-beta.1"},
		},
		versions: []Version{
			{Number: "3.27.0"},
			{Number: "3.28.0"},
			{Number: "2.18.2"},
			{Number: "3.1.4"},
			{Number: "3.1.5", Status: StatusDeprecated},
			{Number: "4.0.0-beta.1"},
			{Number: "1.13.0", Status: StatusDeprecated},
		},
	}
}

func TestResolveVersion(t *testing.T) {
	tests := []struct {
		rng     string
		want    string
		wantErr error
	}{
		{"", "3.28.0", nil},
		{"latest", "3.28.0", nil},
		{"beta", "4.0.0-beta.1", nil},
		{"2.18.2", "2.18.2", nil},
		{"^3.0.0", "3.28.0", nil},
		{"~3.1.0", "3.1.4", nil},
		{"3.27.x", "3.27.0", nil},
		{">=2 <3", "2.18.2", nil},
		{"^1.0.0", "1.13.0", nil},
		{"^5.0.0", "", ErrNoMatchingVersion},
	}

	reg := newFakeRegistry()
	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			v, err := ResolveVersion(context.Background(), reg, "ember-cli", tt.rng)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveVersion(%q) error = %v, want %v", tt.rng, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveVersion(%q) error = %v", tt.rng, err)
			}
			if v.Number != tt.want {
				t.Errorf("ResolveVersion(%q) = %s, want %s", tt.rng, v.Number, tt.want)
			}
		})
	}
}

func TestResolveVersionInvalidRange(t *testing.T) {
	_, err := ResolveVersion(context.Background(), newFakeRegistry(), "ember-cli", "not a range!!")
	if err == nil {
		t.Fatal("expected error for invalid range")
	}
	if errors.Is(err, ErrNoMatchingVersion) {
		t.Error("invalid range should not be reported as no matching version")
	}
}

func TestResolveVersionNoVersions(t *testing.T) {
	reg := &fakeRegistry{pkg: &Package{Name: "empty"}}
	_, err := ResolveVersion(context.Background(), reg, "empty", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveVersionIsStable(t *testing.T) {
	reg := newFakeRegistry()
	first, err := ResolveVersion(context.Background(), reg, "ember-cli", "^3.0.0")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ResolveVersion(context.Background(), reg, "ember-cli", "^3.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != second.Number {
		t.Errorf("resolution changed between calls: %s then %s", first.Number, second.Number)
	}
}

func TestResolveLatestWithoutDistTags(t *testing.T) {
	now := time.Now()
	reg := &fakeRegistry{
		pkg: &Package{Name: "x"},
		versions: []Version{
			{Number: "1.0.0", PublishedAt: now.Add(-48 * time.Hour)},
			{Number: "1.1.0", PublishedAt: now.Add(-24 * time.Hour)},
			{Number: "0.9.0", PublishedAt: now},
			{Number: "2.0.0-rc.1", PublishedAt: now},
			{Number: "1.2.0", PublishedAt: now, Status: StatusDeprecated},
		},
	}

	// 0.9.0 was published most recently (a backport release)
	v, err := ResolveVersion(context.Background(), reg, "x", "latest")
	if err != nil {
		t.Fatal(err)
	}
	if v.Number != "0.9.0" {
		t.Errorf("ResolveVersion(latest) = %s, want 0.9.0", v.Number)
	}
}
