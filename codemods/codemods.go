// Package codemods lists and runs the codemods that accompany a blueprint
// upgrade.
package codemods

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/blueprints/client"
	"github.com/git-pkgs/blueprints/install"
)

// Manifest is a codemods manifest document.
type Manifest struct {
	Codemods map[string]Codemod `json:"codemods"`
}

// Codemod is one entry of a manifest.
type Codemod struct {
	// Versions maps a dependency to the minimum version it must be at for
	// the codemod to apply.
	Versions       map[string]string `json:"versions"`
	ProjectOptions []string          `json:"projectOptions"`
	NodeVersion    string            `json:"nodeVersion"`
	Commands       []string          `json:"commands"`
}

// Names returns the codemod names in alphabetical order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Codemods))
	for name := range m.Codemods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Fetch loads the manifest at location: an http(s) URL fetched with c, or a
// local file path.
func Fetch(ctx context.Context, c *client.Client, location string) (*Manifest, error) {
	var m Manifest
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if c == nil {
			c = client.DefaultClient()
		}
		if err := c.GetJSON(ctx, location, &m); err != nil {
			return nil, fmt.Errorf("fetching codemods manifest: %w", err)
		}
		return &m, nil
	}

	data, err := os.ReadFile(strings.TrimPrefix(location, "file:"))
	if err != nil {
		return nil, fmt.Errorf("reading codemods manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing codemods manifest %s: %w", location, err)
	}
	return &m, nil
}

// Project is what decides whether a codemod applies.
type Project struct {
	// Dependencies maps package names to the version ranges declared in
	// package.json.
	Dependencies map[string]string
	Options      []string
}

// ProjectFromManifest reads dependencies and project options (app or addon,
// typescript) from package.json content.
func ProjectFromManifest(manifest []byte) (*Project, error) {
	var pkg struct {
		Keywords        []string          `json:"keywords"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if len(manifest) > 0 {
		if err := json.Unmarshal(manifest, &pkg); err != nil {
			return nil, fmt.Errorf("parsing package.json: %w", err)
		}
	}

	p := &Project{Dependencies: make(map[string]string)}
	for name, rng := range pkg.Dependencies {
		p.Dependencies[name] = rng
	}
	for name, rng := range pkg.DevDependencies {
		p.Dependencies[name] = rng
	}

	if slices.Contains(pkg.Keywords, "ember-addon") {
		p.Options = append(p.Options, "addon")
	} else {
		p.Options = append(p.Options, "app")
	}
	if _, ok := p.Dependencies["typescript"]; ok {
		p.Options = append(p.Options, "typescript")
	}
	return p, nil
}

// Applicable returns, in name order, the codemods whose version and project
// option requirements p meets.
func (m *Manifest) Applicable(p *Project) []string {
	var names []string
	for _, name := range m.Names() {
		if m.Codemods[name].appliesTo(p) {
			names = append(names, name)
		}
	}
	return names
}

func (c Codemod) appliesTo(p *Project) bool {
	if len(c.ProjectOptions) > 0 && !slices.ContainsFunc(c.ProjectOptions, func(o string) bool {
		return slices.Contains(p.Options, o)
	}) {
		return false
	}
	for dep, minimum := range c.Versions {
		declared, ok := p.Dependencies[dep]
		if !ok {
			return false
		}
		have, err := semver.NewVersion(strings.TrimLeft(declared, "^~>=v "))
		if err != nil {
			return false
		}
		want, err := semver.NewVersion(minimum)
		if err != nil || have.LessThan(want) {
			return false
		}
	}
	return true
}

// Runner runs codemod commands through the shell.
type Runner struct {
	Shell  string
	Stdout io.Writer
	Logger *slog.Logger
}

// Run executes the commands of each named codemod in dir, in order, and
// stops at the first failure.
func (r *Runner) Run(ctx context.Context, dir string, m *Manifest, names []string) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	for _, name := range names {
		codemod, ok := m.Codemods[name]
		if !ok {
			return fmt.Errorf("unknown codemod %q", name)
		}
		logger.Info("running codemod", "codemod", name)
		for _, command := range codemod.Commands {
			logger.Debug("running codemod command", "codemod", name, "run", command)
			p, err := install.Start(ctx, dir, os.Stdin, stdout, os.Stderr, shell, "-c", command)
			if err != nil {
				return fmt.Errorf("codemod %s: %w", name, err)
			}
			if err := p.Wait(); err != nil {
				return fmt.Errorf("codemod %s: %s: %w", name, command, err)
			}
		}
	}
	return nil
}
