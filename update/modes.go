package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/blueprints/codemods"
)

// ErrNoCodemodsURL is returned by the codemod modes when the blueprint has
// no codemods manifest.
var ErrNoCodemodsURL = errors.New("blueprint has no codemods URL")

// Stats describes where an update would go without running it.
type Stats struct {
	PackageName    string
	Name           string
	CurrentVersion string
	TargetVersion  string
	CodemodsURL    string
	Init           bool
}

func (s *Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "package name: %s\n", s.PackageName)
	if s.Name != s.PackageName {
		fmt.Fprintf(&b, "blueprint name: %s\n", s.Name)
	}
	if s.Init {
		b.WriteString("current version: (none)\n")
	} else {
		fmt.Fprintf(&b, "current version: %s\n", s.CurrentVersion)
	}
	fmt.Fprintf(&b, "target version: %s\n", s.TargetVersion)
	if s.CodemodsURL != "" {
		fmt.Fprintf(&b, "codemods source: %s\n", s.CodemodsURL)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Stats reports the current and target versions of the blueprint.
func (o *Orchestrator) Stats(ctx context.Context, opts Options) (*Stats, error) {
	p, err := o.prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		PackageName:   p.blueprint.PackageName,
		Name:          p.blueprint.Name,
		TargetVersion: p.blueprint.Version,
		CodemodsURL:   p.blueprint.CodemodsURL,
		Init:          p.init,
	}
	if p.base != nil {
		s.CurrentVersion = p.base.Version
	}
	return s, nil
}

func (o *Orchestrator) codemodsManifest(ctx context.Context, opts Options) (*codemods.Manifest, *codemods.Project, error) {
	p, err := o.prepare(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if p.blueprint.CodemodsURL == "" {
		return nil, nil, fmt.Errorf("%s: %w", p.blueprint.Identity(), ErrNoCodemodsURL)
	}
	m, err := codemods.Fetch(ctx, o.HTTP, p.blueprint.CodemodsURL)
	if err != nil {
		return nil, nil, err
	}

	pkg, err := os.ReadFile(filepath.Join(o.Dir, "package.json"))
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}
	project, err := codemods.ProjectFromManifest(pkg)
	if err != nil {
		return nil, nil, err
	}
	return m, project, nil
}

// ListCodemods returns the names of the codemods that apply to the project.
func (o *Orchestrator) ListCodemods(ctx context.Context, opts Options) ([]string, error) {
	m, project, err := o.codemodsManifest(ctx, opts)
	if err != nil {
		return nil, err
	}
	return m.Applicable(project), nil
}

// RunCodemods runs every codemod that applies to the project and returns
// their names.
func (o *Orchestrator) RunCodemods(ctx context.Context, opts Options) ([]string, error) {
	m, project, err := o.codemodsManifest(ctx, opts)
	if err != nil {
		return nil, err
	}
	names := m.Applicable(project)
	if len(names) == 0 {
		return nil, nil
	}

	runner := o.Codemods
	if runner == nil {
		runner = &codemods.Runner{Stdout: o.Stdout, Logger: o.Logger}
	}
	if err := runner.Run(ctx, o.Dir, m, names); err != nil {
		return nil, err
	}
	return names, nil
}

// Execute runs whichever mode opts selects and returns the message to show
// the user, which may be empty.
func (o *Orchestrator) Execute(ctx context.Context, opts Options) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	switch {
	case opts.StatsOnly:
		s, err := o.Stats(ctx, opts)
		if err != nil {
			return "", err
		}
		return s.String(), nil
	case opts.ListCodemods:
		names, err := o.ListCodemods(ctx, opts)
		if err != nil {
			return "", err
		}
		return strings.Join(names, "\n"), nil
	case opts.RunCodemods:
		names, err := o.RunCodemods(ctx, opts)
		if err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "no applicable codemods", nil
		}
		return "ran codemods: " + strings.Join(names, ", "), nil
	}

	run, err := o.Update(ctx, opts)
	if err != nil {
		return "", err
	}
	result, err := run.Wait()
	if err != nil {
		return "", err
	}

	if opts.CompareOnly {
		return "", nil
	}
	if len(result.Conflicts) > 0 && !opts.ResolveConflicts {
		return fmt.Sprintf("updated to %s with conflicts in:\n  %s", run.Blueprint.Version, strings.Join(result.Conflicts, "\n  ")), nil
	}
	return "", nil
}
