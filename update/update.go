// Package update coordinates a blueprint update: it works out which
// blueprint and versions are involved, drives the diff engine, and records
// the result in the project's state file.
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/client"
	"github.com/git-pkgs/blueprints/codemods"
	"github.com/git-pkgs/blueprints/diff"
	"github.com/git-pkgs/blueprints/install"
	"github.com/git-pkgs/blueprints/resolve"
	"github.com/git-pkgs/blueprints/state"
	"github.com/git-pkgs/blueprints/vcs"
)

// ErrConflictingModes is returned when more than one exclusive mode is set.
var ErrConflictingModes = errors.New("only one of --reset, --compare-only, --stats-only, --list-codemods and --run-codemods may be used")

// Orchestrator runs updates for the project in Dir.
type Orchestrator struct {
	Dir string

	// StatePath is the configured state file location, relative to Dir.
	// A package.json configPath overrides it.
	StatePath string

	Resolver resolve.PackageResolver
	Engine   diff.Engine
	Stager   vcs.Stager
	Defaults state.DefaultLoader
	Driver   *install.Driver
	HTTP     *client.Client
	Codemods *codemods.Runner
	Logger   *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
}

// Options are the inputs of one update.
type Options struct {
	// Blueprint is a reference as accepted by blueprint.ParseRef. Empty
	// means the project's default blueprint.
	Blueprint string

	// From overrides the version the update starts from.
	From string

	// To is the target version range. Empty means latest.
	To string

	ResolveConflicts bool
	Reset            bool
	CompareOnly      bool
	StatsOnly        bool
	ListCodemods     bool
	RunCodemods      bool

	CodemodsURL      string
	BlueprintOptions []string
}

func (o Options) validate() error {
	n := 0
	for _, set := range []bool{o.Reset, o.CompareOnly, o.StatsOnly, o.ListCodemods, o.RunCodemods} {
		if set {
			n++
		}
	}
	if n > 1 {
		return ErrConflictingModes
	}
	return nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Run is an update in progress.
type Run struct {
	ID        string
	Blueprint *blueprint.Blueprint
	Base      *blueprint.Blueprint
	Init      bool

	// Conflicts is set while conflicts are being resolved interactively.
	Conflicts *diff.ConflictHandle

	update *diff.Update
	finish func(*diff.Result) error

	once   sync.Once
	result *diff.Result
	err    error
}

// Wait blocks until the diff engine is done, then records the new state.
// Nothing is recorded when the engine fails. Later calls return the first
// call's outcome.
func (r *Run) Wait() (*diff.Result, error) {
	r.once.Do(func() {
		result, err := r.update.Wait()
		if err != nil {
			r.err = engineError("applying update", err)
			return
		}
		if err := r.finish(result); err != nil {
			r.err = err
			return
		}
		r.result = result
	})
	return r.result, r.err
}

func engineError(op string, err error) error {
	var engineErr *diff.DiffEngineError
	if errors.As(err, &engineErr) {
		return err
	}
	return &diff.DiffEngineError{Op: op, Err: err}
}

// plan is everything worked out before the engine is started.
type plan struct {
	statePath    string
	relStatePath string
	blueprint    *blueprint.Blueprint
	base         *blueprint.Blueprint
	init         bool
	identity     *Identity
	doc          *state.Document
}

// prepare resolves identity, package and base without changing anything on
// disk.
func (o *Orchestrator) prepare(ctx context.Context, opts Options) (*plan, error) {
	// The state file may move during this run, so its path is fixed first.
	statePath, err := state.FilePath(o.Dir, o.StatePath)
	if err != nil {
		return nil, err
	}
	relStatePath, err := state.RelativeFilePath(o.Dir, o.StatePath)
	if err != nil {
		return nil, err
	}

	id, err := ResolveIdentity(o.Dir, opts.Blueprint, opts.CodemodsURL, o.Defaults)
	if err != nil {
		return nil, err
	}

	rng := opts.To
	if rng == "" {
		rng = id.Range
	}
	info, err := o.Resolver.Resolve(ctx, resolve.Request{Name: id.PackageName, URL: id.URL, Range: rng, Registry: id.Registry})
	if err != nil {
		return nil, err
	}

	name := id.Name
	if name == "" {
		name = info.Name
	}

	doc, err := state.Load(statePath)
	if err != nil {
		return nil, err
	}

	b := blueprint.Merge(doc.Find(info.Name, name), blueprint.Blueprint{
		PackageName: info.Name,
		Name:        name,
		Location:    id.Location,
		Options:     opts.BlueprintOptions,
	}, id.CodemodsURL)
	b.Version = info.Version
	b.Path = info.Path

	p := &plan{
		statePath:    statePath,
		relStatePath: relStatePath,
		blueprint:    b,
		base:         SelectBase(doc, b.Identity()),
		identity:     id,
		doc:          doc,
	}
	// Paths are not recorded, so a base generated from disk is found again
	// through its location.
	if p.base != nil && p.base.Path == "" && !isURL(p.base.Location) {
		p.base.Path = locate(o.Dir, p.base.Location)
	}

	if opts.From != "" {
		base, err := o.baseAt(ctx, p, opts.From)
		if err != nil {
			return nil, err
		}
		p.base = base
	}

	if p.base == nil {
		b.IsBaseBlueprint = true
		p.init = true
	}
	return p, nil
}

// baseAt returns the base record moved to version from, or a synthesized
// one when the blueprint was never recorded.
func (o *Orchestrator) baseAt(ctx context.Context, p *plan, from string) (*blueprint.Blueprint, error) {
	info, err := o.Resolver.Resolve(ctx, resolve.Request{Name: p.blueprint.PackageName, URL: p.identity.URL, Range: from, Registry: p.identity.Registry})
	if err != nil {
		return nil, err
	}
	base := p.base
	if base == nil {
		p.blueprint.IsBaseBlueprint = p.doc.Base() == nil
		base = p.blueprint.Clone()
	}
	base.Version = info.Version
	base.Path = info.Path
	return base, nil
}

// Update starts an update of the blueprint named in opts. The returned Run
// must be waited on; the state file is written only once the engine has
// succeeded, and it is staged unless this was an init or a reset. In
// compare mode nothing is written.
func (o *Orchestrator) Update(ctx context.Context, opts Options) (*Run, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := o.logger().With("run", runID)

	p, err := o.prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	b := p.blueprint

	engineBase := p.base
	if opts.Reset {
		engineBase = nil
	}

	switch {
	case opts.CompareOnly:
		logger.Info("comparing blueprint versions", "blueprint", b.Identity(), "to", b.Version)
	case opts.Reset:
		logger.Info("resetting to blueprint", "blueprint", b.Identity(), "version", b.Version)
	case p.init:
		logger.Info("applying blueprint for the first time", "blueprint", b.Identity(), "version", b.Version)
	default:
		logger.Info("updating blueprint", "blueprint", b.Identity(), "from", p.base.Version, "to", b.Version)
	}

	u, err := o.Engine.Run(ctx, diff.Options{
		Dir:              o.Dir,
		RunID:            runID,
		EndVersion:       b.Version,
		Base:             engineBase,
		ResolveConflicts: opts.ResolveConflicts,
		Init:             p.init,
		Reset:            opts.Reset,
		CompareOnly:      opts.CompareOnly,
		CustomDiff: func(manifest []byte) (*diff.CustomDiff, error) {
			return StartAndEndCommands(o.Driver, manifest, engineBase, b), nil
		},
		IgnoredFiles: []string{p.relStatePath},
		Stdin:        o.Stdin,
		Stdout:       o.Stdout,
	})
	if err != nil {
		return nil, engineError("starting update", err)
	}

	return &Run{
		ID:        runID,
		Blueprint: b,
		Base:      p.base,
		Init:      p.init,
		Conflicts: u.Conflicts,
		update:    u,
		finish: func(result *diff.Result) error {
			if opts.CompareOnly {
				return nil
			}
			if err := state.Save(p.statePath, b); err != nil {
				return fmt.Errorf("saving %s: %w", p.relStatePath, err)
			}
			logger.Info("recorded blueprint", "blueprint", b.Identity(), "version", b.Version, "path", p.relStatePath)

			if opts.Reset || p.init {
				return nil
			}
			if err := o.Stager.Stage(ctx, o.Dir, p.relStatePath); err != nil {
				return err
			}
			logger.Debug("staged state file", "path", p.relStatePath)
			return nil
		},
	}, nil
}
