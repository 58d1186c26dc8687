package update

import (
	"context"
	"errors"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/resolve"
	"github.com/git-pkgs/blueprints/state"
)

// ErrFromRequired is returned by Save when no version was given.
var ErrFromRequired = errors.New("--from is required")

// SaveOptions are the inputs of Save.
type SaveOptions struct {
	Blueprint        string
	From             string
	CodemodsURL      string
	BlueprintOptions []string
}

// Save records that the blueprint was applied at version From without
// touching the project. It is used to adopt a project generated before the
// state file existed.
func (o *Orchestrator) Save(ctx context.Context, opts SaveOptions) (*blueprint.Blueprint, error) {
	if opts.From == "" {
		return nil, ErrFromRequired
	}

	statePath, err := state.FilePath(o.Dir, o.StatePath)
	if err != nil {
		return nil, err
	}

	id, err := ResolveIdentity(o.Dir, opts.Blueprint, opts.CodemodsURL, o.Defaults)
	if err != nil {
		return nil, err
	}
	info, err := o.Resolver.Resolve(ctx, resolve.Request{Name: id.PackageName, URL: id.URL, Range: opts.From, Registry: id.Registry})
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

	b := &blueprint.Blueprint{
		PackageName: info.Name,
		Name:        name,
		Location:    id.Location,
		Version:     info.Version,
		Options:     opts.BlueprintOptions,
		CodemodsURL: id.CodemodsURL,
	}
	b.Normalize()
	if base := doc.Base(); base == nil || base.Identity() == b.Identity() {
		b.IsBaseBlueprint = true
	}

	doc.Upsert(b)
	if err := state.Write(statePath, doc); err != nil {
		return nil, err
	}
	o.logger().Info("saved blueprint", "blueprint", b.Identity(), "version", b.Version)
	return b, nil
}
