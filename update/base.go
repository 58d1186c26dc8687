package update

import (
	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/state"
)

// SelectBase returns a copy of the recorded blueprint with id, or nil when
// the blueprint has never been applied to the project.
func SelectBase(doc *state.Document, id blueprint.Identity) *blueprint.Blueprint {
	return doc.Find(id.PackageName, id.Name).Clone()
}
