// Package diff applies the difference between two generated versions of a
// blueprint to a project, keeping the project's own changes.
package diff

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/install"
)

// ErrDirtyWorkTree is returned when the project has uncommitted changes.
var ErrDirtyWorkTree = errors.New("work tree has uncommitted changes")

// DiffEngineError reports a failed step of an update.
type DiffEngineError struct {
	Op  string
	Err error
}

func (e *DiffEngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DiffEngineError) Unwrap() error {
	return e.Err
}

// Side describes how to generate one side of a diff: which package to
// install and which blueprint to run with which options.
type Side struct {
	PackageName   string
	Version       string
	BlueprintPath string
	BlueprintName string
	Options       []string

	// Command is the shell equivalent of installing and generating this
	// side, for display.
	Command string
}

// CustomDiff holds both sides of an update. Start is nil when there is
// nothing to diff from.
type CustomDiff struct {
	Start *Side
	End   Side
}

// CustomDiffFunc derives the two sides from the project manifest
// (package.json content, nil when the project has none).
type CustomDiffFunc func(manifest []byte) (*CustomDiff, error)

// Options configures one engine run.
type Options struct {
	// Dir is the project root.
	Dir string

	// RunID names the run's scratch directory.
	RunID string

	EndVersion string

	// Base is the previously applied blueprint, nil when there is none.
	Base *blueprint.Blueprint

	ResolveConflicts bool
	Init             bool
	Reset            bool
	CompareOnly      bool

	CustomDiff CustomDiffFunc

	// IgnoredFiles are project-relative slash paths never read or written.
	IgnoredFiles []string

	Stdin  io.Reader
	Stdout io.Writer
}

// Mode is what a run did.
type Mode string

const (
	ModeInit    Mode = "init"
	ModeUpdate  Mode = "update"
	ModeReset   Mode = "reset"
	ModeCompare Mode = "compare"
)

// Result summarizes a finished run. Paths are project-relative slash paths.
type Result struct {
	Mode      Mode
	Changed   []string
	Deleted   []string
	Conflicts []string

	// Patch is the generated difference, set in compare mode.
	Patch []byte
}

// Engine applies a blueprint update to a project.
type Engine interface {
	Run(ctx context.Context, opts Options) (*Update, error)
}

// Update is an engine run in progress.
type Update struct {
	// Conflicts is set while an interactive merge tool is resolving
	// conflicts, nil otherwise.
	Conflicts *ConflictHandle

	done   chan struct{}
	result *Result
	err    error
}

// NewUpdate returns an Update that completes when finish returns.
func NewUpdate(conflicts *ConflictHandle, finish func() (*Result, error)) *Update {
	u := &Update{Conflicts: conflicts, done: make(chan struct{})}
	go func() {
		u.result, u.err = finish()
		close(u.done)
	}()
	return u
}

// Done is closed once the update has finished.
func (u *Update) Done() <-chan struct{} {
	return u.done
}

// Wait blocks until the update finishes.
func (u *Update) Wait() (*Result, error) {
	<-u.done
	return u.result, u.err
}

// ConflictHandle drives the interactive resolution of merge conflicts.
type ConflictHandle struct {
	Paths   []string
	process *install.Process
}

// Subscribe streams the merge tool's output; see install.Process.Subscribe.
func (h *ConflictHandle) Subscribe() <-chan []byte {
	return h.process.Subscribe()
}

// Cancel stops the merge tool. The update then fails.
func (h *ConflictHandle) Cancel() {
	h.process.Cancel()
}

// Done is closed when the merge tool exits.
func (h *ConflictHandle) Done() <-chan struct{} {
	return h.process.Done()
}
