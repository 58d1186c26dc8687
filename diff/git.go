package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/blueprints/install"
	"github.com/git-pkgs/blueprints/vcs"
)

// GitEngine generates both sides of an update in scratch directories with
// the install driver and merges the difference into the project with git.
//
// Files the blueprint changed are three-way merged with `git merge-file`.
// Conflicting files are left with conflict markers and recorded as unmerged
// in the index, so `git mergetool` can pick them up.
type GitEngine struct {
	Driver *install.Driver
	Git    vcs.Git
	Logger *slog.Logger

	// ScratchDir is where sides are generated. Defaults to os.TempDir().
	ScratchDir string
}

// NewGitEngine returns a GitEngine using driver to generate blueprint output.
func NewGitEngine(driver *install.Driver, logger *slog.Logger) *GitEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitEngine{Driver: driver, Logger: logger}
}

func (e *GitEngine) Run(ctx context.Context, opts Options) (*Update, error) {
	mode := ModeUpdate
	switch {
	case opts.CompareOnly:
		mode = ModeCompare
	case opts.Reset:
		mode = ModeReset
	case opts.Init:
		mode = ModeInit
	}

	if mode != ModeCompare {
		clean, err := e.Git.IsClean(ctx, opts.Dir)
		if err != nil {
			return nil, &DiffEngineError{Op: "checking work tree", Err: err}
		}
		if !clean {
			return nil, &DiffEngineError{Op: "checking work tree", Err: ErrDirtyWorkTree}
		}
	}

	manifest, _, err := readIfExists(filepath.Join(opts.Dir, "package.json"))
	if err != nil {
		return nil, &DiffEngineError{Op: "reading package.json", Err: err}
	}
	sides, err := opts.CustomDiff(manifest)
	if err != nil {
		return nil, &DiffEngineError{Op: "deriving diff commands", Err: err}
	}
	if sides.Start == nil && mode == ModeUpdate {
		return nil, &DiffEngineError{Op: "deriving diff commands", Err: errors.New("no base blueprint to diff from")}
	}

	prefix := "blueprint-update-"
	if opts.RunID != "" {
		prefix += opts.RunID + "-"
	}
	scratch, err := os.MkdirTemp(e.ScratchDir, prefix)
	if err != nil {
		return nil, &DiffEngineError{Op: "creating scratch directory", Err: err}
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	ignored := ignoredSet(opts.IgnoredFiles)

	endDir, err := e.generate(ctx, scratch, "end", &sides.End, manifest, opts)
	if err != nil {
		return nil, err
	}
	startDir := filepath.Join(scratch, "start")
	if sides.Start != nil && mode != ModeInit && mode != ModeReset {
		if startDir, err = e.generate(ctx, scratch, "start", sides.Start, manifest, opts); err != nil {
			return nil, err
		}
	}

	var result *Result
	switch mode {
	case ModeCompare:
		result, err = e.compare(ctx, scratch, startDir, endDir, ignored, opts.Stdout)
	case ModeInit, ModeReset:
		result, err = e.overwrite(opts.Dir, endDir, ignored)
	default:
		result, err = e.merge(ctx, opts.Dir, startDir, endDir, ignored)
	}
	if err != nil {
		return nil, err
	}
	result.Mode = mode

	e.Logger.Info("applied blueprint output",
		"mode", mode,
		"changed", len(result.Changed),
		"deleted", len(result.Deleted),
		"conflicts", len(result.Conflicts))

	if len(result.Conflicts) == 0 || !opts.ResolveConflicts {
		return NewUpdate(nil, func() (*Result, error) { return result, nil }), nil
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	p, err := install.Start(ctx, opts.Dir, stdin, stdout, os.Stderr, gitBinary(e.Git), "mergetool")
	if err != nil {
		return nil, &DiffEngineError{Op: "starting git mergetool", Err: err}
	}
	handle := &ConflictHandle{Paths: result.Conflicts, process: p}
	return NewUpdate(handle, func() (*Result, error) {
		if err := p.Wait(); err != nil {
			return nil, &DiffEngineError{Op: "resolving conflicts", Err: err}
		}
		return result, nil
	}), nil
}

func gitBinary(g vcs.Git) string {
	if g.Binary == "" {
		return "git"
	}
	return g.Binary
}

// generate materializes one side in scratch/name and returns its directory.
func (e *GitEngine) generate(ctx context.Context, scratch, name string, side *Side, manifest []byte, opts Options) (string, error) {
	dir := filepath.Join(scratch, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &DiffEngineError{Op: "generating " + name, Err: err}
	}
	if manifest != nil {
		if err := os.WriteFile(filepath.Join(dir, "package.json"), manifest, 0o644); err != nil {
			return "", &DiffEngineError{Op: "generating " + name, Err: err}
		}
	}

	e.Logger.Debug("generating blueprint side", "side", name, "command", side.Command)
	p, err := e.Driver.InstallAndGenerate(ctx, install.Options{
		Dir:              dir,
		PackageName:      side.PackageName,
		Version:          side.Version,
		BlueprintPath:    side.BlueprintPath,
		BlueprintName:    side.BlueprintName,
		BlueprintOptions: side.Options,
		Stdin:            opts.Stdin,
		Stdout:           opts.Stdout,
	})
	if err != nil {
		return "", &DiffEngineError{Op: "generating " + name, Err: err}
	}
	if err := p.Wait(); err != nil {
		return "", &DiffEngineError{Op: "generating " + name, Err: err}
	}
	return dir, nil
}

// compare writes the patch between the two generated sides to out.
func (e *GitEngine) compare(ctx context.Context, scratch, startDir, endDir string, ignored map[string]bool, out io.Writer) (*Result, error) {
	for _, dir := range []string{startDir, endDir} {
		if err := prune(dir, ignored); err != nil {
			return nil, &DiffEngineError{Op: "comparing", Err: err}
		}
	}

	startName, endName := filepath.Base(startDir), filepath.Base(endDir)
	cmd := exec.CommandContext(ctx, gitBinary(e.Git), "diff", "--no-index", "--binary", startName, endName)
	cmd.Dir = scratch
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	// Exit status 1 means the trees differ.
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == 1) {
		return nil, &DiffEngineError{Op: "comparing", Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	// Report paths as the project sees them.
	patch := stdout.Bytes()
	for _, prefix := range []string{"a/", "b/"} {
		for _, name := range []string{startName, endName} {
			patch = bytes.ReplaceAll(patch, []byte(" "+prefix+name+"/"), []byte(" "+prefix))
		}
	}
	if out != nil {
		_, _ = out.Write(patch)
	}
	return &Result{Patch: patch}, nil
}

// prune removes everything the comparison must not see.
func prune(dir string, ignored map[string]bool) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	for name := range skippedDirs {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	for rel := range ignored {
		if err := os.Remove(filepath.Join(dir, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// overwrite copies the generated output over the project.
func (e *GitEngine) overwrite(projectDir, endDir string, ignored map[string]bool) (*Result, error) {
	end, err := snapshot(endDir, ignored)
	if err != nil {
		return nil, &DiffEngineError{Op: "reading generated output", Err: err}
	}

	result := &Result{}
	for _, rel := range end.union(nil) {
		theirs, err := os.ReadFile(filepath.Join(endDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, &DiffEngineError{Op: "copying " + rel, Err: err}
		}
		target := filepath.Join(projectDir, filepath.FromSlash(rel))
		ours, exists, err := readIfExists(target)
		if err != nil {
			return nil, &DiffEngineError{Op: "copying " + rel, Err: err}
		}
		if exists && bytes.Equal(ours, theirs) {
			continue
		}
		if err := writeFile(target, theirs, end[rel]); err != nil {
			return nil, &DiffEngineError{Op: "copying " + rel, Err: err}
		}
		result.Changed = append(result.Changed, rel)
	}
	return result, nil
}
