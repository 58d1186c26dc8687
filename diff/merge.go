package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type conflict struct {
	rel              string
	base, ours, them []byte
	hasBase          bool
}

// merge carries every change between the generated start and end trees into
// the project.
func (e *GitEngine) merge(ctx context.Context, projectDir, startDir, endDir string, ignored map[string]bool) (*Result, error) {
	start, err := snapshot(startDir, ignored)
	if err != nil {
		return nil, &DiffEngineError{Op: "reading generated output", Err: err}
	}
	end, err := snapshot(endDir, ignored)
	if err != nil {
		return nil, &DiffEngineError{Op: "reading generated output", Err: err}
	}

	result := &Result{}
	var conflicts []conflict

	for _, rel := range start.union(end) {
		native := filepath.FromSlash(rel)
		base, inStart, err := readIfExists(filepath.Join(startDir, native))
		if err != nil {
			return nil, &DiffEngineError{Op: "merging " + rel, Err: err}
		}
		theirs, inEnd, err := readIfExists(filepath.Join(endDir, native))
		if err != nil {
			return nil, &DiffEngineError{Op: "merging " + rel, Err: err}
		}
		if inStart && inEnd && bytes.Equal(base, theirs) {
			continue
		}

		target := filepath.Join(projectDir, native)
		ours, inProject, err := readIfExists(target)
		if err != nil {
			return nil, &DiffEngineError{Op: "merging " + rel, Err: err}
		}

		switch {
		case !inEnd:
			// Removed by the blueprint. Only delete files the project left alone.
			if inProject && bytes.Equal(ours, base) {
				if err := os.Remove(target); err != nil {
					return nil, &DiffEngineError{Op: "deleting " + rel, Err: err}
				}
				result.Deleted = append(result.Deleted, rel)
			} else if inProject {
				e.Logger.Warn("blueprint removed a file the project changed; keeping it", "path", rel)
			}

		case !inProject:
			if inStart {
				e.Logger.Warn("blueprint changed a file the project deleted; skipping it", "path", rel)
				continue
			}
			if err := writeFile(target, theirs, end[rel]); err != nil {
				return nil, &DiffEngineError{Op: "writing " + rel, Err: err}
			}
			result.Changed = append(result.Changed, rel)

		case bytes.Equal(ours, theirs):
			// Already up to date.

		case inStart && bytes.Equal(ours, base):
			if err := writeFile(target, theirs, end[rel]); err != nil {
				return nil, &DiffEngineError{Op: "writing " + rel, Err: err}
			}
			result.Changed = append(result.Changed, rel)

		default:
			clean, err := e.mergeFile(ctx, target, base, theirs, isBinary(ours) || isBinary(base) || isBinary(theirs))
			if err != nil {
				return nil, &DiffEngineError{Op: "merging " + rel, Err: err}
			}
			result.Changed = append(result.Changed, rel)
			if !clean {
				conflicts = append(conflicts, conflict{rel: rel, base: base, ours: ours, them: theirs, hasBase: inStart})
				result.Conflicts = append(result.Conflicts, rel)
			}
		}
	}

	if len(conflicts) > 0 {
		if err := e.markUnmerged(ctx, projectDir, conflicts); err != nil {
			return nil, &DiffEngineError{Op: "recording conflicts", Err: err}
		}
	}
	return result, nil
}

// mergeFile three-way merges theirs into the project file at target,
// against base. It reports whether the merge was free of conflicts.
// Binary files are never merged; the project's copy is kept.
func (e *GitEngine) mergeFile(ctx context.Context, target string, base, theirs []byte, binary bool) (bool, error) {
	if binary {
		return false, nil
	}

	tmp, err := os.MkdirTemp(e.ScratchDir, "blueprint-merge-")
	if err != nil {
		return false, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	basePath := filepath.Join(tmp, "base")
	theirsPath := filepath.Join(tmp, "theirs")
	if err := os.WriteFile(basePath, base, 0o600); err != nil {
		return false, err
	}
	if err := os.WriteFile(theirsPath, theirs, 0o600); err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, gitBinary(e.Git), "merge-file",
		"-L", "project", "-L", "base", "-L", "blueprint",
		target, basePath, theirsPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	// A positive exit status below 128 is the number of conflicts.
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 && exitErr.ExitCode() < 128 {
		return false, nil
	}
	return false, fmt.Errorf("git merge-file: %w: %s", err, strings.TrimSpace(stderr.String()))
}

// markUnmerged replaces the index entries of conflicting files with the
// base, project and blueprint stages.
func (e *GitEngine) markUnmerged(ctx context.Context, projectDir string, conflicts []conflict) error {
	top, err := e.Git.TopLevel(ctx, projectDir)
	if err != nil {
		return err
	}
	absProject, err := filepath.EvalSymlinks(projectDir)
	if err != nil {
		return err
	}
	absTop, err := filepath.EvalSymlinks(top)
	if err != nil {
		return err
	}
	prefix, err := filepath.Rel(absTop, absProject)
	if err != nil {
		return err
	}

	var info strings.Builder
	for _, c := range conflicts {
		repoPath := filepath.ToSlash(filepath.Join(prefix, filepath.FromSlash(c.rel)))

		oursID, err := e.hashObject(ctx, projectDir, c.ours)
		if err != nil {
			return err
		}
		themID, err := e.hashObject(ctx, projectDir, c.them)
		if err != nil {
			return err
		}

		fmt.Fprintf(&info, "0 %s\t%s\n", strings.Repeat("0", len(oursID)), repoPath)
		if c.hasBase {
			baseID, err := e.hashObject(ctx, projectDir, c.base)
			if err != nil {
				return err
			}
			fmt.Fprintf(&info, "100644 %s 1\t%s\n", baseID, repoPath)
		}
		fmt.Fprintf(&info, "100644 %s 2\t%s\n", oursID, repoPath)
		fmt.Fprintf(&info, "100644 %s 3\t%s\n", themID, repoPath)
	}

	_, err = e.Git.RunInput(ctx, projectDir, []byte(info.String()), "update-index", "--index-info")
	return err
}

func (e *GitEngine) hashObject(ctx context.Context, dir string, data []byte) (string, error) {
	out, err := e.Git.RunInput(ctx, dir, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
