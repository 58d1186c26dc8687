// Package vcs wraps the handful of git commands the updater needs.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Stager adds a file to the next commit.
type Stager interface {
	Stage(ctx context.Context, dir, path string) error
}

// Git runs the git binary found on PATH.
type Git struct {
	Binary string
}

func (g Git) binary() string {
	if g.Binary == "" {
		return "git"
	}
	return g.Binary
}

// Run executes git with args in dir and returns standard output.
func (g Git) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	return g.RunInput(ctx, dir, nil, args...)
}

// RunInput is Run with input fed to git's standard input.
func (g Git) RunInput(ctx context.Context, dir string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.binary(), args...)
	cmd.Dir = dir
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("git %s failed in %s: %w: %s", strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Stage runs `git add` for path, relative to dir.
func (g Git) Stage(ctx context.Context, dir, path string) error {
	_, err := g.Run(ctx, dir, "add", "--", path)
	return err
}

// IsClean reports whether the work tree in dir has no pending changes.
func (g Git) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := g.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) == "", nil
}

// TopLevel returns the root of the work tree containing dir.
func (g Git) TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := g.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
