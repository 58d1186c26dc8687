// Package install installs a blueprint package into a project and runs its
// generator.
package install

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

var (
	DefaultInstallCommand  = []string{"npm", "install", "-D"}
	DefaultGenerateCommand = []string{"ember"}
)

// InstallError reports a failed package install.
type InstallError struct {
	Package string
	Output  string
	Err     error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("installing %s: %v", e.Package, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// GenerateError reports a generator that failed to start or exited non-zero.
type GenerateError struct {
	Blueprint string
	Err       error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Blueprint, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Options describes one install and generate run.
type Options struct {
	Dir string

	// AddonNameOverride replaces the package name passed to the installer.
	AddonNameOverride string
	PackageName       string
	Version           string

	// BlueprintPath is a local path or remote URI installed as is.
	BlueprintPath string

	BlueprintName    string
	BlueprintOptions []string

	// Stdin defaults to os.Stdin so generator prompts keep working.
	Stdin io.Reader
	// Stdout receives the generator's output live. Defaults to os.Stdout.
	Stdout io.Writer
}

// ResolvePackageName picks the argument handed to the installer. The override
// wins and carries "@version" unless a path is set; then the path; then
// packageName@version.
func ResolvePackageName(addonNameOverride, blueprintPath, version, packageName string) string {
	if addonNameOverride != "" {
		if version != "" && blueprintPath == "" {
			return addonNameOverride + "@" + version
		}
		return addonNameOverride
	}
	if blueprintPath != "" {
		return blueprintPath
	}
	return packageName + "@" + version
}

// Driver runs the installer and generator commands.
type Driver struct {
	InstallCommand  []string
	GenerateCommand []string
	Logger          *slog.Logger
}

// NewDriver returns a Driver for the given commands. Empty commands fall back
// to npm and ember.
func NewDriver(installCmd, generateCmd []string, logger *slog.Logger) *Driver {
	if len(installCmd) == 0 {
		installCmd = DefaultInstallCommand
	}
	if len(generateCmd) == 0 {
		generateCmd = DefaultGenerateCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{InstallCommand: installCmd, GenerateCommand: generateCmd, Logger: logger}
}

// InstallAndGenerate installs the package and waits for the installer to
// finish, then starts the generator and returns it without waiting.
func (d *Driver) InstallAndGenerate(ctx context.Context, opts Options) (*Process, error) {
	pkg := ResolvePackageName(opts.AddonNameOverride, opts.BlueprintPath, opts.Version, opts.PackageName)

	if err := d.Install(ctx, opts.Dir, pkg); err != nil {
		return nil, err
	}
	return d.Generate(ctx, opts)
}

// Install runs the install command for pkg in dir.
func (d *Driver) Install(ctx context.Context, dir, pkg string) error {
	args := append(append([]string(nil), d.InstallCommand[1:]...), pkg)
	d.Logger.Debug("installing blueprint package", "run", commandLine(d.InstallCommand[0], args), "dir", dir)

	cmd := exec.CommandContext(ctx, d.InstallCommand[0], args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &InstallError{Package: pkg, Output: out.String(), Err: err}
	}
	return nil
}

// Generate starts `<generator> generate <blueprint> <options...>` in opts.Dir.
func (d *Driver) Generate(ctx context.Context, opts Options) (*Process, error) {
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	args := append(append([]string(nil), d.GenerateCommand[1:]...), "generate", opts.BlueprintName)
	args = append(args, opts.BlueprintOptions...)
	d.Logger.Debug("running blueprint generator", "run", commandLine(d.GenerateCommand[0], args), "dir", opts.Dir)

	wrap := func(err error) error {
		return &GenerateError{Blueprint: opts.BlueprintName, Err: err}
	}
	p, err := start(ctx, opts.Dir, stdin, stdout, os.Stderr, wrap, d.GenerateCommand[0], args...)
	if err != nil {
		return nil, wrap(err)
	}
	return p, nil
}

// CommandLine renders the install and generate commands for opts as one
// shell line. Arguments are quoted where needed.
func (d *Driver) CommandLine(opts Options) string {
	pkg := ResolvePackageName(opts.AddonNameOverride, opts.BlueprintPath, opts.Version, opts.PackageName)
	install := commandLine(d.InstallCommand[0], append(append([]string(nil), d.InstallCommand[1:]...), pkg))
	genArgs := append(append([]string(nil), d.GenerateCommand[1:]...), "generate", opts.BlueprintName)
	genArgs = append(genArgs, opts.BlueprintOptions...)
	return install + " && " + commandLine(d.GenerateCommand[0], genArgs)
}

func commandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(name))
	for _, a := range args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%+=:,./-_^~", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
