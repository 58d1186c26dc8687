// Package blueprints keeps a generated project in step with new releases of
// the blueprint it was generated from.
//
// A blueprint is an npm package whose generator scaffolds files into a
// project. The versions applied to a project are recorded in a state file
// (config/blueprint-update.json by default). An update regenerates the
// recorded version and the target version side by side, merges the
// difference into the project, and records the new version.
//
// Basic usage:
//
//	o, err := blueprints.Open(".", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	msg, err := o.Execute(context.Background(), blueprints.Options{To: "^5"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(msg)
package blueprints

import (
	"log/slog"
	"os"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/client"
	"github.com/git-pkgs/blueprints/codemods"
	"github.com/git-pkgs/blueprints/diff"
	"github.com/git-pkgs/blueprints/fetch"
	"github.com/git-pkgs/blueprints/install"
	"github.com/git-pkgs/blueprints/internal/config"
	"github.com/git-pkgs/blueprints/internal/core"
	_ "github.com/git-pkgs/blueprints/internal/npm"
	"github.com/git-pkgs/blueprints/resolve"
	"github.com/git-pkgs/blueprints/state"
	"github.com/git-pkgs/blueprints/update"
)

const userAgent = "blueprint-update"

// Re-export types from the domain packages
type (
	// Blueprint is one applied blueprint as recorded in the state file.
	Blueprint = blueprint.Blueprint

	// Identity is the (package name, blueprint name) pair records are keyed by.
	Identity = blueprint.Identity

	// Document is the state file.
	Document = state.Document

	// Default is the blueprint used when none is named.
	Default = state.Default

	// PackageInfo is a resolved blueprint package.
	PackageInfo = resolve.PackageInfo

	// Result summarizes what an update did to the project.
	Result = diff.Result

	// Orchestrator runs updates for one project.
	Orchestrator = update.Orchestrator

	// Options are the inputs of one update.
	Options = update.Options

	// SaveOptions are the inputs of Orchestrator.Save.
	SaveOptions = update.SaveOptions

	// Run is an update in progress.
	Run = update.Run

	// Stats describes where an update would go.
	Stats = update.Stats

	// Config holds everything the updater can be configured with.
	Config = config.Config
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option
)

// Re-export errors
var (
	ErrNotFound           = client.ErrNotFound
	ErrNoMatchingVersion  = resolve.ErrNoMatchingVersion
	ErrNoDefaultBlueprint = state.ErrNoDefaultBlueprint
	ErrConflictingModes   = update.ErrConflictingModes
	ErrDirtyWorkTree      = diff.ErrDirtyWorkTree
	ErrFromRequired       = update.ErrFromRequired
)

// Error types
type (
	ResolutionError   = resolve.ResolutionError
	CorruptStateError = state.CorruptStateError
	DiffEngineError   = diff.DiffEngineError
	InstallError      = install.InstallError
	GenerateError     = install.GenerateError
	HTTPError         = client.HTTPError
)

// LoadConfig reads the configuration for the project in dir.
func LoadConfig(dir string) (Config, error) {
	return config.Load(dir)
}

// Open loads the configuration for the project in dir and returns an
// Orchestrator for it. A nil logger uses slog.Default().
func Open(dir string, logger *slog.Logger) (*Orchestrator, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	return New(dir, cfg, logger)
}

// New returns an Orchestrator for the project in dir that resolves
// blueprints from the npm registry in cfg, generates them with cfg's
// commands and merges them with git.
func New(dir string, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := client.NewClient(client.WithTimeout(cfg.Timeout), client.WithMaxRetries(cfg.MaxRetries)).WithUserAgent(userAgent)
	reg, err := core.New("npm", cfg.Registry, c)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithMaxRetries(cfg.MaxRetries), fetch.WithUserAgent(userAgent)))

	driver := install.NewDriver(cfg.InstallCommand, cfg.GenerateCommand, logger)
	engine := diff.NewGitEngine(driver, logger)

	return &update.Orchestrator{
		Dir:       dir,
		StatePath: cfg.StatePath,
		Resolver:  resolve.New(reg, fetcher, cfg.CacheDir, logger),
		Engine:    engine,
		Stager:    engine.Git,
		Defaults:  &state.DiskDefaults{Configured: cfg.Default, StatePath: cfg.StatePath},
		Driver:    driver,
		HTTP:      c,
		Codemods:  &codemods.Runner{Logger: logger},
		Logger:    logger,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
	}, nil
}

// ParseRef parses a blueprint reference: an npm name with an optional
// range, a pkg:npm PURL, a local path or a tarball URL.
func ParseRef(cwd, ref string) (*blueprint.Ref, error) {
	return blueprint.ParseRef(cwd, ref)
}

// LoadState reads the state file at path.
func LoadState(path string) (*Document, error) {
	return state.Load(path)
}

// StateFilePath returns the state file location for the project in dir.
func StateFilePath(dir, statePath string) (string, error) {
	return state.FilePath(dir, statePath)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries
