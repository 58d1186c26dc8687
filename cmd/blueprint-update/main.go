package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/blueprints"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		stop()
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	dir     string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := updateCmd(g)
	rootCmd.PersistentFlags().StringVarP(&g.dir, "cwd", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(
		saveCmd(g),
		generateCmd(g),
		versionCmd(),
	)
	return rootCmd
}

func (g *globalFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open returns an orchestrator for the project directory that talks to the
// command's streams.
func (g *globalFlags) open(cmd *cobra.Command) (*blueprints.Orchestrator, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, err
	}
	o, err := blueprints.Open(dir, g.logger(cmd))
	if err != nil {
		return nil, err
	}
	o.Stdin = cmd.InOrStdin()
	o.Stdout = cmd.OutOrStdout()
	return o, nil
}
