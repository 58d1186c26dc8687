package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/blueprints"
)

func updateCmd(g *globalFlags) *cobra.Command {
	var (
		opts             blueprints.Options
		createCustomDiff bool
	)

	cmd := &cobra.Command{
		Use:   "blueprint-update",
		Short: "Update a project to a newer version of its blueprint",
		Long: `Update a generated project to a newer version of the blueprint it was
generated from.

Both the recorded version and the target version of the blueprint are
generated into scratch directories and the difference between them is
merged into the project. Local changes are kept; files changed on both
sides are left with conflict markers and marked unmerged in git.

The applied version is recorded in config/blueprint-update.json, or in
the directory named by "blueprint-update.configPath" in package.json.

Examples:
  blueprint-update                          # Update the default blueprint to latest
  blueprint-update --to ^5                  # Update to the newest 5.x release
  blueprint-update -b @glimmer/blueprint    # Update (or apply) another blueprint
  blueprint-update --compare-only           # Print the patch without applying it
  blueprint-update --reset                  # Regenerate from the target version`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.open(cmd)
			if err != nil {
				return err
			}
			msg, err := o.Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if msg != "" {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Blueprint, "blueprint", "b", "", "Blueprint to update: npm name, pkg:npm PURL, local path or tarball URL")
	f.StringVar(&opts.From, "from", "", "Version to update from instead of the recorded one")
	f.StringVar(&opts.To, "to", "", "Version or range to update to (default latest)")
	f.BoolVar(&opts.ResolveConflicts, "resolve-conflicts", false, "Run git mergetool when there are conflicts")
	f.BoolVar(&opts.RunCodemods, "run-codemods", false, "Run the codemods that apply to this project")
	f.BoolVar(&opts.Reset, "reset", false, "Regenerate the project from the target version, discarding the recorded base")
	f.BoolVar(&opts.CompareOnly, "compare-only", false, "Print the difference between the versions without applying it")
	f.BoolVar(&opts.StatsOnly, "stats-only", false, "Print the current and target versions")
	f.BoolVar(&opts.ListCodemods, "list-codemods", false, "List the codemods that apply to this project")
	f.StringVar(&opts.CodemodsURL, "codemods-url", "", "Codemods manifest to use instead of the recorded one")
	f.BoolVar(&createCustomDiff, "create-custom-diff", false, "Generate both versions locally")
	_ = f.MarkDeprecated("create-custom-diff", "both versions are always generated locally")

	return cmd
}
