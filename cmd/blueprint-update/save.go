package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/blueprints"
)

func saveCmd(g *globalFlags) *cobra.Command {
	var opts blueprints.SaveOptions

	cmd := &cobra.Command{
		Use:   "save --from <version> [-- <generator options>...]",
		Short: "Record the blueprint version a project was generated with",
		Long: `Record that the project was generated from a blueprint at the given
version, without changing any project files. Use it for projects created
before they had a state file, so later updates know where to start.

Arguments after -- are the options the blueprint generator was run with.

Examples:
  blueprint-update save --from 4.12.0
  blueprint-update save -b @glimmer/blueprint --from 0.14.0 -- --typescript`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.BlueprintOptions = args

			o, err := g.open(cmd)
			if err != nil {
				return err
			}
			b, err := o.Save(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s@%s\n", b.Identity(), b.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Blueprint, "blueprint", "b", "", "Blueprint to record (default: the project's default blueprint)")
	cmd.Flags().StringVar(&opts.From, "from", "", "Version the project was generated with (required)")
	cmd.Flags().StringVar(&opts.CodemodsURL, "codemods-url", "", "Codemods manifest for this blueprint")

	return cmd
}
