package main

import (
	"github.com/spf13/cobra"

	"github.com/git-pkgs/blueprints"
	"github.com/git-pkgs/blueprints/install"
	"github.com/git-pkgs/blueprints/resolve"
)

func generateCmd(g *globalFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "generate <blueprint> [-- <generator options>...]",
		Short: "Install a blueprint and run its generator",
		Long: `Install a blueprint package into the project and run its generator,
without reading or writing the state file.

Examples:
  blueprint-update generate ember-cli@4.12.0 -- --name my-app
  blueprint-update generate ./my-blueprint --name component`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.open(cmd)
			if err != nil {
				return err
			}

			ref, err := blueprints.ParseRef(o.Dir, args[0])
			if err != nil {
				return err
			}
			info, err := o.Resolver.Resolve(cmd.Context(), resolve.Request{Name: ref.Name, URL: ref.URL, Range: ref.Range, Registry: ref.Registry})
			if err != nil {
				return err
			}

			opts := install.Options{
				Dir:              o.Dir,
				PackageName:      info.Name,
				Version:          info.Version,
				BlueprintName:    name,
				BlueprintOptions: args[1:],
				Stdin:            o.Stdin,
				Stdout:           o.Stdout,
			}
			if ref.URL != "" {
				opts.BlueprintPath = ref.URL
			}
			if opts.BlueprintName == "" {
				opts.BlueprintName = info.Name
			}

			p, err := o.Driver.InstallAndGenerate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return p.Wait()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Blueprint to generate (default: the package name)")

	return cmd
}
