package update

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/git-pkgs/blueprints/blueprint"
	"github.com/git-pkgs/blueprints/diff"
	"github.com/git-pkgs/blueprints/install"
)

// StartAndEndCommands derives how to generate both sides of an update. The
// result depends only on its arguments.
//
// A base blueprint generates a whole project, so it is told the project
// name from the manifest unless its options already carry one.
func StartAndEndCommands(driver *install.Driver, manifest []byte, base, end *blueprint.Blueprint) *diff.CustomDiff {
	projectName := manifestName(manifest)

	cd := &diff.CustomDiff{End: side(driver, end, projectName)}
	if base != nil {
		start := side(driver, base, projectName)
		cd.Start = &start
	}
	return cd
}

func side(driver *install.Driver, b *blueprint.Blueprint, projectName string) diff.Side {
	options := slices.Clone(b.Options)
	if b.IsBaseBlueprint && projectName != "" && !slices.ContainsFunc(options, func(o string) bool {
		return o == "--name" || strings.HasPrefix(o, "--name=")
	}) {
		options = append(options, "--name="+projectName)
	}

	s := diff.Side{
		PackageName:   b.PackageName,
		Version:       b.Version,
		BlueprintPath: blueprintPath(b),
		BlueprintName: b.Name,
		Options:       options,
	}
	s.Command = driver.CommandLine(install.Options{
		PackageName:      s.PackageName,
		Version:          s.Version,
		BlueprintPath:    s.BlueprintPath,
		BlueprintName:    s.BlueprintName,
		BlueprintOptions: s.Options,
	})
	return s
}

// blueprintPath is what the installer gets for blueprints that are not
// installed from the registry by name.
func blueprintPath(b *blueprint.Blueprint) string {
	switch {
	case b.Location == "":
		return ""
	case isURL(b.Location):
		return b.Location
	case b.Path != "":
		return b.Path
	}
	return b.Location
}

func manifestName(manifest []byte) string {
	if len(manifest) == 0 {
		return ""
	}
	var m struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(manifest, &m) != nil {
		return ""
	}
	return m.Name
}
