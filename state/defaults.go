package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
)

// ErrNoDefaultBlueprint is returned when a project has no blueprint to fall
// back on and none was named.
var ErrNoDefaultBlueprint = errors.New("no blueprint given and no default blueprint found")

// Default is the project's implicit blueprint, used when none is named.
type Default struct {
	PackageName string `yaml:"packageName" json:"packageName"`
	Name        string `yaml:"name" json:"name"`
	CodemodsURL string `yaml:"codemodsUrl" json:"codemodsUrl"`

	// Location is a local path or tarball URL for blueprints that are not
	// installed from the registry by name.
	Location string `yaml:"location" json:"location"`
}

// DefaultLoader supplies the default blueprint for a project.
type DefaultLoader interface {
	LoadDefault(dir string) (*Default, error)
}

// DiskDefaults finds the default blueprint from, in order: the configured
// descriptor, the base record of the state file, and the ember-cli
// dependency of the project manifest.
type DiskDefaults struct {
	Configured *Default
	StatePath  string
}

func (d *DiskDefaults) LoadDefault(dir string) (*Default, error) {
	if d.Configured != nil && (d.Configured.PackageName != "" || d.Configured.Location != "") {
		def := *d.Configured
		if def.Name == "" {
			def.Name = def.PackageName
		}
		return &def, nil
	}

	path, err := FilePath(dir, d.StatePath)
	if err != nil {
		return nil, err
	}
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	if base := doc.Base(); base != nil {
		return &Default{
			PackageName: base.PackageName,
			Name:        base.Name,
			CodemodsURL: base.CodemodsURL,
			Location:    base.Location,
		}, nil
	}

	if def := emberDefault(dir); def != nil {
		return def, nil
	}
	return nil, ErrNoDefaultBlueprint
}

const emberCodemodsURL = "https://raw.githubusercontent.com/ember-cli/ember-cli-update-codemods-manifest/v4/manifest.json"

func emberDefault(dir string) *Default {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	var m struct {
		Keywords        []string          `json:"keywords"`
		DevDependencies map[string]string `json:"devDependencies"`
		Dependencies    map[string]string `json:"dependencies"`
	}
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	_, dev := m.DevDependencies["ember-cli"]
	_, dep := m.Dependencies["ember-cli"]
	if !dev && !dep {
		return nil
	}

	name := "app"
	if slices.Contains(m.Keywords, "ember-addon") {
		name = "addon"
	}
	return &Default{PackageName: "ember-cli", Name: name, CodemodsURL: emberCodemodsURL}
}
