package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultPath is where the state file lives unless configured otherwise.
const DefaultPath = "config/blueprint-update.json"

const fileName = "blueprint-update.json"

type projectManifest struct {
	BlueprintUpdate struct {
		ConfigPath string `json:"configPath"`
	} `json:"blueprint-update"`
}

// FilePath returns the absolute state file path for the project in dir.
// A "blueprint-update.configPath" entry in package.json names the directory
// holding the file and takes precedence over statePath.
func FilePath(dir, statePath string) (string, error) {
	rel, err := RelativeFilePath(dir, statePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(rel)), nil
}

// RelativeFilePath is FilePath relative to dir, in slash form.
func RelativeFilePath(dir, statePath string) (string, error) {
	if statePath == "" {
		statePath = DefaultPath
	}

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return "", err
	default:
		var m projectManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		if m.BlueprintUpdate.ConfigPath != "" {
			return filepath.ToSlash(filepath.Join(m.BlueprintUpdate.ConfigPath, fileName)), nil
		}
	}

	if filepath.IsAbs(statePath) {
		rel, err := filepath.Rel(dir, statePath)
		if err != nil {
			return "", err
		}
		statePath = rel
	}
	return filepath.ToSlash(filepath.Clean(statePath)), nil
}
