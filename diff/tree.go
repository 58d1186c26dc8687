package diff

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// skippedDirs never hold blueprint output.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

type tree map[string]fs.FileMode

// snapshot lists the regular files under root by slash path, leaving out
// ignored paths.
func snapshot(root string, ignored map[string]bool) (tree, error) {
	t := make(tree)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return t, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignored[rel] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		t[rel] = info.Mode().Perm()
		return nil
	})
	return t, err
}

func (t tree) union(other tree) []string {
	paths := make([]string, 0, len(t)+len(other))
	for p := range t {
		paths = append(paths, p)
	}
	for p := range other {
		if _, ok := t[p]; !ok {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func writeFile(path string, data []byte, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}
	return os.WriteFile(path, data, mode)
}

func isBinary(data []byte) bool {
	n := min(len(data), 8000)
	return bytes.IndexByte(data[:n], 0) >= 0
}

func ignoredSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[filepath.ToSlash(filepath.Clean(p))] = true
	}
	return set
}
