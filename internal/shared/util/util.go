package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"modgraph/internal/core/errors"
)

// SortedKeys returns the map's keys in sorted order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WriteFileWithDirs creates parent directories (0755) and writes the file
// with perm. Failures carry the IO_ERROR code and the path.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "create artifact directory"), errors.CtxPath, dir)
		}
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write artifact"), errors.CtxPath, path)
	}
	return nil
}

// WriteArtifact writes string content with parent directories created.
func WriteArtifact(path, content string) error {
	return WriteFileWithDirs(path, []byte(content), 0o644)
}
