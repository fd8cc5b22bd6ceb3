package engine

import (
	"os"
	"path/filepath"

	"github.com/blksword/flashdir/pkg/format"
)

func osStat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// canonicalize resolves path to an absolute, symlink-resolved,
// forward-slash-normalized string (spec GLOSSARY: "Canonical path"), used
// as the cache key.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(resolved), nil
}

func formatBytes(n int64) string {
	return format.Bytes(n)
}
