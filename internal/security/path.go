// Package security confines file access to a configured directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the root directory
var ErrOutsideRoot = errors.New("path is outside root directory")

// Root resolves untrusted relative paths below one directory
type Root struct {
	dir string
}

// NewRoot creates a root for dir. The directory does not have to exist yet.
func NewRoot(dir string) (*Root, error) {
	if dir == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &Root{dir: filepath.Clean(abs)}, nil
}

// Dir returns the absolute root directory
func (r *Root) Dir() string {
	return r.dir
}

// Resolve maps a slash separated relative path to an absolute path below the
// root. Absolute paths, NUL bytes and paths leaving the root are rejected.
func (r *Root) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("path contains NUL byte")
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}

	full := filepath.Join(r.dir, native)
	if !r.Contains(full) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return full, nil
}

// Contains reports whether path lies below the root, following symlinks of
// paths that exist
func (r *Root) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if !within(filepath.Clean(abs), r.dir) {
		return false
	}

	realDir := r.dir
	if resolved, err := filepath.EvalSymlinks(r.dir); err == nil {
		realDir = resolved
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return within(resolved, realDir)
	}
	if _, err := os.Lstat(abs); err == nil {
		// exists but cannot be resolved, e.g. a dangling link
		return false
	}
	return true
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
