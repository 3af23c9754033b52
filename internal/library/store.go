package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFilePerm is used for every file the toolchain writes
const DefaultFilePerm = 0o644

// Load reads and validates a library file
func Load(path string) (*Library, error) {
	if path == "" {
		return nil, fmt.Errorf("library path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("library does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read library: %w", err)
	}

	return Decode(data)
}

// Decode parses library bytes after schema validation
func Decode(data []byte) (*Library, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to decode library: %w", err)
	}
	lib.Normalize()
	return &lib, nil
}

// Save rewrites the whole library file in one atomic replace
func Save(path string, lib *Library) error {
	lib.Normalize()
	data, err := EncodeIndent(lib)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// EncodeIndent encodes v as two-space indented JSON without HTML escaping
func EncodeIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeCompact encodes v without any insignificant whitespace
func EncodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it over path
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, DefaultFilePerm); err != nil {
		return fmt.Errorf("cannot chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("cannot replace %s: %w", path, err)
	}
	return nil
}
