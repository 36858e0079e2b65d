// Package storage provides the atomic filesystem primitives the token
// store and throttle depend on (write-temp-then-rename, exclusive create,
// advisory locking) plus the active health probe that proves the backing
// filesystem actually supports them.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory and file modes for the permission-locked private tree.
const (
	DirMode  = 0o700
	FileMode = 0o600
)

// EnsureDir creates the directory (and parents) with the private mode.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, DirMode)
}

// WriteFileAtomic writes data to a temp file in the target's directory,
// fsyncs it, then renames it over the final path. Readers never observe a
// partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

// CreateExclusiveAtomic writes data to the final path with an
// exclusive-create guard: if the path already exists the write fails
// loudly instead of overwriting. The data itself still lands via
// temp-then-rename so a crash cannot leave a partial record, with the
// exclusive create acting as the collision gate.
func CreateExclusiveAtomic(path string, data []byte) error {
	// The exclusive create reserves the path; a concurrent writer for the
	// same path loses here.
	guard, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FileMode)
	if err != nil {
		return fmt.Errorf("exclusive create: %w", err)
	}
	if err := guard.Close(); err != nil {
		return fmt.Errorf("close guard: %w", err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// CreateExclusive creates an empty file failing if it exists. Used for
// sentinel files and by the health probe.
func CreateExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FileMode)
	if err != nil {
		return err
	}
	return f.Close()
}
