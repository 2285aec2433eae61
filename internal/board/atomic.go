package board

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// atomicWriteFile writes data to a temporary file in the target directory
// and renames it over filename, so readers never observe a partial entry.
func atomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-board-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
				slog.Warn("[Board] failed to remove temporary file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %q: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	var renameErr error
	if runtime.GOOS == "windows" {
		renameErr = renameReplace(tmp.Name(), filename)
	} else {
		renameErr = os.Rename(tmp.Name(), filename)
	}
	if renameErr != nil {
		return fmt.Errorf("failed to rename temp file: %w", renameErr)
	}
	success = true
	return nil
}
