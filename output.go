// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data next to path and renames it into place.
// An existing file at path is rotated into backupKeep `.bak` generations first.
// On failure no partial output is left at path.
func writeFileAtomic(path string, data []byte, backupKeep int) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	rotated, err := rotateBackups(path, backupKeep)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if rotated {
			// Put the previous output back; older generations stay shifted.
			if restoreErr := os.Rename(backupName(path, 0), path); restoreErr != nil {
				return fmt.Errorf("rename temp file: %w (restore failed: %v)", err, restoreErr)
			}
		}

		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// backupName returns generation gen of path backups: ".bak", ".bak.1", ".bak.2", ...
func backupName(path string, gen int) string {
	if gen == 0 {
		return path + ".bak"
	}

	return fmt.Sprintf("%s.bak.%d", path, gen)
}

// rotateBackups shifts existing backups one generation up, drops the one past keep
// and moves the current file at path into ".bak". It reports whether path was moved.
// With keep <= 0 nothing is touched and the file is simply replaced.
func rotateBackups(path string, keep int) (bool, error) {
	if keep <= 0 {
		return false, nil
	}

	if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.Remove(backupName(path, keep-1)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("drop oldest backup: %w", err)
	}

	for gen := keep - 2; gen >= 0; gen-- {
		err := os.Rename(backupName(path, gen), backupName(path, gen+1))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("shift backup %d: %w", gen, err)
		}
	}

	if err := os.Rename(path, backupName(path, 0)); err != nil {
		return false, fmt.Errorf("move output to backup: %w", err)
	}

	return true, nil
}
