// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidExtractPath means an entry path is absolute, empty or escapes the output directory.
var ErrInvalidExtractPath = errors.New("invalid extract path")

// ExtractOptions configures writing pak entries to a directory.
type ExtractOptions struct {
	// OnEntryDone is called after one entry file is written.
	OnEntryDone func(entry Entry, outputPath string) `json:"-" yaml:"-"`
	// Prefix limits extraction to entries under this archive directory (or exact file).
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// CreateOnly fails instead of overwriting existing files.
	CreateOnly bool `json:"create_only,omitempty" yaml:"create_only,omitempty"`
}

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   Entry
}

// ExtractPak decodes pak lump of container at path and writes its entries under dstDir.
func ExtractPak(ctx context.Context, path string, dstDir string, opts ExtractOptions) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrReadFailure, path, err)
	}

	container, err := ParseContainer(data)
	if err != nil {
		return 0, err
	}

	entries, err := DecodeArchive(container.PakData())
	if err != nil {
		return 0, err
	}

	return ExtractArchive(ctx, entries, dstDir, opts)
}

// ExtractArchive writes entries under dstDir in list order and returns number of written files.
// Every path is validated before the first file is written.
func ExtractArchive(ctx context.Context, entries []Entry, dstDir string, opts ExtractOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	entries = FilterEntries(entries, opts.Prefix)
	if len(entries) == 0 {
		return 0, nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return 0, fmt.Errorf("resolve output dir: %w", err)
	}

	workItems, err := prepareExtractWorkItems(entries)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return 0, err
	}

	written := 0
	for _, task := range workItems {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		outPath := filepath.Join(dstRootAbs, task.relPath)
		if err := writeExtractFile(outPath, task.entry.Data, opts.CreateOnly); err != nil {
			return written, fmt.Errorf("%w: %s: %w", ErrWriteFailure, task.entry.Path, err)
		}

		written++
		if opts.OnEntryDone != nil {
			opts.OnEntryDone(task.entry, outPath)
		}
	}

	return written, nil
}

// prepareExtractWorkItems validates selected entries and prepares relative fs paths.
func prepareExtractWorkItems(entries []Entry) ([]extractWorkItem, error) {
	workItems := make([]extractWorkItem, 0, len(entries))
	for _, entry := range entries {
		normalizedPath, err := normalizeExtractEntryPath(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, entry.Path)
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		if _, exists := seen[task.relDir]; exists {
			continue
		}

		seen[task.relDir] = struct{}{}
		dirPath := filepath.Join(dstRootAbs, task.relDir)
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// writeExtractFile writes one entry file, refusing to replace existing files in create-only mode.
func writeExtractFile(path string, data []byte, createOnly bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if createOnly {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}

	raw = NormalizeSlashes(raw)
	if strings.HasPrefix(raw, "/") || hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, "/")
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, "/"), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive prefix like C:.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 2 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
