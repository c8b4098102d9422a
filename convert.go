// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Convert runs the full edit pipeline over in-memory container bytes.
// The input slice is not modified; on success a new container image is returned.
func Convert(data []byte, opts ConvertOptions) ([]byte, *ConvertResult, error) {
	started := time.Now()
	opts.applyDefaults()

	container, err := ParseContainer(data)
	if err != nil {
		return nil, nil, err
	}

	entries, err := DecodeArchive(container.PakData())
	if err != nil {
		return nil, nil, err
	}

	_, oldPakSize := container.PakRange()
	opts.Logger.Debug("decoded pak lump",
		slog.Int("entries", len(entries)),
		slog.String("size", humanize.IBytes(uint64(oldPakSize))),
	)

	if opts.PrintPak {
		logEntries(opts.Logger, entries)
	}

	edited, stats, err := applyOperations(opts.Operations, entries, opts.applyOptions())
	if err != nil {
		return nil, nil, err
	}

	res := &ConvertResult{
		Entries:    len(edited),
		Added:      stats.Added,
		Replaced:   stats.Replaced,
		Removed:    stats.Removed,
		OldPakSize: oldPakSize,
	}

	var out []byte
	if opts.SkipPakRewrite {
		opts.Logger.Debug("pak rewrite disabled, container left unchanged")
		out = slices.Clone(data)
		res.Entries = len(entries)
		res.NewPakSize = oldPakSize
	} else {
		archive, err := EncodeArchive(edited, opts.Encode)
		if err != nil {
			return nil, nil, err
		}

		out, err = container.Splice(archive)
		if err != nil {
			return nil, nil, err
		}

		res.NewPakSize = int64(len(archive))
	}

	res.OutputSize = int64(len(out))
	res.Duration = time.Since(started)

	return out, res, nil
}

// ConvertFile reads container at inPath, converts it and writes result to outPath.
// The input file is never modified: an outPath resolving to inPath fails with ErrOutputIsInput.
func ConvertFile(ctx context.Context, inPath string, outPath string, opts ConvertOptions) (*ConvertResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts.applyDefaults()

	if same, err := sameFile(inPath, outPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailure, inPath, err)
	} else if same {
		return nil, fmt.Errorf("%w: %s", ErrOutputIsInput, outPath)
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailure, inPath, err)
	}

	out, res, err := Convert(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inPath, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := writeFileAtomic(outPath, out, opts.BackupKeep); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteFailure, outPath, err)
	}

	opts.Logger.Info("container written",
		slog.String("path", outPath),
		slog.Int("entries", res.Entries),
		slog.String("pak", humanize.IBytes(uint64(res.OldPakSize))+" -> "+humanize.IBytes(uint64(res.NewPakSize))),
		slog.Duration("took", res.Duration),
	)

	return res, nil
}

// PatchedPath returns default output path for an edited container: "<name>.patched<ext>".
func PatchedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".patched" + ext
}

// sameFile reports whether both paths name one file, by cleaned absolute path
// or, when both exist, by os.SameFile (hard links and symlinks).
func sameFile(a string, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}

	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}

	if absA == absB {
		return true, nil
	}

	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false, nil
	}

	return os.SameFile(infoA, infoB), nil
}

// ListPak returns pak lump entry metadata of container file at path.
func ListPak(path string) ([]EntryInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailure, path, err)
	}

	container, err := ParseContainer(data)
	if err != nil {
		return nil, err
	}

	return ListArchive(container.PakData())
}

// logEntries prints every decoded entry with its size.
func logEntries(logger *slog.Logger, entries []Entry) {
	for i := range entries {
		logger.Info("pak entry",
			slog.String("path", entries[i].Path),
			slog.String("size", humanize.IBytes(uint64(entries[i].Size()))),
		)
	}
}
