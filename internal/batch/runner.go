// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

// Package batch runs a configured job: find and download workshop maps,
// convert every map into the output directory, confirm, then upload.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/woozymasta/bsppak"
	"github.com/woozymasta/bsppak/internal/config"
	"github.com/woozymasta/bsppak/internal/workshop"
)

// Batch errors.
var (
	// ErrNoMaps means the job lists neither workshop ids nor local maps.
	ErrNoMaps = errors.New("no maps defined")
	// ErrNoProvider means workshop maps are configured without a provider.
	ErrNoProvider = errors.New("workshop provider is not configured")
	// ErrMissingItems means configured workshop ids are not owned items.
	ErrMissingItems = errors.New("workshop maps not found")
	// ErrMapNotFound means no container file was found in an install folder.
	ErrMapNotFound = errors.New("map file not found")
	// ErrAborted means the upload confirmation was declined.
	ErrAborted = errors.New("aborted by user")
)

// mapPattern locates the container in an install folder.
const mapPattern = "*.bsp"

// ConfirmFunc asks whether converted maps may be uploaded.
type ConfirmFunc func(ctx context.Context, outputDir string) (bool, error)

// Runner executes one job. Maps are processed one at a time.
type Runner struct {
	// Config is the loaded job.
	Config *config.Config
	// Provider serves workshop items; required when the job lists workshop ids.
	Provider workshop.Provider
	// Logger receives progress; nil discards.
	Logger *slog.Logger
	// Confirm gates uploads; nil declines every upload.
	Confirm ConfirmFunc
	// Sleep waits between uploads; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OutputDir overrides Config.ResolveOutputDir.
	OutputDir string
}

// MapResult describes one converted map.
type MapResult struct {
	Result     *bsppak.ConvertResult
	Source     string
	Output     string
	WorkshopID uint64
}

// Report summarizes a finished run.
type Report struct {
	Maps     []MapResult
	Uploaded []uint64
}

// Run executes enabled stages in order. The first failure aborts the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.Config == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := r.Config
	tool := cfg.Tool
	ids := cfg.WorkshopIDs()
	locals := cfg.LocalMaps()

	if len(ids) == 0 {
		if len(locals) == 0 {
			return nil, ErrNoMaps
		}

		tool.DownloadMaps = false
		tool.UploadMaps = false
	}

	if len(ids) > 0 && r.Provider == nil {
		return nil, ErrNoProvider
	}

	items, err := r.findItems(ctx, logger, ids)
	if err != nil {
		return nil, err
	}

	if tool.DownloadMaps {
		if err := r.download(ctx, logger, items); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	outputDir := r.outputDir()

	if tool.OperateMaps {
		maps, err := r.operate(ctx, logger, items, locals, outputDir)
		if err != nil {
			return report, err
		}

		report.Maps = maps
	}

	if tool.UploadMaps {
		uploaded, err := r.upload(ctx, logger, report.Maps, outputDir, tool)
		report.Uploaded = uploaded
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

// findItems lists owned items and returns configured ones in config order.
func (r *Runner) findItems(ctx context.Context, logger *slog.Logger, ids []uint64) ([]workshop.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	logger.Info("finding owned workshop maps")
	owned, err := r.Provider.ListOwnedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owned items: %w", err)
	}

	byID := make(map[uint64]workshop.Item, len(owned))
	for _, item := range owned {
		if item.Type != workshop.ItemCommunity {
			continue
		}

		byID[item.ID] = item
		logger.Info("owned map",
			slog.String("title", item.Title),
			slog.Uint64("id", item.ID),
			slog.Bool("selected", slices.Contains(ids, item.ID)),
		)
	}

	var missing []string
	items := make([]workshop.Item, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			missing = append(missing, fmt.Sprint(id))
			continue
		}

		items = append(items, item)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingItems, strings.Join(missing, ", "))
	}

	return items, nil
}

// download fetches every selected item.
func (r *Runner) download(ctx context.Context, logger *slog.Logger, items []workshop.Item) error {
	for _, item := range items {
		logger.Info("downloading map", slog.Uint64("id", item.ID))

		dir, err := r.Provider.Download(ctx, item.ID, progressLogger(logger, "download", item.ID))
		if err != nil {
			return fmt.Errorf("download %d: %w", item.ID, err)
		}

		logger.Debug("map installed", slog.Uint64("id", item.ID), slog.String("dir", dir))
	}

	return nil
}

// operate converts workshop maps then local maps into outputDir.
func (r *Runner) operate(ctx context.Context, logger *slog.Logger, items []workshop.Item, locals []string, outputDir string) ([]MapResult, error) {
	if err := prepareOutputDir(outputDir); err != nil {
		return nil, err
	}

	opts, err := r.Config.ConvertOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger

	results := make([]MapResult, 0, len(items)+len(locals))
	for _, item := range items {
		dir, err := r.Provider.InstallDir(ctx, item.ID)
		if err != nil {
			return results, fmt.Errorf("install info %d: %w", item.ID, err)
		}

		src, err := findMap(dir)
		if err != nil {
			return results, fmt.Errorf("map %d: %w", item.ID, err)
		}

		logger.Info("operating on workshop map", slog.Uint64("id", item.ID), slog.String("path", src))
		res, err := convertInto(ctx, src, outputDir, opts)
		if err != nil {
			return results, err
		}

		res.WorkshopID = item.ID
		results = append(results, res)
	}

	for _, pattern := range locals {
		sources, err := expandLocal(pattern)
		if err != nil {
			return results, err
		}

		for _, src := range sources {
			logger.Info("operating on local map", slog.String("path", src))
			res, err := convertInto(ctx, src, outputDir, opts)
			if err != nil {
				return results, err
			}

			results = append(results, res)
		}
	}

	return results, nil
}

// upload confirms and uploads converted workshop maps, deleting each temp map afterwards.
func (r *Runner) upload(ctx context.Context, logger *slog.Logger, maps []MapResult, outputDir string, tool config.Tool) ([]uint64, error) {
	pending := make([]MapResult, 0, len(maps))
	for _, m := range maps {
		if m.WorkshopID != 0 {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		logger.Warn("no converted workshop maps to upload")
		return nil, nil
	}

	confirmed := false
	if r.Confirm != nil {
		var err error
		confirmed, err = r.Confirm(ctx, outputDir)
		if err != nil {
			return nil, err
		}
	}

	if !confirmed {
		return nil, ErrAborted
	}

	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	uploaded := make([]uint64, 0, len(pending))
	for i, m := range pending {
		if i > 0 && tool.UploadDelay > 0 {
			logger.Info("waiting before next upload", slog.Duration("delay", tool.UploadDelay))
			if err := sleep(ctx, tool.UploadDelay); err != nil {
				return uploaded, err
			}
		}

		logger.Info("uploading map", slog.Uint64("id", m.WorkshopID), slog.String("path", m.Output))
		meta := workshop.Metadata{FileName: filepath.Base(m.Output)}
		err := r.Provider.Upload(ctx, m.WorkshopID, m.Output, meta, tool.ChangeNote, progressLogger(logger, "upload", m.WorkshopID))

		if rmErr := os.Remove(m.Output); rmErr != nil {
			logger.Error("failed to delete temporary map", slog.String("path", m.Output), slog.Any("err", rmErr))
			if err == nil {
				err = fmt.Errorf("delete temporary map: %w", rmErr)
			}
		}

		if err != nil {
			return uploaded, fmt.Errorf("upload %d: %w", m.WorkshopID, err)
		}

		uploaded = append(uploaded, m.WorkshopID)
	}

	return uploaded, nil
}

// outputDir returns effective output directory.
func (r *Runner) outputDir() string {
	if r.OutputDir != "" {
		return r.OutputDir
	}

	return r.Config.ResolveOutputDir()
}

// convertInto converts src into outputDir keeping its file name.
func convertInto(ctx context.Context, src string, outputDir string, opts bsppak.ConvertOptions) (MapResult, error) {
	out := filepath.Join(outputDir, filepath.Base(src))

	res, err := bsppak.ConvertFile(ctx, src, out, opts)
	if err != nil {
		return MapResult{}, err
	}

	return MapResult{Source: src, Output: out, Result: res}, nil
}

// findMap returns first container file in install folder by name order.
func findMap(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), mapPattern)
	if err != nil {
		return "", fmt.Errorf("search %s: %w", dir, err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: in %s", ErrMapNotFound, dir)
	}

	slices.Sort(matches)
	return filepath.Join(dir, filepath.FromSlash(matches[0])), nil
}

// expandLocal expands a local map value; plain paths are returned as is.
func expandLocal(pattern string) ([]string, error) {
	if !hasGlobMeta(pattern) {
		return []string{filepath.FromSlash(pattern)}, nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid pattern %q", config.ErrInvalidConfig, pattern)
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", pattern, err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q matched nothing", ErrMapNotFound, pattern)
	}

	slices.Sort(matches)
	return matches, nil
}

// hasGlobMeta reports whether value contains glob syntax.
func hasGlobMeta(value string) bool {
	return strings.ContainsAny(path.Base(value), "*?[{") || strings.Contains(value, "**")
}

// prepareOutputDir creates dir and deletes its non-hidden files left from previous runs.
func prepareOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list output dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clear output dir: %w", err)
		}
	}

	return nil
}

// progressLogger logs transfer progress at debug level.
func progressLogger(logger *slog.Logger, action string, id uint64) workshop.ProgressFunc {
	return func(done uint64, total uint64) {
		logger.Debug(action+" progress",
			slog.Uint64("id", id),
			slog.String("done", humanize.IBytes(done)),
			slog.String("total", humanize.IBytes(total)),
		)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
