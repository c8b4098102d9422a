// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package workshop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Directory provider layout.
const (
	itemFileName   = "item.yaml"
	contentDirName = "content"
)

// DirProvider serves items from a local mirror directory:
//
//	<Root>/<id>/item.yaml   item record
//	<Root>/<id>/content/    installed content files
//
// It backs offline runs and tests.
type DirProvider struct {
	Root string
}

// itemRecord is the item.yaml document.
type itemRecord struct {
	Metadata    Metadata `yaml:"metadata,omitempty"`
	Item        `yaml:",inline"`
	ChangeNotes []string `yaml:"change_notes,omitempty"`
	Revision    int      `yaml:"revision"`
}

// NewDirProvider returns provider rooted at root.
func NewDirProvider(root string) *DirProvider {
	return &DirProvider{Root: root}
}

// ListOwnedItems returns items of every subdirectory holding item.yaml, ordered by directory name.
func (p *DirProvider) ListOwnedItems(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirs, err := os.ReadDir(p.Root)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]Item, 0, len(dirs))
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		id, err := strconv.ParseUint(dir.Name(), 10, 64)
		if err != nil {
			continue
		}

		rec, err := p.readRecord(id)
		if errors.Is(err, ErrItemNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		items = append(items, rec.Item)
	}

	return items, nil
}

// InstallDir returns item content folder when it exists.
func (p *DirProvider) InstallDir(ctx context.Context, id uint64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := p.readRecord(id); err != nil {
		return "", err
	}

	contentDir := p.contentDir(id)
	info, err := os.Stat(contentDir)
	if err != nil {
		return "", fmt.Errorf("%w: %d: %w", ErrNotInstalled, id, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %d: content is not a directory", ErrNotInstalled, id)
	}

	return contentDir, nil
}

// Download reports item content as installed and returns its content folder.
func (p *DirProvider) Download(ctx context.Context, id uint64, progress ProgressFunc) (string, error) {
	contentDir, err := p.InstallDir(ctx, id)
	if err != nil {
		return "", err
	}

	total, err := dirSize(contentDir)
	if err != nil {
		return "", fmt.Errorf("%w: %d: %w", ErrNotInstalled, id, err)
	}

	if progress != nil {
		progress(total, total)
	}

	return contentDir, nil
}

// Upload replaces item content with localPath and records metadata and change note.
func (p *DirProvider) Upload(ctx context.Context, id uint64, localPath string, meta Metadata, changeNote string, progress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := p.readRecord(id)
	if err != nil {
		return err
	}

	if rec.Type != ItemCommunity {
		return fmt.Errorf("%w: item %d has type %q", ErrUploadRejected, id, rec.Type)
	}

	contentDir := p.contentDir(id)
	if err := os.RemoveAll(contentDir); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}

	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return fmt.Errorf("create content: %w", err)
	}

	if meta.FileName == "" {
		meta.FileName = filepath.Base(localPath)
	}

	if err := copyFile(ctx, localPath, filepath.Join(contentDir, meta.FileName), progress); err != nil {
		return err
	}

	rec.Metadata = meta
	rec.Revision++
	if changeNote != "" {
		rec.ChangeNotes = append(rec.ChangeNotes, changeNote)
	}

	return p.writeRecord(rec)
}

// Publish creates or overwrites an item record; content is left untouched.
func (p *DirProvider) Publish(item Item) error {
	if err := os.MkdirAll(p.contentDir(item.ID), 0o755); err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	return p.writeRecord(itemRecord{Item: item})
}

// ChangeNotes returns recorded change notes of item.
func (p *DirProvider) ChangeNotes(id uint64) ([]string, error) {
	rec, err := p.readRecord(id)
	if err != nil {
		return nil, err
	}

	return rec.ChangeNotes, nil
}

// itemDir returns item directory path.
func (p *DirProvider) itemDir(id uint64) string {
	return filepath.Join(p.Root, strconv.FormatUint(id, 10))
}

// contentDir returns item content directory path.
func (p *DirProvider) contentDir(id uint64) string {
	return filepath.Join(p.itemDir(id), contentDirName)
}

// readRecord loads item.yaml of id.
func (p *DirProvider) readRecord(id uint64) (itemRecord, error) {
	data, err := os.ReadFile(filepath.Join(p.itemDir(id), itemFileName))
	if errors.Is(err, os.ErrNotExist) {
		return itemRecord{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if err != nil {
		return itemRecord{}, fmt.Errorf("read item %d: %w", id, err)
	}

	var rec itemRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return itemRecord{}, fmt.Errorf("decode item %d: %w", id, err)
	}

	rec.ID = id
	return rec, nil
}

// writeRecord stores item.yaml.
func (p *DirProvider) writeRecord(rec itemRecord) error {
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode item %d: %w", rec.ID, err)
	}

	if err := os.WriteFile(filepath.Join(p.itemDir(rec.ID), itemFileName), data, 0o644); err != nil {
		return fmt.Errorf("write item %d: %w", rec.ID, err)
	}

	return nil
}

// dirSize sums regular file sizes under dir.
func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		total += uint64(info.Size())
		return nil
	})

	return total, err
}

// copyFile copies src to dst reporting progress after every chunk.
func copyFile(ctx context.Context, src string, dst string, progress ProgressFunc) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat upload: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create content file: %w", err)
	}

	w := &progressWriter{ctx: ctx, w: out, total: uint64(info.Size()), progress: progress}
	if _, err := io.Copy(w, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy upload: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close content file: %w", err)
	}

	return nil
}

// progressWriter forwards writes and reports transferred bytes.
type progressWriter struct {
	ctx      context.Context
	w        io.Writer
	progress ProgressFunc
	done     uint64
	total    uint64
}

// Write implements io.Writer.
func (pw *progressWriter) Write(b []byte) (int, error) {
	if err := pw.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := pw.w.Write(b)
	pw.done += uint64(n)
	if pw.progress != nil {
		pw.progress(pw.done, pw.total)
	}

	return n, err
}
