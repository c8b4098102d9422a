// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNilEditor is returned by methods called on a nil Editor.
var ErrNilEditor = errors.New("nil editor")

// Editor accumulates pipeline operations for one container and applies them on Commit.
type Editor struct {
	path string
	ops  []Operation
	opts ConvertOptions
}

// OpenEditor creates staged editor for file-based container rewrite workflow.
// Operations already present in opts run before staged ones.
func OpenEditor(path string, opts ConvertOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("%w: empty container path", ErrReadFailure)
	}

	opts.applyDefaults()

	return &Editor{
		path: trimmedPath,
		opts: opts,
		ops:  slices.Clone(opts.Operations),
	}, nil
}

// Add schedules add operations; values are validated immediately.
func (e *Editor) Add(values ...string) error {
	if e == nil {
		return ErrNilEditor
	}

	for _, value := range values {
		if _, err := ParseAddValue(value); err != nil {
			return err
		}
	}

	for _, value := range values {
		e.ops = append(e.ops, NewAddOperation(value))
	}

	return nil
}

// Remove schedules prefix removal operations.
func (e *Editor) Remove(prefixes ...string) error {
	if e == nil {
		return ErrNilEditor
	}

	for _, prefix := range prefixes {
		if _, err := normalizeRemovePrefix(prefix); err != nil {
			return err
		}
	}

	for _, prefix := range prefixes {
		e.ops = append(e.ops, NewRemoveOperation(prefix))
	}

	return nil
}

// Operations returns a copy of staged operations in execution order.
func (e *Editor) Operations() []Operation {
	if e == nil {
		return nil
	}

	return slices.Clone(e.ops)
}

// Commit applies staged operations and writes the container to outPath.
// Empty outPath writes PatchedPath of the source; the source itself is never rewritten.
// An existing output is rotated into BackupKeep generations.
func (e *Editor) Commit(ctx context.Context, outPath string) (*ConvertResult, error) {
	if e == nil {
		return nil, ErrNilEditor
	}

	if strings.TrimSpace(outPath) == "" {
		outPath = PatchedPath(e.path)
	}

	opts := e.opts
	opts.Operations = slices.Clone(e.ops)

	return ConvertFile(ctx, e.path, outPath, opts)
}
