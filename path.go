// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"fmt"
	"path"
	"strings"
)

// addSeparator marks the boundary between filesystem root and archive path in add values.
const addSeparator = "//"

// AddTarget is the parsed form of an add operation value.
type AddTarget struct {
	// BaseDir is filesystem root including its trailing slash.
	BaseDir string `json:"base_dir" yaml:"base_dir"`
	// Target is archive-relative file or directory path without trailing slash.
	Target string `json:"target" yaml:"target"`
}

// SourcePath returns filesystem path of the add target.
func (t AddTarget) SourcePath() string {
	return t.BaseDir + t.Target
}

// IsFile reports whether target names a single file (last segment has a dot).
func (t AddTarget) IsFile() bool {
	return strings.Contains(path.Base("/"+t.Target), ".")
}

// ParseAddValue splits "base//relative" add value into filesystem root and archive target.
// Backslashes are accepted, the first "//" wins and one trailing slash is stripped from target.
func ParseAddValue(value string) (AddTarget, error) {
	value = NormalizeSlashes(value)

	idx := strings.Index(value, addSeparator)
	if idx < 0 {
		return AddTarget{}, fmt.Errorf("%w: %q", ErrMissingSeparator, value)
	}

	return AddTarget{
		BaseDir: value[:idx+1],
		Target:  strings.TrimSuffix(value[idx+len(addSeparator):], "/"),
	}, nil
}

// NormalizeSlashes converts every backslash to forward slash.
func NormalizeSlashes(raw string) string {
	return strings.ReplaceAll(raw, `\`, `/`)
}

// NormalizePath converts an archive path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = NormalizeSlashes(raw)
	raw = strings.TrimPrefix(raw, "./")
	return raw
}

// normalizeRemovePrefix converts remove operation value to slash-separated prefix.
func normalizeRemovePrefix(raw string) (string, error) {
	prefix := NormalizeSlashes(raw)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty remove prefix", ErrInvalidOperation)
	}

	return prefix, nil
}
