// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"io/fs"
	"os"
)

// FileSource is the filesystem capability used by add operations.
// Names are slash-separated host paths exactly as built from add values.
type FileSource interface {
	// ReadDir lists immediate children of a directory.
	ReadDir(name string) ([]fs.DirEntry, error)
	// ReadFile returns full content of a regular file.
	ReadFile(name string) ([]byte, error)
	// Stat describes a file, following symbolic links.
	Stat(name string) (fs.FileInfo, error)
}

// OSFileSource reads add sources from the host filesystem.
type OSFileSource struct{}

// ReadDir lists directory children sorted by name.
func (OSFileSource) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// ReadFile reads a host file.
func (OSFileSource) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Stat follows symlinks through os.Stat.
func (OSFileSource) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// FSFileSource adapts an fs.FS (for example fstest.MapFS or os.DirFS) to FileSource.
type FSFileSource struct {
	FS fs.FS
}

// ReadDir lists directory children through fs.ReadDir.
func (s FSFileSource) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(s.FS, fsName(name))
}

// ReadFile reads a file through fs.ReadFile.
func (s FSFileSource) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.FS, fsName(name))
}

// Stat describes a file through fs.Stat.
func (s FSFileSource) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(s.FS, fsName(name))
}

// fsName converts host-style add path to io/fs unrooted name.
func fsName(name string) string {
	cleaned := NormalizePath(name)
	if cleaned == "" {
		return "."
	}

	return cleaned
}
