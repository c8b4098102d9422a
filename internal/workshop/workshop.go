// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

// Package workshop defines the content provider used by batch jobs to
// list, download and upload published map items.
package workshop

import (
	"context"
	"errors"
)

// Provider errors.
var (
	// ErrItemNotFound means no owned item has the requested id.
	ErrItemNotFound = errors.New("workshop item not found")
	// ErrNotInstalled means item content is not available locally.
	ErrNotInstalled = errors.New("workshop item not installed")
	// ErrUploadRejected means the provider refused an item update.
	ErrUploadRejected = errors.New("workshop upload rejected")
)

// ItemType classifies published items.
type ItemType string

// Known item types; only community items are map uploads.
const (
	ItemCommunity   ItemType = "community"
	ItemCollection  ItemType = "collection"
	ItemScreenshot  ItemType = "screenshot"
	ItemMicrotrans  ItemType = "microtransaction"
	ItemMerchandise ItemType = "merch"
)

// Item is one published item owned by the current user.
type Item struct {
	Title string   `yaml:"title"`
	Type  ItemType `yaml:"type"`
	ID    uint64   `yaml:"id"`
}

// ProgressFunc receives transferred and total byte counts; total is 0 when unknown.
type ProgressFunc func(done uint64, total uint64)

// Metadata is the item update payload besides content.
type Metadata struct {
	// FileName is content file name stored as item metadata.
	FileName string `yaml:"file_name"`
}

// Provider is the content service capability.
// Calls block until the transfer completes or ctx is done.
type Provider interface {
	// ListOwnedItems returns every item published by the current user.
	ListOwnedItems(ctx context.Context) ([]Item, error)
	// InstallDir returns local install folder of already downloaded content.
	InstallDir(ctx context.Context, id uint64) (string, error)
	// Download fetches item content and returns its local install folder.
	Download(ctx context.Context, id uint64, progress ProgressFunc) (string, error)
	// Upload replaces item content with the file at localPath.
	Upload(ctx context.Context, id uint64, localPath string, meta Metadata, changeNote string, progress ProgressFunc) error
}
