// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import "strings"

// FilterEntries keeps entries under prefix directory (or exact match if it names a file).
// Matching is case-sensitive like remove operations; empty prefix keeps everything.
func FilterEntries(entries []Entry, prefix string) []Entry {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	dirPrefix := prefix + "/"
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Path == prefix || strings.HasPrefix(entry.Path, dirPrefix) {
			out = append(out, entry)
		}
	}

	return out
}

// FilterEntryInfos is FilterEntries for listed entry metadata.
func FilterEntryInfos(entries []EntryInfo, prefix string) []EntryInfo {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	dirPrefix := prefix + "/"
	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Path == prefix || strings.HasPrefix(entry.Path, dirPrefix) {
			out = append(out, entry)
		}
	}

	return out
}
