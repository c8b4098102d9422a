// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"log/slog"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	lumpRecordSize      = 16                               // offset, length, version, fourCC
	containerHeaderSize = 8 + LumpCount*lumpRecordSize + 4 // ident, version, lumps, map revision
	lumpAlign           = 4                                // lump offsets are 4-byte aligned
	maxZipData          = 1<<32 - 1                        // zip without zip64 extensions
	maxZipEntries       = 1<<16 - 1                        // zip without zip64 extensions
)

// Container layout constants.
const (
	// IdentVBSP is the "VBSP" identifier stored little-endian at offset 0.
	IdentVBSP uint32 = 'V' | 'B'<<8 | 'S'<<16 | 'P'<<24
	// LumpCount is number of lump descriptors in the header.
	LumpCount = 64
	// LumpPakfile is index of the lump holding the embedded zip archive.
	LumpPakfile = 40
)

// Compression defaults.
const (
	// DefaultCompressionLevel is used when level is unset (zero).
	DefaultCompressionLevel = 5
	// LevelFastest requests level 0, which an unset zero level cannot express.
	LevelFastest = -1
	// MaxCompressionLevel is the strongest compression level.
	MaxCompressionLevel = 9
	// DefaultMinCompressSize disables compression for smaller entries.
	DefaultMinCompressSize = 64
)

// CompressionMethod selects how archive entries are stored.
type CompressionMethod string

// Supported compression methods.
const (
	// MethodStore writes entries uncompressed.
	MethodStore CompressionMethod = "store"
	// MethodDeflate compresses entries with DEFLATE (zip method 8).
	MethodDeflate CompressionMethod = "deflate"
	// MethodLZMA compresses entries with LZMA (zip method 14), readable by the Source engine.
	MethodLZMA CompressionMethod = "lzma"
)

// Entry is one file record of the pak lump archive.
type Entry struct {
	// Path is forward-slash archive path, case-sensitive.
	Path string `json:"path" yaml:"path"`
	// Data is full uncompressed content.
	Data []byte `json:"-" yaml:"-"`
}

// Size returns content length in bytes.
func (e Entry) Size() int {
	return len(e.Data)
}

// EntryInfo describes a stored archive entry without its payload.
type EntryInfo struct {
	// Path is entry path as stored in archive.
	Path string `json:"path" yaml:"path"`
	// Method is stored compression method.
	Method CompressionMethod `json:"method" yaml:"method"`
	// Size is uncompressed size in bytes.
	Size uint64 `json:"size" yaml:"size"`
	// CompressedSize is stored payload size in bytes.
	CompressedSize uint64 `json:"compressed_size" yaml:"compressed_size"`
}

// EntryProgress contains one completed entry write event from encode flow.
type EntryProgress struct {
	// Path is entry path written to archive.
	Path string `json:"path" yaml:"path"`
	// Method is method actually used for stored payload.
	Method CompressionMethod `json:"method" yaml:"method"`
	// Index is zero-based entry position.
	Index int `json:"index" yaml:"index"`
	// Total is number of entries in archive.
	Total int `json:"total" yaml:"total"`
	// Size is uncompressed size in bytes.
	Size int `json:"size" yaml:"size"`
	// StoredSize is payload bytes written.
	StoredSize int `json:"stored_size" yaml:"stored_size"`
	// CompressionCandidate reports whether compression was attempted.
	CompressionCandidate bool `json:"compression_candidate,omitempty" yaml:"compression_candidate,omitempty"`
}

// EncodeOptions configures archive encoding.
type EncodeOptions struct {
	// ModTime is timestamp written for every entry (zero means time.Now).
	ModTime time.Time `json:"-" yaml:"-"`
	// OnEntryDone is called after one entry is fully written.
	OnEntryDone func(entry EntryProgress) `json:"-" yaml:"-"`
	// Method is compression method for candidate entries (default lzma).
	Method CompressionMethod `json:"method,omitempty" yaml:"method,omitempty"`
	// Compress limits compression candidates by path; empty means every path.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// Level is 1 to 9 (max); 0 selects DefaultCompressionLevel, LevelFastest selects level 0.
	Level int `json:"level" yaml:"level"`
	// MinCompressSize disables compression for entries smaller than this size.
	MinCompressSize int `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
}

// ApplyOptions configures operation pipeline execution.
type ApplyOptions struct {
	// Files reads add sources; nil means OSFileSource.
	Files FileSource `json:"-" yaml:"-"`
	// Logger receives per-operation messages; nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Exclude skips files found by directory adds.
	Exclude []pathrules.Rule `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// LogOperations enables per-file add/remove messages.
	LogOperations bool `json:"log_operations,omitempty" yaml:"log_operations,omitempty"`
}

// ConvertOptions is the immutable configuration of one container conversion.
type ConvertOptions struct {
	// Files reads add sources; nil means OSFileSource.
	Files FileSource `json:"-" yaml:"-"`
	// Logger receives progress messages; nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Operations is ordered edit pipeline.
	Operations []Operation `json:"operations,omitempty" yaml:"operations,omitempty"`
	// Exclude skips files found by directory adds.
	Exclude []pathrules.Rule `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Encode configures archive re-encoding.
	Encode EncodeOptions `json:"encode,omitzero" yaml:"encode,omitzero"`
	// BackupKeep controls how many generations of a replaced output file are kept.
	// 0 means no backup, 1 keeps only `<output>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
	// SkipPakRewrite runs operations but keeps the original pak lump bytes.
	SkipPakRewrite bool `json:"skip_pak_rewrite,omitempty" yaml:"skip_pak_rewrite,omitempty"`
	// LogOperations enables per-file add/remove messages.
	LogOperations bool `json:"log_operations,omitempty" yaml:"log_operations,omitempty"`
	// PrintPak logs every decoded pak entry with its size.
	PrintPak bool `json:"print_pak,omitempty" yaml:"print_pak,omitempty"`
}

// ConvertResult contains conversion statistics.
type ConvertResult struct {
	// Entries is number of entries in resulting archive.
	Entries int `json:"entries" yaml:"entries"`
	// Added is number of newly appended entries.
	Added int `json:"added,omitempty" yaml:"added,omitempty"`
	// Replaced is number of entries whose content was replaced in place.
	Replaced int `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	// Removed is number of removed entries.
	Removed int `json:"removed,omitempty" yaml:"removed,omitempty"`
	// OldPakSize is source pak lump length in bytes.
	OldPakSize int64 `json:"old_pak_size" yaml:"old_pak_size"`
	// NewPakSize is written pak lump length in bytes.
	NewPakSize int64 `json:"new_pak_size" yaml:"new_pak_size"`
	// OutputSize is total output container size in bytes.
	OutputSize int64 `json:"output_size" yaml:"output_size"`
	// Duration is end-to-end conversion duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued encode options with defaults.
func (opts *EncodeOptions) applyDefaults() {
	if opts.Method == "" {
		opts.Method = MethodLZMA
	}

	if opts.Level == 0 {
		opts.Level = DefaultCompressionLevel
	}

	if opts.MinCompressSize < 0 {
		opts.MinCompressSize = 0
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}

	if opts.ModTime.IsZero() {
		opts.ModTime = time.Now()
	}
}

// compressionLevel returns effective 0..9 level after defaults.
func (opts EncodeOptions) compressionLevel() int {
	if opts.Level == LevelFastest {
		return 0
	}

	return opts.Level
}

// applyDefaults fills zero-valued apply options with defaults.
func (opts *ApplyOptions) applyDefaults() {
	if opts.Files == nil {
		opts.Files = OSFileSource{}
	}

	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
}

// applyDefaults fills zero-valued convert options with defaults.
func (opts *ConvertOptions) applyDefaults() {
	opts.Encode.applyDefaults()

	if opts.Files == nil {
		opts.Files = OSFileSource{}
	}

	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}

	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}

// applyOptions derives pipeline options from conversion options.
func (opts *ConvertOptions) applyOptions() ApplyOptions {
	return ApplyOptions{
		Files:         opts.Files,
		Logger:        opts.Logger,
		Exclude:       opts.Exclude,
		LogOperations: opts.LogOperations,
	}
}

// discardLogger returns logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
