// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package bsppak

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// zipFlagUTF8 is general purpose bit 11: names are UTF-8.
const zipFlagUTF8 = 0x800

// DecodeArchive reads every file entry of a pak lump archive in stored order.
// Empty data is an empty archive. Any corrupt entry fails the whole call.
func DecodeArchive(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return []Entry{}, nil
	}

	zr, err := openArchive(data)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if isDirectoryRecord(f) {
			continue
		}

		content, err := readArchiveFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEntryDecode, f.Name, err)
		}

		entries = append(entries, Entry{
			Path: f.Name,
			Data: content,
		})
	}

	return entries, nil
}

// ListArchive returns stored entry metadata without decompressing payloads.
func ListArchive(data []byte) ([]EntryInfo, error) {
	if len(data) == 0 {
		return []EntryInfo{}, nil
	}

	zr, err := openArchive(data)
	if err != nil {
		return nil, err
	}

	infos := make([]EntryInfo, 0, len(zr.File))
	for _, f := range zr.File {
		if isDirectoryRecord(f) {
			continue
		}

		infos = append(infos, EntryInfo{
			Path:           f.Name,
			Method:         methodFromZip(f.Method),
			Size:           f.UncompressedSize64,
			CompressedSize: f.CompressedSize64,
		})
	}

	return infos, nil
}

// EncodeArchive writes entries in list order into a new zip archive.
// Entries are compressed one at a time; compressed payload is kept only when smaller.
func EncodeArchive(entries []Entry, opts EncodeOptions) ([]byte, error) {
	opts.applyDefaults()

	if err := validateEncodeOptions(opts); err != nil {
		return nil, err
	}

	if len(entries) > maxZipEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrSizeOverflow, len(entries))
	}

	matcher, err := newCompressMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var total int64
	for i := range entries {
		progress, err := writeArchiveEntry(zw, entries[i], opts, matcher)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEntryEncode, entries[i].Path, err)
		}

		total += int64(progress.StoredSize)
		if total > maxZipData {
			return nil, fmt.Errorf("%w: archive payload exceeds 4 GiB", ErrSizeOverflow)
		}

		if opts.OnEntryDone != nil {
			progress.Index = i
			progress.Total = len(entries)
			opts.OnEntryDone(progress)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close archive: %w", ErrEntryEncode, err)
	}

	if int64(buf.Len()) > maxZipData {
		return nil, fmt.Errorf("%w: archive size %d", ErrSizeOverflow, buf.Len())
	}

	return buf.Bytes(), nil
}

// openArchive parses zip central directory of pak lump bytes.
func openArchive(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", ErrEntryDecode, err)
	}

	return zr, nil
}

// isDirectoryRecord reports whether zip record is an explicit directory.
func isDirectoryRecord(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") && f.UncompressedSize64 == 0
}

// readArchiveFile fully decompresses one zip record and verifies its checksum.
func readArchiveFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipData {
		return nil, fmt.Errorf("uncompressed size %d exceeds zip limit", f.UncompressedSize64)
	}

	switch f.Method {
	case zipMethodStore, zipMethodDeflate:
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}

		if uint64(len(content)) != f.UncompressedSize64 {
			return nil, fmt.Errorf("size mismatch: got %d, want %d", len(content), f.UncompressedSize64)
		}

		return content, nil

	case zipMethodLZMA:
		raw, err := f.OpenRaw()
		if err != nil {
			return nil, err
		}

		payload, err := io.ReadAll(raw)
		if err != nil {
			return nil, err
		}

		content, err := decompressLZMA(payload, f.UncompressedSize64, f.Flags&zipFlagLZMAEOS != 0)
		if err != nil {
			return nil, err
		}

		if sum := crc32.ChecksumIEEE(content); sum != f.CRC32 {
			return nil, fmt.Errorf("checksum mismatch: got %08x, want %08x", sum, f.CRC32)
		}

		return content, nil

	default:
		return nil, fmt.Errorf("%w: zip method %d", ErrUnsupportedMethod, f.Method)
	}
}

// writeArchiveEntry writes one entry with precomputed sizes and no data descriptor.
func writeArchiveEntry(zw *zip.Writer, entry Entry, opts EncodeOptions, matcher *compressMatcher) (EntryProgress, error) {
	progress := EntryProgress{
		Path:   entry.Path,
		Method: MethodStore,
		Size:   len(entry.Data),
	}

	payload := entry.Data
	method := uint16(zipMethodStore)
	if shouldCompress(opts, matcher, entry.Path, len(entry.Data)) {
		progress.CompressionCandidate = true

		compressed, err := compressPayload(opts.Method, opts.compressionLevel(), entry.Data)
		if err != nil {
			return progress, err
		}

		if len(compressed) < len(entry.Data) {
			payload = compressed
			method, _ = opts.Method.zipMethod()
			progress.Method = opts.Method
		}
	}

	version := uint16(zipVersionDefault)
	if method == zipMethodLZMA {
		version = zipVersionLZMA
	}

	fh := &zip.FileHeader{
		Name:               entry.Path,
		Method:             method,
		Flags:              zipFlagUTF8,
		CreatorVersion:     version,
		ReaderVersion:      version,
		CRC32:              crc32.ChecksumIEEE(entry.Data),
		CompressedSize64:   uint64(len(payload)),
		UncompressedSize64: uint64(len(entry.Data)),
	}
	fh.SetModTime(opts.ModTime) //nolint:staticcheck // CreateRaw does not convert Modified to MS-DOS fields.

	w, err := zw.CreateRaw(fh)
	if err != nil {
		return progress, fmt.Errorf("create entry: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return progress, fmt.Errorf("write entry: %w", err)
	}

	progress.StoredSize = len(payload)
	return progress, nil
}
