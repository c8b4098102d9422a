package bsppak

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fixtureLump is one lump placed by assembleContainer in argument order.
type fixtureLump struct {
	data  []byte
	index int
}

// assembleContainer builds container bytes with lumps stored after the header in given order.
func assembleContainer(t testing.TB, lumps ...fixtureLump) []byte {
	t.Helper()

	h := Header{Ident: IdentVBSP, Version: 21, MapRevision: 7}
	body := make([]byte, 0, 256)
	for _, lump := range lumps {
		offset := alignUp(int64(containerHeaderSize+len(body)), lumpAlign)
		for int64(containerHeaderSize+len(body)) < offset {
			body = append(body, 0)
		}

		h.Lumps[lump.index] = Lump{
			Offset:  int32(offset),
			Length:  int32(len(lump.data)),
			Version: 1,
		}
		body = append(body, lump.data...)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if buf.Len() != containerHeaderSize {
		t.Fatalf("header size=%d, want %d", buf.Len(), containerHeaderSize)
	}

	buf.Write(body)
	return buf.Bytes()
}

// buildMap builds container with an entities lump followed by pak lump holding files.
func buildMap(t testing.TB, files ...Entry) []byte {
	t.Helper()

	lumps := []fixtureLump{{index: 0, data: []byte(`{"classname" "worldspawn"}`)}}
	if len(files) > 0 {
		lumps = append(lumps, fixtureLump{index: LumpPakfile, data: mustEncode(t, files, EncodeOptions{Method: MethodStore})})
	}

	return assembleContainer(t, lumps...)
}

// mustEncode encodes entries with fixed mod time.
func mustEncode(t testing.TB, entries []Entry, opts EncodeOptions) []byte {
	t.Helper()

	if opts.ModTime.IsZero() {
		opts.ModTime = time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)
	}

	data, err := EncodeArchive(entries, opts)
	if err != nil {
		t.Fatalf("EncodeArchive: %v", err)
	}

	return data
}

// writeMap writes container bytes into dir and returns its path.
func writeMap(t testing.TB, dir string, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write map: %v", err)
	}

	return path
}

// writeTree writes files (slash paths relative to root) to disk.
func writeTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// readPak parses container and decodes its pak lump.
func readPak(t testing.TB, data []byte) []Entry {
	t.Helper()

	c, err := ParseContainer(data)
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}

	entries, err := DecodeArchive(c.PakData())
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}

	return entries
}

// entryPaths returns entry paths in list order.
func entryPaths(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}

	return paths
}

// findEntry returns entry by exact path or nil.
func findEntry(entries []Entry, path string) *Entry {
	for i := range entries {
		if entries[i].Path == path {
			return &entries[i]
		}
	}

	return nil
}
