package bsppak

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractPak_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mapPath := writeMap(t, dir, "map.bsp", buildMap(t,
		Entry{Path: "materials/a.vmt", Data: []byte("vmt")},
		Entry{Path: "scripts/vscripts/map.nut", Data: []byte("nut")},
		Entry{Path: "readme.txt", Data: []byte("readme")},
	))
	outDir := filepath.Join(dir, "out")

	var done []string
	written, err := ExtractPak(context.Background(), mapPath, outDir, ExtractOptions{
		OnEntryDone: func(entry Entry, _ string) {
			done = append(done, entry.Path)
		},
	})
	if err != nil {
		t.Fatalf("ExtractPak: %v", err)
	}

	if written != 3 || len(done) != 3 {
		t.Fatalf("written=%d callbacks=%d, want 3", written, len(done))
	}

	for rel, want := range map[string]string{
		"materials/a.vmt":          "vmt",
		"scripts/vscripts/map.nut": "nut",
		"readme.txt":               "readme",
	} {
		got := mustRead(t, filepath.Join(outDir, filepath.FromSlash(rel)))
		if string(got) != want {
			t.Fatalf("%s=%q, want %q", rel, got, want)
		}
	}
}

func TestExtractArchive_Prefix(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	written, err := ExtractArchive(context.Background(), []Entry{
		{Path: "materials/a.vmt", Data: []byte("a")},
		{Path: "materialsx/b.vmt", Data: []byte("b")},
		{Path: "sound/c.wav", Data: []byte("c")},
	}, outDir, ExtractOptions{Prefix: `materials\`})
	if err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}

	if written != 1 {
		t.Fatalf("written=%d, want 1", written)
	}

	if _, err := os.Stat(filepath.Join(outDir, "materialsx")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("materialsx must not be extracted")
	}
}

func TestExtractArchive_RejectsUnsafePaths(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"../escape.txt", "/abs.txt", `C:\win.txt`, "a/../../b.txt", "", "./"} {
		outDir := t.TempDir()
		_, err := ExtractArchive(context.Background(), []Entry{
			{Path: "ok.txt", Data: []byte("ok")},
			{Path: path, Data: []byte("bad")},
		}, outDir, ExtractOptions{})
		if !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("path %q err=%v, want ErrInvalidExtractPath", path, err)
		}

		if _, err := os.Stat(filepath.Join(outDir, "ok.txt")); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("path %q: nothing must be written before validation passes", path)
		}
	}
}

func TestExtractArchive_CreateOnly(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	writeTree(t, outDir, map[string]string{"a.txt": "existing"})

	entries := []Entry{{Path: "a.txt", Data: []byte("new")}}
	if _, err := ExtractArchive(context.Background(), entries, outDir, ExtractOptions{CreateOnly: true}); !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("err=%v, want ErrWriteFailure", err)
	}

	if got := string(mustRead(t, filepath.Join(outDir, "a.txt"))); got != "existing" {
		t.Fatalf("a.txt=%q, want existing", got)
	}

	if _, err := ExtractArchive(context.Background(), entries, outDir, ExtractOptions{}); err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}

	if got := string(mustRead(t, filepath.Join(outDir, "a.txt"))); got != "new" {
		t.Fatalf("a.txt=%q, want new", got)
	}
}

func TestExtractArchive_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := ExtractArchive(ctx, []Entry{{Path: "a.txt", Data: []byte("a")}}, t.TempDir(), ExtractOptions{})
	if !errors.Is(err, context.Canceled) || written != 0 {
		t.Fatalf("written=%d err=%v, want context.Canceled", written, err)
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{in: "materials/a.vmt", want: "materials/a.vmt"},
		{in: `materials\a.vmt`, want: "materials/a.vmt"},
		{in: "./materials//a.vmt", want: "materials/a.vmt"},
	}

	for _, tc := range testCases {
		got, err := normalizeExtractEntryPath(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("normalizeExtractEntryPath(%q)=%q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
