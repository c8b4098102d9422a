package bsppak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz/lzma"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Path: "materials/maps/de_example/wall.vmt", Data: bytes.Repeat([]byte(`"LightmappedGeneric" { "$basetexture" "wall" }`), 64)},
		{Path: "scripts/vscripts/map.nut", Data: []byte("printl(1)")},
		{Path: "empty.txt", Data: []byte{}},
		{Path: "sound/ambient/loop.wav", Data: bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 4096)},
	}

	for _, method := range []CompressionMethod{MethodStore, MethodDeflate, MethodLZMA} {
		for _, level := range []int{LevelFastest, 5, 9} {
			t.Run(fmt.Sprintf("%s/%d", method, level), func(t *testing.T) {
				t.Parallel()

				data := mustEncode(t, entries, EncodeOptions{Method: method, Level: level, MinCompressSize: DefaultMinCompressSize})

				got, err := DecodeArchive(data)
				if err != nil {
					t.Fatalf("DecodeArchive: %v", err)
				}

				if len(got) != len(entries) {
					t.Fatalf("entries=%d, want %d", len(got), len(entries))
				}

				for i := range entries {
					if got[i].Path != entries[i].Path {
						t.Fatalf("entry %d path=%q, want %q", i, got[i].Path, entries[i].Path)
					}
					if !bytes.Equal(got[i].Data, entries[i].Data) {
						t.Fatalf("entry %q payload mismatch", entries[i].Path)
					}
				}

				infos, err := ListArchive(data)
				if err != nil {
					t.Fatalf("ListArchive: %v", err)
				}

				// Deflate level 0 emits stored blocks, never smaller than the source.
				compressed := method
				if method == MethodDeflate && level == LevelFastest {
					compressed = MethodStore
				}

				wantMethods := []CompressionMethod{compressed, MethodStore, MethodStore, compressed}
				for i, info := range infos {
					if info.Method != wantMethods[i] {
						t.Fatalf("entry %q method=%s, want %s", info.Path, info.Method, wantMethods[i])
					}
					if info.Size != uint64(len(entries[i].Data)) {
						t.Fatalf("entry %q size=%d, want %d", info.Path, info.Size, len(entries[i].Data))
					}
					if compressed != MethodStore && i == 0 && info.CompressedSize >= info.Size {
						t.Fatalf("entry %q was not compressed: %d >= %d", info.Path, info.CompressedSize, info.Size)
					}
				}
			})
		}
	}
}

func TestEncodeArchive_CompressRules(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("compress-me"), 512)
	data := mustEncode(t, []Entry{
		{Path: "materials/a.vmt", Data: payload},
		{Path: "sound/a.wav", Data: payload},
		{Path: "Materials/B.VMT", Data: payload},
	}, EncodeOptions{
		Method:   MethodDeflate,
		Compress: CompressRules("*.vmt"),
	})

	infos, err := ListArchive(data)
	if err != nil {
		t.Fatalf("ListArchive: %v", err)
	}

	want := map[string]CompressionMethod{
		"materials/a.vmt": MethodDeflate,
		"sound/a.wav":     MethodStore,
		"Materials/B.VMT": MethodDeflate,
	}
	for _, info := range infos {
		if info.Method != want[info.Path] {
			t.Fatalf("entry %q method=%s, want %s", info.Path, info.Method, want[info.Path])
		}
	}
}

func TestEncodeArchive_KeepsStoredWhenNotSmaller(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	noise := make([]byte, 4096)
	for i := range noise {
		noise[i] = byte(rng.UintN(256))
	}

	var events []EntryProgress
	data := mustEncode(t, []Entry{{Path: "noise.bin", Data: noise}}, EncodeOptions{
		Method: MethodLZMA,
		OnEntryDone: func(entry EntryProgress) {
			events = append(events, entry)
		},
	})

	if len(events) != 1 {
		t.Fatalf("events=%d, want 1", len(events))
	}

	ev := events[0]
	if !ev.CompressionCandidate || ev.Method != MethodStore || ev.StoredSize != len(noise) {
		t.Fatalf("unexpected progress: %+v", ev)
	}

	got, err := DecodeArchive(data)
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}
	if !bytes.Equal(got[0].Data, noise) {
		t.Fatal("payload mismatch")
	}
}

func TestEncodeArchive_Progress(t *testing.T) {
	t.Parallel()

	var events []EntryProgress
	mustEncode(t, []Entry{
		{Path: "a.txt", Data: []byte("a")},
		{Path: "b.txt", Data: bytes.Repeat([]byte("b"), 1024)},
	}, EncodeOptions{
		Method:          MethodDeflate,
		MinCompressSize: 16,
		OnEntryDone: func(entry EntryProgress) {
			events = append(events, entry)
		},
	})

	if len(events) != 2 {
		t.Fatalf("events=%d, want 2", len(events))
	}

	if events[0].Index != 0 || events[0].Total != 2 || events[0].CompressionCandidate {
		t.Fatalf("unexpected first event: %+v", events[0])
	}

	if events[1].Index != 1 || events[1].Method != MethodDeflate || events[1].StoredSize >= events[1].Size {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestEncodeArchive_InvalidOptions(t *testing.T) {
	t.Parallel()

	entries := []Entry{{Path: "a.txt", Data: []byte("a")}}

	testCases := []struct {
		want error
		name string
		opts EncodeOptions
	}{
		{name: "level", opts: EncodeOptions{Level: MaxCompressionLevel + 1}, want: ErrInvalidCompressionLevel},
		{name: "negative level", opts: EncodeOptions{Level: LevelFastest - 1}, want: ErrInvalidCompressionLevel},
		{name: "method", opts: EncodeOptions{Method: "bzip2"}, want: ErrUnsupportedMethod},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := EncodeArchive(entries, tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestEncodeArchive_ZeroLevelUsesDefault(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("level"), 20000)

	for _, method := range []CompressionMethod{MethodDeflate, MethodLZMA} {
		t.Run(string(method), func(t *testing.T) {
			t.Parallel()

			unset := mustEncode(t, []Entry{{Path: "a.txt", Data: payload}}, EncodeOptions{Method: method})
			explicit := mustEncode(t, []Entry{{Path: "a.txt", Data: payload}}, EncodeOptions{Method: method, Level: DefaultCompressionLevel})
			if !bytes.Equal(unset, explicit) {
				t.Fatal("zero level must encode as DefaultCompressionLevel")
			}

			infos, err := ListArchive(unset)
			if err != nil {
				t.Fatalf("ListArchive: %v", err)
			}
			if infos[0].Method != method || infos[0].CompressedSize >= infos[0].Size {
				t.Fatalf("entry not compressed: %+v", infos[0])
			}

			got, err := DecodeArchive(unset)
			if err != nil {
				t.Fatalf("DecodeArchive: %v", err)
			}
			if !bytes.Equal(got[0].Data, payload) {
				t.Fatal("payload mismatch")
			}
		})
	}
}

func TestEncodeArchive_DefaultOptionsLargeDictionary(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 100_000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	data := mustEncode(t, []Entry{{Path: "a.vmt", Data: payload}}, DefaultEncodeOptions())

	got, err := DecodeArchive(data)
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0].Data, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestDecodeArchive_Empty(t *testing.T) {
	t.Parallel()

	got, err := DecodeArchive(nil)
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}

	if got == nil || len(got) != 0 {
		t.Fatalf("entries=%v, want empty non-nil", got)
	}

	infos, err := ListArchive(nil)
	if err != nil || len(infos) != 0 {
		t.Fatalf("ListArchive=%v, %v", infos, err)
	}
}

func TestDecodeArchive_Corrupt(t *testing.T) {
	t.Parallel()

	if _, err := DecodeArchive([]byte("definitely not a zip archive")); !errors.Is(err, ErrEntryDecode) {
		t.Fatalf("err=%v, want ErrEntryDecode", err)
	}
}

func TestDecodeArchive_StandardWriterSkipsDirectories(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("materials/"); err != nil {
		t.Fatalf("Create dir: %v", err)
	}

	w, err := zw.Create("materials/a.vmt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := bytes.Repeat([]byte("vmt"), 100)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := DecodeArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}

	if len(got) != 1 || got[0].Path != "materials/a.vmt" || !bytes.Equal(got[0].Data, payload) {
		t.Fatalf("unexpected entries: %v", entryPaths(got))
	}
}

func TestDecodeArchive_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "a.bin",
		Method:             12, // bzip2
		CompressedSize64:   3,
		UncompressedSize64: 3,
	})
	if err != nil {
		t.Fatalf("CreateRaw: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = DecodeArchive(buf.Bytes())
	if !errors.Is(err, ErrEntryDecode) || !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("err=%v, want ErrEntryDecode and ErrUnsupportedMethod", err)
	}
}

func TestDecompressLZMA_EOSMarker(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("end of stream marker "), 200)

	var classic bytes.Buffer
	w, err := lzma.WriterConfig{EOSMarker: true}.NewWriter(&classic)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := classic.Bytes()
	framed := []byte{zipLZMAVersionMajor, zipLZMAVersionMinor, 0, 0}
	binary.LittleEndian.PutUint16(framed[2:], zipLZMAPropsSize)
	framed = append(framed, raw[:zipLZMAPropsSize]...)
	framed = append(framed, raw[lzma.HeaderLen:]...)

	got, err := decompressLZMA(framed, uint64(len(payload)), true)
	if err != nil {
		t.Fatalf("decompressLZMA: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestDecompressLZMA_LevelFiveDictionary(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("lightmapped generic wall texture "), 4000)

	var classic bytes.Buffer
	w, err := lzma.WriterConfig{
		DictCap:      lzmaDictSize(DefaultCompressionLevel),
		SizeInHeader: true,
		Size:         int64(len(payload)),
	}.NewWriter(&classic)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := classic.Bytes()
	framed := []byte{zipLZMAVersionMajor, zipLZMAVersionMinor, 0, 0}
	binary.LittleEndian.PutUint16(framed[2:], zipLZMAPropsSize)
	framed = append(framed, raw[:zipLZMAPropsSize]...)
	framed = append(framed, raw[lzma.HeaderLen:]...)

	if dict := binary.LittleEndian.Uint32(framed[5:9]); dict != 1<<24 {
		t.Fatalf("dictionary=%d, want %d", dict, 1<<24)
	}

	got, err := decompressLZMA(framed, uint64(len(payload)), false)
	if err != nil {
		t.Fatalf("decompressLZMA: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestDecompressLZMA_Errors(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("abc"), 1000)
	framed, err := compressLZMA(payload, 5)
	if err != nil {
		t.Fatalf("compressLZMA: %v", err)
	}

	hugeDict := bytes.Clone(framed)
	binary.LittleEndian.PutUint32(hugeDict[5:9], 1<<30)

	badProps := bytes.Clone(framed)
	binary.LittleEndian.PutUint16(badProps[2:4], 4)

	testCases := []struct {
		name    string
		payload []byte
		size    uint64
	}{
		{name: "short header", payload: framed[:6], size: uint64(len(payload))},
		{name: "props size", payload: badProps, size: uint64(len(payload))},
		{name: "dictionary", payload: hugeDict, size: uint64(len(payload))},
		{name: "truncated", payload: framed[:len(framed)/2], size: uint64(len(payload))},
		{name: "size mismatch", payload: framed, size: uint64(len(payload)) + 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := decompressLZMA(tc.payload, tc.size, false); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCompressLZMA_Framing(t *testing.T) {
	t.Parallel()

	framed, err := compressLZMA(bytes.Repeat([]byte("x"), 4096), 9)
	if err != nil {
		t.Fatalf("compressLZMA: %v", err)
	}

	if framed[0] != zipLZMAVersionMajor || framed[1] != zipLZMAVersionMinor {
		t.Fatalf("version bytes=%d.%d", framed[0], framed[1])
	}

	if got := binary.LittleEndian.Uint16(framed[2:4]); got != zipLZMAPropsSize {
		t.Fatalf("props size=%d, want %d", got, zipLZMAPropsSize)
	}

	// Dictionary is capped by input size for small payloads.
	if dict := binary.LittleEndian.Uint32(framed[5:9]); dict > 1<<26 || dict < lzma.MinDictCap {
		t.Fatalf("dictionary=%d out of range", dict)
	}
}
