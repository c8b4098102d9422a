package bsppak

import (
	"reflect"
	"testing"
)

func TestFilterEntries(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Path: "maps/cfg/a.cfg"},
		{Path: "maps"},
		{Path: "mapsx/b.cfg"},
		{Path: "Maps/c.cfg"},
	}

	testCases := []struct {
		name   string
		prefix string
		want   []string
	}{
		{name: "empty", prefix: "", want: []string{"maps/cfg/a.cfg", "maps", "mapsx/b.cfg", "Maps/c.cfg"}},
		{name: "directory", prefix: "maps/", want: []string{"maps/cfg/a.cfg", "maps"}},
		{name: "nested", prefix: `maps\cfg`, want: []string{"maps/cfg/a.cfg"}},
		{name: "exact file", prefix: "mapsx/b.cfg", want: []string{"mapsx/b.cfg"}},
		{name: "case-sensitive", prefix: "MAPS", want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := entryPaths(FilterEntries(entries, tc.prefix))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FilterEntries(%q)=%v, want %v", tc.prefix, got, tc.want)
			}
		})
	}
}

func TestFilterEntryInfos(t *testing.T) {
	t.Parallel()

	infos := []EntryInfo{{Path: "sound/a.wav"}, {Path: "materials/b.vmt"}}
	got := FilterEntryInfos(infos, "sound")
	if len(got) != 1 || got[0].Path != "sound/a.wav" {
		t.Fatalf("FilterEntryInfos=%+v", got)
	}
}
