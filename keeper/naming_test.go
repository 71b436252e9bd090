package keeper

import (
	"fmt"
	"strings"
	"testing"
)

func takenSet(names ...string) map[string]bool {
	res := make(map[string]bool)
	for _, n := range names {
		res[strings.ToLower(n)] = true
	}
	return res
}

func TestUniqueFileName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		taken []string
		want  string
	}{
		{"free", "Section0001.xhtml", []string{"Other.xhtml"}, "Section0001.xhtml"},
		{"next version", "Section0001.xhtml", []string{"Section0001.xhtml"}, "Section0002.xhtml"},
		{"max version wins", "Section0001.xhtml", []string{"Section0001.xhtml", "Section0007.xhtml", "section0003.xhtml"}, "Section0008.xhtml"},
		{"no numbered versions", "image.png", []string{"image.png"}, "image0001.png"},
		{"case insensitive", "Image.PNG", []string{"image.png"}, "Image0001.PNG"},
		{"width preserved", "img7.jpg", []string{"img7.jpg"}, "img8.jpg"},
		{"width grows", "p99.css", []string{"p99.css"}, "p100.css"},
		{"other extension ignored", "a.css", []string{"a.css", "a0005.png"}, "a0001.css"},
		{"no extension", "mimetype", []string{"mimetype"}, "mimetype0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniqueFileName(tt.in, takenSet(tt.taken...)); got != tt.want {
				t.Errorf("uniqueFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUniqueFileNameMonotonic(t *testing.T) {
	taken := takenSet("Section0001.xhtml")
	for i := 2; i < 12; i++ {
		got := uniqueFileName("Section0001.xhtml", taken)
		if want := fmt.Sprintf("Section%04d.xhtml", i); got != want {
			t.Fatalf("step %d: got %q, want %q", i, got, want)
		}
		taken[strings.ToLower(got)] = true
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		bp   string
		lvl  int
		want string
	}{
		{"OEBPS/Text/a.xhtml", 1, "a.xhtml"},
		{"OEBPS/Text/a.xhtml", 2, "Text/a.xhtml"},
		{"OEBPS/Text/a.xhtml", 3, "^OEBPS/Text/a.xhtml"},
		{"mimetype", 1, "mimetype"},
		{"mimetype", 2, "^mimetype"},
	}
	for _, tt := range tests {
		if got := shortName(tt.bp, tt.lvl); got != tt.want {
			t.Errorf("shortName(%q, %d) = %q, want %q", tt.bp, tt.lvl, got, tt.want)
		}
	}
}

func TestShortNames(t *testing.T) {
	paths := map[string]string{
		"1": "OEBPS/Text/a.xhtml",
		"2": "OEBPS/Other/a.xhtml",
		"3": "A/x/y.png",
		"4": "B/x/y.png",
		"5": "x/y.png",
		"6": "OEBPS/Images/cover.jpg",
	}
	want := map[string]string{
		"1": "Text/a.xhtml",
		"2": "Other/a.xhtml",
		"3": "^A/x/y.png",
		"4": "^B/x/y.png",
		"5": "^x/y.png",
		"6": "cover.jpg",
	}
	got := shortNames(paths)
	for id, w := range want {
		if got[id] != w {
			t.Errorf("short name of %s = %q, want %q", paths[id], got[id], w)
		}
	}
	assertUnique(t, got)
}

func TestShortNamesDeepTopLevelDifference(t *testing.T) {
	paths := make(map[string]string)
	for i := range 20 {
		paths[fmt.Sprint(i)] = fmt.Sprintf("root%d/a/b/c/d/file.xhtml", i)
	}
	paths["x"] = "a/b/c/d/file.xhtml"
	paths["y"] = "d/file.xhtml"
	assertUnique(t, shortNames(paths))
}

func TestShortNamesMarkerLookalike(t *testing.T) {
	tests := []struct {
		name  string
		paths map[string]string
		want  map[string]string
	}{
		{
			name:  "file name",
			paths: map[string]string{"1": "x/b.png", "2": "b.png", "3": "y/^b.png"},
			want:  map[string]string{"1": "x/b.png", "2": "b.png", "3": "^b.png"},
		},
		{
			name:  "folder name",
			paths: map[string]string{"1": "a/b.png", "2": "c/a/b.png", "3": "x/^a/b.png"},
			want:  map[string]string{"1": "^a/b.png", "2": "a/b.png", "3": "^x/^a/b.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shortNames(tt.paths)
			if len(got) != len(tt.paths) {
				t.Fatalf("shortNames() = %v, every path needs a name", got)
			}
			for id, w := range tt.want {
				if got[id] != w {
					t.Errorf("short name of %s = %q, want %q", tt.paths[id], got[id], w)
				}
			}
			assertUnique(t, got)
		})
	}
}

func assertUnique(t *testing.T, names map[string]string) {
	t.Helper()
	seen := make(map[string]string)
	for id, n := range names {
		if other, ok := seen[n]; ok {
			t.Errorf("short name %q shared by %s and %s", n, id, other)
		}
		seen[n] = id
	}
}
