package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

type entry struct {
	name    string
	content string
	store   bool
}

func makeZip(t *testing.T, entries []entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.store {
			hdr.Method = zip.Store
		}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("Failed to create entry %s: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write entry %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

var book = []entry{
	{name: "mimetype", content: MimetypeContent, store: true},
	{name: "META-INF/container.xml", content: "<container/>"},
	{name: "OEBPS/content.opf", content: "<package/>"},
	{name: "OEBPS/Text/", content: ""},
	{name: "OEBPS/Text/a.xhtml", content: "<html/>"},
	{name: "OEBPS/Images/pic.png", content: "png"},
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t, book)

	tests := []struct {
		prefix string
		want   []string
	}{
		{prefix: "", want: []string{"mimetype", "META-INF/container.xml", "OEBPS/content.opf", "OEBPS/Text/a.xhtml", "OEBPS/Images/pic.png"}},
		{prefix: "OEBPS/", want: []string{"OEBPS/content.opf", "OEBPS/Text/a.xhtml", "OEBPS/Images/pic.png"}},
		{prefix: "OEBPS/Text/", want: []string{"OEBPS/Text/a.xhtml"}},
		{prefix: "oebps/", want: nil},
	}
	for _, tt := range tests {
		t.Run("prefix "+tt.prefix, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.prefix, func(archive string, file *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, file.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if !slices.Equal(visited, tt.want) {
				t.Errorf("visited %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := makeZip(t, book)

	var visited int
	stopErr := errors.New("stop walking")
	err := Walk(zipPath, "", func(archive string, file *zip.File) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})
	if !errors.Is(err, stopErr) {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}
	if visited != 2 {
		t.Errorf("visited %d files, want 2", visited)
	}
}

func TestWalk_Unsafe(t *testing.T) {
	for _, name := range []string{"../evil.txt", "OEBPS/../../evil.txt", "/etc/passwd", `\evil.txt`, `OEBPS\..\..\evil.txt`} {
		t.Run(name, func(t *testing.T) {
			zipPath := makeZip(t, []entry{{name: "safe.txt", content: "ok"}, {name: name, content: "bad"}})
			var visited int
			err := Walk(zipPath, "", func(string, *zip.File) error {
				visited++
				return nil
			})
			if !errors.Is(err, ErrUnsafePath) && !errors.Is(err, zip.ErrInsecurePath) {
				t.Errorf("Walk() error = %v, want ErrUnsafePath", err)
			}
			if visited != 0 {
				t.Errorf("walkFn called %d times for unsafe archive", visited)
			}
		})
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		if err := Walk("/nonexistent/file.epub", "", func(string, *zip.File) error { return nil }); err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalid := filepath.Join(t.TempDir(), "invalid.epub")
		if err := os.WriteFile(invalid, []byte("not a zip file"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := Walk(invalid, "", func(string, *zip.File) error { return nil }); err == nil {
			t.Error("Expected error for invalid zip file")
		}
	})
}

func TestMimetype(t *testing.T) {
	tests := []struct {
		name    string
		entries []entry
		wantErr bool
	}{
		{name: "epub", entries: book},
		{name: "trailing newline", entries: []entry{{name: "mimetype", content: MimetypeContent + "\n", store: true}}},
		{name: "wrong content", entries: []entry{{name: "mimetype", content: "application/zip", store: true}}, wantErr: true},
		{name: "not first", entries: []entry{{name: "a.txt", content: "a"}, {name: "mimetype", content: MimetypeContent}}, wantErr: true},
		{name: "empty", entries: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mimetype(makeZip(t, tt.entries))
			if tt.wantErr {
				if !errors.Is(err, ErrNotEPUB) {
					t.Errorf("Mimetype() error = %v, want ErrNotEPUB", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Mimetype() error = %v", err)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	zipPath := makeZip(t, book)
	dir := t.TempDir()

	err := Walk(zipPath, "OEBPS/", func(_ string, file *zip.File) error {
		target, err := Extract(file, dir)
		if err != nil {
			return err
		}
		if want := filepath.Join(dir, filepath.FromSlash(file.Name)); target != want {
			t.Errorf("Extract() = %s, want %s", target, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "OEBPS", "Images", "pic.png"))
	if err != nil || string(data) != "png" {
		t.Errorf("extracted content = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mimetype")); !os.IsNotExist(err) {
		t.Error("entry outside of prefix was extracted")
	}

	if _, err := Extract(nil, dir); err == nil {
		t.Error("Extract(nil) should fail")
	}
}
