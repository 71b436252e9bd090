package pack

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"epubkeep/archive"
	"epubkeep/keeper"
)

func workspace(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "book")
	for name, content := range map[string]string{
		"META-INF/container.xml":  "<container/>",
		"OEBPS/content.opf":       "<package/>",
		"OEBPS/Text/page10.xhtml": "<html>10</html>",
		"OEBPS/Text/page2.xhtml":  "<html>2</html>",
		"OEBPS/Images/a.png":      "png",
		"mimetype":                "stale",
	} {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func zipEntries(t *testing.T, name string) []*zip.File {
	t.Helper()
	r, err := zip.OpenReader(name)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r.File
}

func TestPack(t *testing.T) {
	for _, tt := range []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "natural",
			opts: Options{NaturalOrder: true},
			want: []string{"mimetype", "META-INF/container.xml", "OEBPS/Images/a.png", "OEBPS/Text/page2.xhtml", "OEBPS/Text/page10.xhtml", "OEBPS/content.opf"},
		},
		{
			name: "lexical",
			opts: Options{},
			want: []string{"mimetype", "META-INF/container.xml", "OEBPS/Images/a.png", "OEBPS/Text/page10.xhtml", "OEBPS/Text/page2.xhtml", "OEBPS/content.opf"},
		},
		{
			name: "fixzip",
			opts: Options{NaturalOrder: true, FixZip: true},
			want: []string{"mimetype", "META-INF/container.xml", "OEBPS/Images/a.png", "OEBPS/Text/page2.xhtml", "OEBPS/Text/page10.xhtml", "OEBPS/content.opf"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out", "book.epub")
			if err := Pack(context.Background(), workspace(t), out, tt.opts, zaptest.NewLogger(t)); err != nil {
				t.Fatalf("Pack() error = %v", err)
			}

			files := zipEntries(t, out)
			var names []string
			for _, f := range files {
				names = append(names, f.Name)
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("entries = %v, want %v", names, tt.want)
			}
			if files[0].Method != zip.Store {
				t.Error("mimetype is compressed")
			}
			if mt, err := archive.Mimetype(out); err != nil || mt != archive.MimetypeContent {
				t.Errorf("Mimetype() = %q, %v", mt, err)
			}
			for _, f := range files[1:] {
				if f.Method != zip.Deflate {
					t.Errorf("%s is not deflated", f.Name)
				}
				if tt.opts.FixZip && f.Flags&0x8 != 0 {
					t.Errorf("%s has data descriptor", f.Name)
				}
			}
		})
	}
}

func TestPackErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "book.epub")
	if err := Pack(context.Background(), t.TempDir(), out, Options{}, nil); err == nil {
		t.Error("Pack() of directory without container.xml should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Pack(ctx, workspace(t), out, Options{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Pack() with cancelled context error = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	root := workspace(t)
	out := filepath.Join(t.TempDir(), "book.epub")
	if err := Pack(context.Background(), root, out, Options{NaturalOrder: true}, nil); err != nil {
		t.Fatal(err)
	}

	unpacked := filepath.Join(t.TempDir(), "unpacked")
	if err := Unpack(out, unpacked, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(unpacked, "OEBPS", "Text", "page2.xhtml"))
	if err != nil || string(data) != "<html>2</html>" {
		t.Errorf("unpacked content = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(unpacked, "mimetype")); !os.IsNotExist(err) {
		t.Error("mimetype should not be extracted into workspace")
	}

	if err := Unpack(out, unpacked, nil); !errors.Is(err, keeper.ErrPathExists) {
		t.Errorf("Unpack() over existing book error = %v", err)
	}
}

func TestUnpackPlainZip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "plain.zip")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("META-INF/container.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<container/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	root := filepath.Join(t.TempDir(), "book")
	if err := Unpack(name, root, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "META-INF", "container.xml")); err != nil {
		t.Error(err)
	}
}

func TestIsEPUBName(t *testing.T) {
	for name, want := range map[string]bool{"a.epub": true, "A.EPUB": true, "a.zip": false, "epub": false} {
		if got := IsEPUBName(name); got != want {
			t.Errorf("IsEPUBName(%q) = %v, want %v", name, got, want)
		}
	}
}
