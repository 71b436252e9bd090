package opf

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"

	"epubkeep/keeper"
	"epubkeep/xhtml"
)

func setup(t *testing.T, version string) (*keeper.Keeper, *Package, string) {
	t.Helper()
	k, err := keeper.New(filepath.Join(t.TempDir(), "book"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	res, err := k.AddOPF("")
	if err != nil {
		t.Fatal(err)
	}
	p := New(res, version, zap.NewNop())
	k.SetManifest(p)
	return k, p, t.TempDir()
}

func admit(t *testing.T, k *keeper.Keeper, dir, name string, opts keeper.AdmitOptions) *keeper.Resource {
	t.Helper()
	src := filepath.Join(dir, name)
	if err := os.WriteFile(src, []byte(name), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := k.Admit(src, opts)
	if err != nil {
		t.Fatalf("Admit(%s) error = %v", name, err)
	}
	return r
}

func hrefs(p *Package) []string {
	var res []string
	for _, it := range p.Items() {
		res = append(res, it.Href)
	}
	return res
}

func TestManifestFollowsKeeper(t *testing.T) {
	k, p, src := setup(t, "3.0")

	a := admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})
	css := admit(t, k, src, "s.css", keeper.AdmitOptions{})
	admit(t, k, src, "b.xhtml", keeper.AdmitOptions{})

	if got, want := hrefs(p), []string{"Text/a.xhtml", "Styles/s.css", "Text/b.xhtml"}; !slices.Equal(got, want) {
		t.Errorf("hrefs = %v, want %v", got, want)
	}
	if got, want := p.Spine(), []string{"OEBPS/Text/a.xhtml", "OEBPS/Text/b.xhtml"}; !slices.Equal(got, want) {
		t.Errorf("spine = %v, want %v", got, want)
	}

	if err := k.Rename(a, "first page.xhtml"); err != nil {
		t.Fatal(err)
	}
	if err := k.Move(css, "OEBPS/css/s.css"); err != nil {
		t.Fatal(err)
	}
	if got, want := hrefs(p), []string{"Text/first%20page.xhtml", "css/s.css", "Text/b.xhtml"}; !slices.Equal(got, want) {
		t.Errorf("hrefs after relocation = %v, want %v", got, want)
	}
	if items := p.Items(); items[0].BookPath != "OEBPS/Text/first page.xhtml" {
		t.Errorf("decoded book path = %q", items[0].BookPath)
	}

	if err := k.Remove(a); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Spine(), []string{"OEBPS/Text/b.xhtml"}; !slices.Equal(got, want) {
		t.Errorf("spine after remove = %v, want %v", got, want)
	}
}

func TestPackageMove(t *testing.T) {
	k, p, src := setup(t, "2.0")
	admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})

	if err := k.Move(p.Resource(), "package.opf"); err != nil {
		t.Fatal(err)
	}
	if got := hrefs(p); !slices.Equal(got, []string{"OEBPS/Text/a.xhtml"}) {
		t.Errorf("hrefs after package move = %v", got)
	}
	data, err := os.ReadFile(filepath.Join(k.Root(), "META-INF", "container.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `full-path="package.opf"`) {
		t.Errorf("container.xml does not follow package:\n%s", data)
	}
}

func TestBulkRelocation(t *testing.T) {
	k, p, src := setup(t, "3.0")
	a := admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})
	b := admit(t, k, src, "b.xhtml", keeper.AdmitOptions{})

	if _, err := k.BulkMove(map[*keeper.Resource]string{a: "OEBPS/x/a.xhtml", b: "OEBPS/x/b.xhtml"}); err != nil {
		t.Fatal(err)
	}
	if got := hrefs(p); !slices.Equal(got, []string{"x/a.xhtml", "x/b.xhtml"}) {
		t.Errorf("hrefs = %v", got)
	}
	if err := k.BulkRemove([]*keeper.Resource{a, b}); err != nil {
		t.Fatal(err)
	}
	if len(p.Items()) != 0 || len(p.Spine()) != 0 {
		t.Errorf("manifest not empty: %v / %v", p.Items(), p.Spine())
	}
}

func TestUniqueIDs(t *testing.T) {
	k, p, src := setup(t, "2.0")
	admit(t, k, src, "1.xhtml", keeper.AdmitOptions{})
	admit(t, k, src, "1.xhtml", keeper.AdmitOptions{BookPath: "OEBPS/Other/1.xhtml"})
	ncx, err := k.AddNCX("")
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, it := range p.Items() {
		ids = append(ids, it.ID)
	}
	if want := []string{"x1.xhtml", "x1.xhtml_1", "ncx"}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if !strings.Contains(p.String(), `<spine toc="ncx">`) {
		t.Errorf("spine has no toc reference:\n%s", p.String())
	}
	if err := k.Remove(ncx); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(p.String(), `toc="ncx"`) {
		t.Error("toc reference kept after NCX removal")
	}
}

func TestValidID(t *testing.T) {
	tests := map[string]string{
		"chapter.xhtml": "chapter.xhtml",
		"1.xhtml":       "x1.xhtml",
		"my file.css":   "my_file.css",
		"-dash":         "x-dash",
		"a:b":           "a_b",
		"":              "item",
	}
	for in, want := range tests {
		if got := validID(in); got != want {
			t.Errorf("validID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNavAndLinear(t *testing.T) {
	k, p, src := setup(t, "3.0")
	a := admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})
	nav := admit(t, k, src, "nav.xhtml", keeper.AdmitOptions{})

	if err := p.SetNav(a); err != nil {
		t.Fatal(err)
	}
	if err := p.SetNav(nav); err != nil {
		t.Fatal(err)
	}
	if got := p.NavPath(); got != nav.BookPath() {
		t.Errorf("NavPath() = %q, want %q", got, nav.BookPath())
	}
	if err := p.SetNonLinear(nav); err != nil {
		t.Fatal(err)
	}
	text := p.String()
	if strings.Count(text, `properties="nav"`) != 1 || !strings.Contains(text, `linear="no"`) {
		t.Errorf("unexpected package document:\n%s", text)
	}
}

func TestSaveAndLoad(t *testing.T) {
	k, p, src := setup(t, "3.0")
	admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})
	admit(t, k, src, "pic.png", keeper.AdmitOptions{})
	p.SetMetadata(MetaFromHTML([]xhtml.Meta{
		{Name: "title", Content: " My Book "},
		{Name: "DC.creator", Content: "Jane Doe"},
		{Name: "keywords", Content: "one, two,,"},
		{Name: "generator", Content: "ignored"},
	}))
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(p.Resource(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Identifier() != p.Identifier() || !strings.HasPrefix(loaded.Identifier(), "urn:uuid:") {
		t.Errorf("Identifier() = %q, want %q", loaded.Identifier(), p.Identifier())
	}
	if loaded.Title() != "My Book" || loaded.Language() != "en" || !loaded.IsEPUB3() {
		t.Errorf("Title/Language/Version = %q/%q/%q", loaded.Title(), loaded.Language(), loaded.Version())
	}
	items := loaded.Items()
	if len(items) != 2 || items[1].BookPath != "OEBPS/Images/pic.png" || items[1].MediaType != "image/png" {
		t.Errorf("Items() = %+v", items)
	}
	text := loaded.String()
	for _, want := range []string{"<dc:creator>Jane Doe</dc:creator>", "<dc:subject>one</dc:subject>", "<dc:subject>two</dc:subject>"} {
		if !strings.Contains(text, want) {
			t.Errorf("metadata misses %s:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ignored") {
		t.Error("unknown meta mapped into package")
	}
}

func TestGuideFollowsRelocation(t *testing.T) {
	k, p, src := setup(t, "2.0")
	cover := admit(t, k, src, "cover.xhtml", keeper.AdmitOptions{})
	admit(t, k, src, "a.xhtml", keeper.AdmitOptions{})

	text := strings.Replace(p.String(), "</package>",
		`<guide><reference type="cover" title="Cover" href="Text/cover.xhtml#top"/><reference type="text" title="Start" href="Text/a.xhtml"/></guide></package>`, 1)
	if err := k.OPF().WriteText(text); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(k.OPF(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	k.SetManifest(loaded)

	if err := k.Rename(cover, "title.xhtml"); err != nil {
		t.Fatal(err)
	}
	if got := loaded.String(); !strings.Contains(got, `href="Text/title.xhtml#top"`) || strings.Contains(got, `href="Text/cover.xhtml`) {
		t.Errorf("guide does not follow rename:\n%s", got)
	}
	if err := k.Move(cover, "OEBPS/front/title.xhtml"); err != nil {
		t.Fatal(err)
	}
	got := loaded.String()
	for _, want := range []string{`href="front/title.xhtml#top"`, `href="Text/a.xhtml"`} {
		if !strings.Contains(got, want) {
			t.Errorf("guide misses %s:\n%s", want, got)
		}
	}
	if err := k.Remove(cover); err != nil {
		t.Fatal(err)
	}
	if got := loaded.String(); strings.Contains(got, "title.xhtml") {
		t.Errorf("guide reference kept after removal:\n%s", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	k, _, _ := setup(t, "2.0")
	if err := k.OPF().WriteText(`<?xml version="1.0"?><package/>`); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(k.OPF(), zap.NewNop()); err == nil {
		t.Error("Load() expected error for package without manifest")
	}
}

func TestGenerators(t *testing.T) {
	ncx, err := DefaultNCX("urn:uuid:1", "Book", "Text/a.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<meta name="dtb:uid" content="urn:uuid:1"/>`, `<content src="Text/a.xhtml"/>`, `<text>Book</text>`} {
		if !strings.Contains(ncx, want) {
			t.Errorf("NCX misses %s:\n%s", want, ncx)
		}
	}

	nav, err := EmptyNav("Navigation", "en")
	if err != nil {
		t.Fatal(err)
	}
	if err := xhtml.WellFormed(nav); err != nil {
		t.Errorf("nav is not well formed: %v", err)
	}
	if !strings.Contains(nav, `epub:type="toc"`) || !strings.Contains(nav, "<!DOCTYPE html>") {
		t.Errorf("unexpected nav:\n%s", nav)
	}
}
