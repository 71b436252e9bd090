package xhtml

import (
	"slices"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="de">
<head>
  <title> Ein Buch </title>
  <meta name="Author" content="Jane Doe"/>
  <meta name="description" content="Short"/>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8"/>
  <link rel="stylesheet" type="text/css" href="css/main.css"/>
  <link rel="icon" href="favicon.ico"/>
</head>
<body>
  <p><a href="other.html#ch2">next</a> <a href="http://example.com/">web</a></p>
  <img src="images/a.png" alt=""/>
  <img src="images/a.png" alt="again"/>
  <svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"><image xlink:href="images/b%20c.jpg"/></svg>
  <video src="media/v.mp4" poster="images/poster.png"></video>
  <script src="js/app.js"></script>
</body>
</html>`

func TestHrefSrcPaths(t *testing.T) {
	want := []string{"css/main.css", "favicon.ico", "other.html#ch2", "http://example.com/", "images/a.png",
		"images/b%20c.jpg", "media/v.mp4", "images/poster.png", "js/app.js"}
	if got := HrefSrcPaths(sample); !slices.Equal(got, want) {
		t.Errorf("HrefSrcPaths() =\n%v\nwant\n%v", got, want)
	}
}

func TestMediaPaths(t *testing.T) {
	want := []string{"images/a.png", "images/b%20c.jpg", "media/v.mp4", "images/poster.png"}
	if got := MediaPaths(sample); !slices.Equal(got, want) {
		t.Errorf("MediaPaths() = %v, want %v", got, want)
	}
}

func TestStylePaths(t *testing.T) {
	if got := StylePaths(sample); !slices.Equal(got, []string{"css/main.css"}) {
		t.Errorf("StylePaths() = %v", got)
	}
}

func TestMetadata(t *testing.T) {
	want := []Meta{
		{Name: "language", Content: "de"},
		{Name: "title", Content: "Ein Buch"},
		{Name: "author", Content: "Jane Doe"},
		{Name: "description", Content: "Short"},
	}
	if got := Metadata(sample); !slices.Equal(got, want) {
		t.Errorf("Metadata() = %v, want %v", got, want)
	}
}

func TestSelfClosedRawTextElements(t *testing.T) {
	doc := `<html xmlns="http://www.w3.org/1999/xhtml" lang="fr">
<head><title/><script type="text/javascript" src="js/app.js"/><meta name="author" content="A"/>
<link rel="stylesheet" href="css/s.css"/><textarea/></head>
<body><img src="img/a.png" alt=""/><a href="b.html">b</a></body>
</html>`
	if got := MediaPaths(doc); !slices.Equal(got, []string{"img/a.png"}) {
		t.Errorf("MediaPaths() = %v", got)
	}
	if got := StylePaths(doc); !slices.Equal(got, []string{"css/s.css"}) {
		t.Errorf("StylePaths() = %v", got)
	}
	if got, want := HrefSrcPaths(doc), []string{"js/app.js", "css/s.css", "img/a.png", "b.html"}; !slices.Equal(got, want) {
		t.Errorf("HrefSrcPaths() = %v, want %v", got, want)
	}
	if got, want := Metadata(doc), []Meta{{Name: "language", Content: "fr"}, {Name: "author", Content: "A"}}; !slices.Equal(got, want) {
		t.Errorf("Metadata() = %v, want %v", got, want)
	}
}

func TestMendSelfClosedRawText(t *testing.T) {
	broken := `<html><head><title/><script src="js/app.js" /></head><body><p>One<br><img src="a.png"></body></html>`
	out, err := Mend(broken, DoctypeHTML5)
	if err != nil {
		t.Fatal(err)
	}
	if err := WellFormed(out); err != nil {
		t.Fatalf("not well-formed: %v\n%s", err, out)
	}
	if got := MediaPaths(out); !slices.Equal(got, []string{"a.png"}) {
		t.Errorf("body lost after mend, MediaPaths() = %v:\n%s", got, out)
	}
	if got := HrefSrcPaths(out); !slices.Contains(got, "js/app.js") {
		t.Errorf("script lost after mend:\n%s", out)
	}
}

func TestWellFormedAndMend(t *testing.T) {
	if err := WellFormed(sample); err != nil {
		t.Fatalf("sample must be well-formed: %v", err)
	}
	out, err := Mend(sample, DoctypeHTML5)
	if err != nil || out != sample {
		t.Errorf("well-formed document changed by Mend, err=%v", err)
	}

	broken := `<html><head><title>T&nbsp;1</title></head><body><p>One<br>Two<p>Three</body></html>`
	if err := WellFormed(broken); err == nil {
		t.Fatal("expected well-formedness error")
	}
	out, err = Mend(broken, DoctypeHTML5)
	if err != nil {
		t.Fatalf("Mend() error = %v", err)
	}
	if err := WellFormed(out); err != nil {
		t.Errorf("mended document is not well-formed: %v\n%s", err, out)
	}
	for _, want := range []string{`<!DOCTYPE html>`, `xmlns="http://www.w3.org/1999/xhtml"`, `<br/>`, `<p>Three</p>`} {
		if !strings.Contains(out, want) {
			t.Errorf("mended document misses %q:\n%s", want, out)
		}
	}
}

func TestMendSVG(t *testing.T) {
	broken := `<html><body><svg><image xlink:href="a.png"></image></svg><br></body></html>`
	out, err := Mend(broken, DoctypeXHTML11)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `xlink:href="a.png"`) || !strings.Contains(out, `xmlns:xlink="`+NamespaceXLink+`"`) {
		t.Errorf("svg attributes lost:\n%s", out)
	}
	if err := WellFormed(out); err != nil {
		t.Errorf("not well-formed: %v", err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		want     string
		encoding string
	}{
		{"utf8 bom", append([]byte{0xef, 0xbb, 0xbf}, "<p>ü</p>"...), "<p>ü</p>", "utf-8"},
		{"xml declaration", []byte("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>\xfc</p>"), "<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>ü</p>", "windows-1252"},
		{"meta charset", []byte("<html><head><meta charset=\"windows-1251\"></head><body>\xc0</body></html>"), "<html><head><meta charset=\"windows-1251\"></head><body>\u0410</body></html>", "windows-1251"},
		{"plain utf8", []byte("<p>ü</p>"), "<p>ü</p>", "utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want || enc != tt.encoding {
				t.Errorf("Decode() = %q (%s), want %q (%s)", got, enc, tt.want, tt.encoding)
			}
		})
	}
}

func TestNormalizeAndEntities(t *testing.T) {
	if got := Normalize("a\r\nb\rc\u0065\u0301"); got != "a\nb\nc\u00e9" {
		t.Errorf("Normalize() = %q", got)
	}
	if got := CharToEntity("a\u0001b\u00a0c\u0085\td"); got != "ab&#160;c&#133;\td" {
		t.Errorf("CharToEntity() = %q", got)
	}
	fixed := FixEncodingDeclarations(`<?xml version="1.0" encoding="ISO-8859-1"?><meta charset="windows-1251"/>`)
	if fixed != `<?xml version="1.0" encoding="utf-8"?><meta charset="utf-8"/>` {
		t.Errorf("FixEncodingDeclarations() = %q", fixed)
	}
}
