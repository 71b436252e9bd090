package rewrite

import (
	"testing"

	"epubkeep/media"
)

func TestHTML(t *testing.T) {
	const src = "/home/u/book/chapter.html"
	const dst = "OEBPS/Text/chapter.html"
	updates := Updates{
		"/home/u/book/img/a.png":    "OEBPS/Images/a.png",
		"/home/u/book/img/gone.png": "",
		src:                         dst,
		"/home/u/book/css/s.css":    "OEBPS/Styles/s.css",
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"image", `<img src="img/a.png" alt="x"/>`, `<img src="../Images/a.png" alt="x"/>`},
		{"broken image kept", `<img src="img/gone.png"/>`, `<img src="img/gone.png"/>`},
		{"single quotes", `<IMG SRC='img/a.png'>`, `<IMG SRC='../Images/a.png'>`},
		{"unquoted", `<img src=img/a.png>`, `<img src="../Images/a.png">`},
		{"self link with fragment", `<a href="chapter.html#p2">x</a>`, `<a href="chapter.html#p2">x</a>`},
		{"remote and fragment", `<a href="http://e.com/a.png">x</a><a href="#top">t</a>`, `<a href="http://e.com/a.png">x</a><a href="#top">t</a>`},
		{"stylesheet", `<link href="css/s.css" rel="stylesheet"/>`, `<link href="../Styles/s.css" rel="stylesheet"/>`},
		{"attribute lookalike in value", `<img alt=" src=img/a.png" src="img/a.png"/>`, `<img alt=" src=img/a.png" src="../Images/a.png"/>`},
		{"style attribute", `<div style="background-image: url(img/a.png)">d</div>`, `<div style="background-image: url(../Images/a.png)">d</div>`},
		{"style element", "<style>p { background: url('img/a.png'); }</style>", "<style>p { background: url('../Images/a.png'); }</style>"},
		{"comments untouched", `<!-- <img src="img/a.png"/> --><p>img/a.png</p>`, `<!-- <img src="img/a.png"/> --><p>img/a.png</p>`},
		{"svg image", `<svg><image xlink:href="img/a.png"/></svg>`, `<svg><image xlink:href="../Images/a.png"/></svg>`},
		{"after self-closed title", `<head><title/></head><body><img src="img/a.png"/></body>`, `<head><title/></head><body><img src="../Images/a.png"/></body>`},
		{"after self-closed script", `<script type="text/javascript"/><link href="css/s.css" rel="stylesheet"/><img src="img/a.png"/>`, `<script type="text/javascript"/><link href="../Styles/s.css" rel="stylesheet"/><img src="../Images/a.png"/>`},
		{"after self-closed style", `<style/><div style="background: url(img/a.png)">d</div>`, `<style/><div style="background: url(../Images/a.png)">d</div>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTML(tt.in, dst, updates, updates, src); got != tt.want {
				t.Errorf("HTML() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestHTMLUnchangedDocumentIsIdentical(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>T</title><link href="../Styles/s.css" rel="stylesheet" type="text/css"/></head>
<body><p class="x">Text &amp; more <a href="b.xhtml#n">link</a></p><img src="../Images/a.png"/></body>
</html>`
	if got := HTML(doc, "OEBPS/Text/a.xhtml", Updates{}, Updates{}, "OEBPS/Text/a.xhtml"); got != doc {
		t.Errorf("document changed:\n%s", got)
	}
}

func TestHTMLDocumentMoved(t *testing.T) {
	doc := `<p><a href="b.xhtml#n">link</a><img src="../Images/a.png"/></p>`
	want := `<p><a href="../b.xhtml#n">link</a><img src="../../Images/a.png"/></p>`
	if got := HTML(doc, "OEBPS/Text/sub/a.xhtml", nil, nil, "OEBPS/Text/a.xhtml"); got != want {
		t.Errorf("HTML() = %s, want %s", got, want)
	}
}

func TestRewriteNCX(t *testing.T) {
	ncx := `<navPoint id="n1"><content src="Text/Section0001.xhtml#c1"/></navPoint>`
	got := Rewrite(ncx, media.KindNcx, Updates{"OEBPS/Text/Section0001.xhtml": "OEBPS/Text/Intro.xhtml"}, "OEBPS/toc.ncx", "OEBPS/toc.ncx")
	if want := `<navPoint id="n1"><content src="Text/Intro.xhtml#c1"/></navPoint>`; got != want {
		t.Errorf("Rewrite() = %s, want %s", got, want)
	}
}

func TestSeparate(t *testing.T) {
	u := Updates{
		"a/f.ttf":     "Fonts/f.ttf",
		"a/i.png":     "Images/i.png",
		"a/s.css":     "Styles/s.css",
		"a/t.xhtml":   "Text/t.xhtml",
		"a/audio.mp3": "Audio/audio.mp3",
	}
	html, css, xml := Separate(u)
	if _, ok := html["a/f.ttf"]; ok {
		t.Error("font must not be in html updates")
	}
	for _, k := range []string{"a/i.png", "a/s.css", "a/t.xhtml", "a/audio.mp3"} {
		if _, ok := html[k]; !ok {
			t.Errorf("%s missing in html updates", k)
		}
	}
	for _, k := range []string{"a/f.ttf", "a/i.png", "a/s.css"} {
		if _, ok := css[k]; !ok {
			t.Errorf("%s missing in css updates", k)
		}
	}
	if _, ok := css["a/t.xhtml"]; ok {
		t.Error("xhtml must not be in css updates")
	}
	if len(xml) != len(u) {
		t.Errorf("xml updates has %d entries, want %d", len(xml), len(u))
	}
}
