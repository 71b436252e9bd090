package rewrite

import (
	"strings"
	"testing"
)

func TestCSS(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		updates Updates
		current string
		newPath string
		want    string
	}{
		{
			name:    "import string",
			text:    "@import \"old/a.css\";\nbody { background: url(images/x.png) }\n",
			updates: Updates{"old/a.css": "new/b.css"},
			current: "main.css",
			newPath: "main.css",
			want:    "@import \"new/b.css\";\nbody { background: url(images/x.png) }\n",
		},
		{
			name:    "import url relative to styles folder",
			text:    `@import url('../Misc/a.css');`,
			updates: Updates{"OEBPS/Misc/a.css": "OEBPS/Styles/b.css"},
			current: "OEBPS/Styles/main.css",
			newPath: "OEBPS/Styles/main.css",
			want:    `@import url('b.css');`,
		},
		{
			name:    "font face src with several urls",
			text:    `@font-face { font-family: x; src: url("/tmp/in/f.woff2") format("woff2"), url(f.ttf) }`,
			updates: Updates{"/tmp/in/f.ttf": "OEBPS/Fonts/f.ttf"},
			current: "/tmp/in/style.css",
			newPath: "OEBPS/Styles/style.css",
			want:    `@font-face { font-family: x; src: url("/tmp/in/f.woff2") format("woff2"), url(../Fonts/f.ttf) }`,
		},
		{
			name:    "encoding of new name",
			text:    `p{background-image:url(old.png)}`,
			updates: Updates{"OEBPS/Styles/old.png": "OEBPS/Images/my image.png"},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Styles/s.css",
			want:    `p{background-image:url(../Images/my%20image.png)}`,
		},
		{
			name:    "broken sentinel",
			text:    `div { list-style-image: url(gone.png); }`,
			updates: Updates{"OEBPS/Styles/gone.png": ""},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Styles/s.css",
			want:    `div { list-style-image: url(gone.png); }`,
		},
		{
			name:    "data uri and remote",
			text:    `a { background: url(data:image/png;base64,AAAA); cursor: url(http://x/c.cur) }`,
			updates: Updates{},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Text/s.css",
			want:    `a { background: url(data:image/png;base64,AAAA); cursor: url(http://x/c.cur) }`,
		},
		{
			name:    "document moved, target did not",
			text:    `p { background: url(../Images/a.png); }`,
			updates: Updates{},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Styles/sub/s.css",
			want:    `p { background: url(../../Images/a.png); }`,
		},
		{
			name:    "fragment kept",
			text:    `.i { mask: url(icons.svg#star) }`,
			updates: Updates{"OEBPS/Styles/icons.svg": "OEBPS/Images/icons.svg"},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Styles/s.css",
			want:    `.i { mask: url(../Images/icons.svg#star) }`,
		},
		{
			name:    "unrelated properties untouched",
			text:    `p { color: url(a.png); }`,
			updates: Updates{"OEBPS/Styles/a.png": "OEBPS/Images/a.png"},
			current: "OEBPS/Styles/s.css",
			newPath: "OEBPS/Styles/s.css",
			want:    `p { color: url(a.png); }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CSS(tt.text, tt.updates, tt.current, tt.newPath); got != tt.want {
				t.Errorf("CSS() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestCSSNoOpIsIdentity(t *testing.T) {
	text := `body { background: url("../Images/bg%20one.png") }
@import '../Styles/x.css';
li { list-style: url(../Images/dot.png) inside; }`
	updates := Updates{
		"OEBPS/Images/bg one.png": "OEBPS/Images/bg one.png",
		"OEBPS/Images/dot.png":    "OEBPS/Images/dot.png",
		"OEBPS/Styles/x.css":      "OEBPS/Styles/x.css",
	}
	if got := CSS(text, updates, "OEBPS/Styles/s.css", "OEBPS/Styles/s.css"); got != text {
		t.Errorf("no-op mapping changed text:\n%s", got)
	}
}

func TestCSSSelfReference(t *testing.T) {
	text := `@import "x.css";`
	got := CSS(text, Updates{"OEBPS/Styles/x.css": "OEBPS/Styles/y.css"}, "OEBPS/Styles/x.css", "OEBPS/Styles/y.css")
	if got != `@import "y.css";` {
		t.Errorf("got %q", got)
	}
}

func TestMightReferenceCSS(t *testing.T) {
	text := `@import "a.css"; p { background: url(../Images/b.png) }`
	if !MightReferenceCSS(text, Updates{"OEBPS/Images/b.png": "x"}, "OEBPS/Styles/s.css") {
		t.Error("reference to image not detected")
	}
	if MightReferenceCSS(text, Updates{"OEBPS/Images/c.png": "x"}, "OEBPS/Styles/s.css") {
		t.Error("unexpected reference")
	}
	if MightReferenceCSS(strings.Repeat("p{}", 3), nil, "s.css") {
		t.Error("empty updates must never match")
	}
}
