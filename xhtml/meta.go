package xhtml

import (
	"strings"

	"golang.org/x/net/html"
)

// Meta is a single piece of document metadata.
type Meta struct {
	Name    string
	Content string
}

// Metadata returns document title, language and named meta elements in
// document order. Names are lowercased.
func Metadata(text string) []Meta {
	var res []Meta
	z := html.NewTokenizer(strings.NewReader(text))
	inTitle, inHead := false, false
	for {
		tt := Next(z)
		switch tt {
		case html.ErrorToken:
			return res
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := make(map[string]string)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs[string(key)] = string(val)
			}
			switch string(name) {
			case "html":
				lang := attrs["xml:lang"]
				if lang == "" {
					lang = attrs["lang"]
				}
				if lang != "" {
					res = append(res, Meta{Name: "language", Content: lang})
				}
			case "head":
				inHead = true
			case "title":
				inTitle = inHead && tt == html.StartTagToken
			case "meta":
				n, c := strings.ToLower(strings.TrimSpace(attrs["name"])), strings.TrimSpace(attrs["content"])
				if n != "" && c != "" {
					res = append(res, Meta{Name: n, Content: c})
				}
			case "body":
				return res
			}
		case html.TextToken:
			if inTitle {
				if t := strings.TrimSpace(string(z.Text())); t != "" {
					res = append(res, Meta{Name: "title", Content: t})
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "title":
				inTitle = false
			case "head":
				return res
			}
		}
	}
}
