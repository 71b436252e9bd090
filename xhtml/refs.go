// Package xhtml is the boundary to HTML and XHTML parsing: it finds
// references to other resources, reads metadata and repairs documents.
package xhtml

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Attributes which may carry references to other resources.
var refAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"xlink:href": true,
	"poster":     true,
	"data":       true,
}

// IsRefAttr reports if attribute (lowercased name) may reference resource.
func IsRefAttr(name string) bool {
	return refAttrs[name]
}

type tagVisitor func(tag string, attrs map[string]string)

// Next advances tokenizer. XHTML allows self-closed <title/>, <script/> and
// other raw text elements, for those tokenizer must not treat following
// markup as element text.
func Next(z *html.Tokenizer) html.TokenType {
	tt := z.Next()
	if tt == html.SelfClosingTagToken {
		z.NextIsNotRawText()
	}
	return tt
}

func walkTags(text string, fn tagVisitor) {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch Next(z) {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := make(map[string]string)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs[string(key)] = string(val)
			}
			fn(string(name), attrs)
		}
	}
}

func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// HrefSrcPaths returns unique values of all reference carrying attributes in
// document order. Values are entity decoded but not URL decoded.
func HrefSrcPaths(text string) []string {
	var res []string
	walkTags(text, func(_ string, attrs map[string]string) {
		for _, key := range []string{"href", "src", "xlink:href", "poster", "data"} {
			if v, ok := attrs[key]; ok {
				res = appendUnique(res, v)
			}
		}
	})
	return res
}

// MediaPaths returns unique references to images, audio and video.
func MediaPaths(text string) []string {
	var res []string
	walkTags(text, func(tag string, attrs map[string]string) {
		switch tag {
		case "img", "audio", "source", "track", "embed":
			res = appendUnique(res, attrs["src"])
		case "video":
			res = appendUnique(res, attrs["src"])
			res = appendUnique(res, attrs["poster"])
		case "image":
			if v, ok := attrs["xlink:href"]; ok {
				res = appendUnique(res, v)
			} else {
				res = appendUnique(res, attrs["href"])
			}
		case "object":
			res = appendUnique(res, attrs["data"])
		}
	})
	return res
}

// StylePaths returns unique references to linked stylesheets.
func StylePaths(text string) []string {
	var res []string
	walkTags(text, func(tag string, attrs map[string]string) {
		if tag != "link" {
			return
		}
		if slices.Contains(strings.Fields(strings.ToLower(attrs["rel"])), "stylesheet") ||
			strings.EqualFold(attrs["type"], "text/css") {
			res = appendUnique(res, attrs["href"])
		}
	})
	return res
}
