package rewrite

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"

	"epubkeep/xhtml"
)

// single attribute inside raw start tag: name and optional value
var tagAttr = regexp.MustCompile(`\s+([^\s"'>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+)))?`)

// HTML rewrites references in (X)HTML document located at currentPath which
// is going to be stored at newBookPath. Reference carrying attributes are
// rewritten using htmlUpdates, style attributes and style elements using
// cssUpdates. Everything else, including markup of unchanged references, is
// copied verbatim.
func HTML(text, newBookPath string, htmlUpdates, cssUpdates Updates, currentPath string) string {
	hr := newResolver(htmlUpdates, currentPath, newBookPath)
	cr := newResolver(cssUpdates, currentPath, newBookPath)

	var (
		sb      strings.Builder
		inStyle bool
		changed bool
	)
	sb.Grow(len(text))

	z := nethtml.NewTokenizer(strings.NewReader(text))
	for {
		tt := xhtml.Next(z)
		if tt == nethtml.ErrorToken {
			break
		}
		// copy before TagName, which lowercases buffer in place
		raw := string(z.Raw())
		out := raw
		switch tt {
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			out = rewriteTag(raw, len(name)+1, hr, cr)
			inStyle = tt == nethtml.StartTagToken && string(name) == "style"
		case nethtml.EndTagToken:
			inStyle = false
		case nethtml.TextToken:
			if inStyle {
				out = rewriteCSS(raw, cr)
			}
		}
		if out != raw {
			changed = true
		}
		sb.WriteString(out)
	}
	if !changed {
		return text
	}
	return sb.String()
}

// rewriteTag rewrites attribute values of a raw start tag. Attributes start
// after offset (tag name and opening bracket).
func rewriteTag(raw string, offset int, hr, cr resolver) string {
	if offset >= len(raw) {
		return raw
	}
	var (
		sb   strings.Builder
		last int
	)
	for _, m := range tagAttr.FindAllStringSubmatchIndex(raw[offset:], -1) {
		name := strings.ToLower(raw[offset+m[2] : offset+m[3]])
		start, end := -1, -1
		for g := 4; g+1 < len(m); g += 2 {
			if m[g] >= 0 {
				start, end = offset+m[g], offset+m[g+1]
				break
			}
		}
		if start < 0 {
			continue
		}
		value := html.UnescapeString(raw[start:end])

		var (
			replacement string
			ok          bool
		)
		switch {
		case name == "style":
			if updated := strings.TrimSuffix(rewriteCSS(value+";", cr), ";"); updated != value {
				replacement, ok = updated, true
			}
		case xhtml.IsRefAttr(name):
			replacement, ok = hr.rewrite(strings.TrimSpace(value))
		}
		if !ok {
			continue
		}
		quote := raw[start-1]
		escaped := html.EscapeString(replacement)
		if quote != '"' && quote != '\'' {
			escaped = `"` + escaped + `"`
		}
		sb.WriteString(raw[last:start])
		sb.WriteString(escaped)
		last = end
	}
	if last == 0 {
		return raw
	}
	sb.WriteString(raw[last:])
	return sb.String()
}
