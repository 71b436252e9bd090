package rewrite

import (
	"regexp"
	"strings"

	"epubkeep/css"
)

var (
	// property contexts which may carry references
	cssRefContext = regexp.MustCompile(`(?:(?:src|background|background-image|block|border|border-image|border-image-source|content|cursor|list-style|list-style-image|mask|mask-image|(?:-webkit-)?shape-outside)\s*:|@import)\s*([^;\}]*)(?:;|\})`)
	cssURL        = regexp.MustCompile(`url\(["']?([^\(\)"']*)["']?\)`)
	cssImportURL  = regexp.MustCompile(`url\(["']?([^\(\)"']*)["']?\)|["']([^\(\)"']*)["']`)
)

// CSS rewrites references in stylesheet text located at currentPath which is
// going to be stored at newBookPath. References which do not change are left
// byte for byte intact.
func CSS(text string, updates Updates, currentPath, newBookPath string) string {
	return rewriteCSS(text, newResolver(updates, currentPath, newBookPath))
}

func rewriteCSS(text string, r resolver) string {
	var (
		sb   strings.Builder
		last int
	)
	for _, m := range cssRefContext.FindAllStringSubmatchIndex(text, -1) {
		if m[2] < 0 {
			continue
		}
		re := cssURL
		if strings.HasPrefix(text[m[0]:m[1]], "@import") {
			re = cssImportURL
		}
		fragStart, fragment := m[2], text[m[2]:m[3]]
		for _, u := range re.FindAllStringSubmatchIndex(fragment, -1) {
			// first non-empty capturing group
			start, end := -1, -1
			for g := 2; g+1 < len(u); g += 2 {
				if u[g] >= 0 && u[g+1] > u[g] {
					start, end = u[g], u[g+1]
					break
				}
			}
			if start < 0 {
				continue
			}
			ref, ok := r.rewrite(fragment[start:end])
			if !ok {
				continue
			}
			sb.WriteString(text[last : fragStart+start])
			sb.WriteString(ref)
			last = fragStart + end
		}
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// MightReferenceCSS reports if stylesheet located at currentPath has at least
// one reference to any of updates keys.
func MightReferenceCSS(text string, updates Updates, currentPath string) bool {
	if len(updates) == 0 {
		return false
	}
	r := newResolver(updates, currentPath, currentPath)
	for _, ref := range css.NewParser(nil).Parse([]byte(text)).References() {
		if r.targets(ref.URL) {
			return true
		}
	}
	return false
}
