package css

import (
	"regexp"
	"strings"
)

// Declaration is a single property declaration with its raw value.
type Declaration struct {
	Property string
	Raw      string
}

// Rule represents a single CSS rule (selector + declarations in source order).
type Rule struct {
	Selector     string
	Declarations []Declaration
}

// GetProperty returns the last value declared for a property.
func (r Rule) GetProperty(name string) (string, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i].Raw, true
		}
	}
	return "", false
}

// FontFace represents an @font-face declaration.
type FontFace struct {
	Family string
	Src    string
}

// MediaBlock represents a @media block with its query and nested rules.
type MediaBlock struct {
	Query string
	Rules []Rule
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, MediaBlock, FontFace or Import is non-nil.
type StylesheetItem struct {
	Rule       *Rule
	MediaBlock *MediaBlock
	FontFace   *FontFace
	Import     *string
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []StylesheetItem
	Warnings []string
}

// Imports returns all @import URLs from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// FontFaces returns all @font-face declarations in source order.
func (s *Stylesheet) FontFaces() []FontFace {
	var faces []FontFace
	for _, item := range s.Items {
		if item.FontFace != nil {
			faces = append(faces, *item.FontFace)
		}
	}
	return faces
}

// Reference is external resource reference found in stylesheet.
type Reference struct {
	URL     string // as it appears in CSS, without quotes
	Context string // "import", "font-face" or property name
}

// urlExtractPattern matches url("path"), url('path') and url(path).
var urlExtractPattern = regexp.MustCompile(`url\s*\(\s*(?:["']([^"']*)["']|([^)"']*))\s*\)`)

// URLsIn returns url() references from raw CSS value.
func URLsIn(raw string) []string {
	var urls []string
	for _, m := range urlExtractPattern.FindAllStringSubmatch(raw, -1) {
		u := m[1]
		if u == "" {
			u = m[2]
		}
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// References returns unique external references of the stylesheet in source
// order.
func (s *Stylesheet) References() []Reference {
	var refs []Reference
	seen := make(map[string]bool)

	add := func(url, context string) {
		url = strings.TrimSpace(url)
		if url != "" && !seen[url] {
			refs = append(refs, Reference{URL: url, Context: context})
			seen[url] = true
		}
	}
	fromRule := func(r Rule) {
		for _, d := range r.Declarations {
			for _, u := range URLsIn(d.Raw) {
				add(u, d.Property)
			}
		}
	}

	for _, item := range s.Items {
		switch {
		case item.Import != nil:
			add(*item.Import, "import")
		case item.FontFace != nil:
			for _, u := range URLsIn(item.FontFace.Src) {
				add(u, "font-face")
			}
		case item.Rule != nil:
			fromRule(*item.Rule)
		case item.MediaBlock != nil:
			for _, r := range item.MediaBlock.Rules {
				fromRule(r)
			}
		}
	}
	return refs
}
