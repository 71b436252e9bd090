package xhtml

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	NamespaceXHTML = "http://www.w3.org/1999/xhtml"
	NamespaceSVG   = "http://www.w3.org/2000/svg"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
	NamespaceOPS   = "http://www.idpf.org/2007/ops"

	DoctypeHTML5   = `DOCTYPE html`
	DoctypeXHTML11 = `DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd"`
)

// self-closed raw text elements, HTML parser would treat the rest of the
// document as their content
var selfClosedRaw = regexp.MustCompile(`(?i)<(title|script|style|textarea|noscript|iframe|noembed|noframes|xmp)(\s[^<>]*?)?\s*/>`)

func readSettings() etree.ReadSettings {
	return etree.ReadSettings{
		Entity:        xml.HTMLEntity,
		PreserveCData: true,
	}
}

// WellFormed returns error describing first XML well-formedness problem of
// the document.
func WellFormed(text string) error {
	doc := etree.NewDocument()
	doc.ReadSettings = readSettings()
	if err := doc.ReadFromString(text); err != nil {
		return fmt.Errorf("document is not well-formed: %w", err)
	}
	if doc.Root() == nil {
		return fmt.Errorf("document has no root element")
	}
	return nil
}

// Mend returns well-formed XHTML version of the document. Documents which
// are already well-formed are returned unchanged. Otherwise text is parsed
// the way browsers do it and serialized back as XML with given doctype.
func Mend(text, doctype string) (string, error) {
	if WellFormed(text) == nil {
		return text, nil
	}

	root, err := html.Parse(strings.NewReader(selfClosedRaw.ReplaceAllString(text, "<$1$2></$1>")))
	if err != nil {
		return "", fmt.Errorf("unable to parse document: %w", err)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.CreateText("\n")
	doc.CreateDirective(doctype)
	doc.CreateText("\n")
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		convertNode(&doc.Element, n)
	}
	if r := doc.Root(); r != nil && r.SelectAttr("xmlns") == nil {
		r.CreateAttr("xmlns", NamespaceXHTML)
	}

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("unable to serialize document: %w", err)
	}
	return out, nil
}

func convertNode(parent *etree.Element, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		el := parent.CreateElement(n.Data)
		switch {
		case n.DataAtom == atom.Svg && n.Namespace == "svg":
			el.CreateAttr("xmlns", NamespaceSVG)
		case n.DataAtom == atom.Math && n.Namespace == "math":
			el.CreateAttr("xmlns", "http://www.w3.org/1998/Math/MathML")
		}
		for _, a := range n.Attr {
			key := a.Key
			switch a.Namespace {
			case "":
			case "xlink":
				key = "xlink:" + key
				if el.SelectAttr("xmlns:xlink") == nil && findXLinkScope(parent) {
					el.CreateAttr("xmlns:xlink", NamespaceXLink)
				}
			default:
				key = a.Namespace + ":" + key
			}
			if strings.ContainsAny(key, `"'<>/=`) || el.SelectAttr(key) != nil {
				continue
			}
			el.CreateAttr(key, a.Val)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			convertNode(el, c)
		}
	case html.TextNode:
		if parent.Parent() == nil && strings.TrimSpace(n.Data) == "" {
			return
		}
		parent.CreateText(n.Data)
	case html.CommentNode:
		parent.CreateComment(n.Data)
	}
}

// findXLinkScope reports true when no ancestor declares xlink namespace.
func findXLinkScope(el *etree.Element) bool {
	for p := el; p != nil; p = p.Parent() {
		if p.SelectAttr("xmlns:xlink") != nil {
			return false
		}
	}
	return true
}
