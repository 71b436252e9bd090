package opf

import (
	"fmt"

	"github.com/beevik/etree"

	"epubkeep/xhtml"
)

// DefaultNCX returns NCX document with single navigation point pointing to
// firstHref (relative to NCX location).
func DefaultNCX(identifier, title, firstHref string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(`DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd"`)

	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", NamespaceNCX)
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")
	for _, m := range [][2]string{
		{"dtb:uid", identifier},
		{"dtb:depth", "1"},
		{"dtb:totalPageCount", "0"},
		{"dtb:maxPageNumber", "0"},
	} {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", m[0])
		meta.CreateAttr("content", m[1])
	}

	docTitle := ncx.CreateElement("docTitle")
	docTitle.CreateElement("text").SetText(title)

	navMap := ncx.CreateElement("navMap")
	if firstHref != "" {
		navPoint := navMap.CreateElement("navPoint")
		navPoint.CreateAttr("id", "navPoint-1")
		navPoint.CreateAttr("playOrder", "1")
		navPoint.CreateElement("navLabel").CreateElement("text").SetText("Start")
		navPoint.CreateElement("content").CreateAttr("src", firstHref)
	}
	return serialize(doc)
}

// EmptyNav returns EPUB 3 navigation document with empty table of contents.
func EmptyNav(title, language string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(xhtml.DoctypeHTML5)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", xhtml.NamespaceXHTML)
	html.CreateAttr("xmlns:epub", xhtml.NamespaceOPS)
	if language != "" {
		html.CreateAttr("lang", language)
		html.CreateAttr("xml:lang", language)
	}

	head := html.CreateElement("head")
	head.CreateElement("title").SetText(title)

	body := html.CreateElement("body")
	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateElement("h1").SetText("Table of Contents")
	nav.CreateElement("ol")

	return serialize(doc)
}

func serialize(doc *etree.Document) (string, error) {
	doc.Indent(2)
	text, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("unable to serialize document: %w", err)
	}
	return text, nil
}
