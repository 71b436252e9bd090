package opf

import (
	"strings"

	"epubkeep/xhtml"
)

// Meta is a single metadata entry. Name is local name of Dublin Core
// element.
type Meta struct {
	Name    string
	Content string
}

// Dublin Core elements which could appear only once in generated metadata.
var singleValued = map[string]bool{
	"title":       true,
	"language":    true,
	"description": true,
	"date":        true,
	"publisher":   true,
	"rights":      true,
}

var htmlToDC = map[string]string{
	"title":       "title",
	"language":    "language",
	"author":      "creator",
	"creator":     "creator",
	"description": "description",
	"subject":     "subject",
	"keywords":    "subject",
	"publisher":   "publisher",
	"date":        "date",
	"rights":      "rights",
	"copyright":   "rights",
	"contributor": "contributor",
	"identifier":  "identifier",
	"source":      "source",
	"type":        "type",
	"format":      "format",
	"coverage":    "coverage",
	"relation":    "relation",
}

// MetaFromHTML maps metadata found in HTML head to Dublin Core. Both plain
// names ("author") and qualified ones ("DC.creator") are recognized,
// comma separated keywords become separate subjects.
func MetaFromHTML(in []xhtml.Meta) []Meta {
	var res []Meta
	for _, m := range in {
		name := strings.ToLower(strings.TrimSpace(m.Name))
		name = strings.TrimPrefix(strings.TrimPrefix(name, "dc."), "dcterms.")
		dc, ok := htmlToDC[name]
		content := strings.TrimSpace(m.Content)
		if !ok || content == "" {
			continue
		}
		if name == "keywords" {
			for kw := range strings.SplitSeq(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					res = append(res, Meta{Name: dc, Content: kw})
				}
			}
			continue
		}
		res = append(res, Meta{Name: dc, Content: content})
	}
	return res
}

// SetMetadata merges entries into package metadata. Single valued elements
// are replaced, others are added unless the same value is already present.
func (p *Package) SetMetadata(ms []Meta) {
	p.mu.Lock()
	defer p.mu.Unlock()

	replaced := make(map[string]bool)
	for _, m := range ms {
		if singleValued[m.Name] {
			if replaced[m.Name] {
				continue
			}
			replaced[m.Name] = true
			if el := p.dcElement(m.Name); el != nil {
				el.SetText(m.Content)
				continue
			}
		} else if p.hasDC(m.Name, m.Content) {
			continue
		}
		el := p.metadata.CreateElement("dc:" + m.Name)
		el.SetText(m.Content)
		if m.Name == "creator" && !isEPUB3(p.version) {
			el.CreateAttr("opf:role", "aut")
		}
	}
}

func (p *Package) hasDC(name, content string) bool {
	for _, el := range p.metadata.ChildElements() {
		if el.Space == "dc" && el.Tag == name && strings.TrimSpace(el.Text()) == content {
			return true
		}
	}
	return false
}
