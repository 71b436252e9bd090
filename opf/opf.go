// Package opf maintains the package document of the book: metadata,
// manifest and spine. Package implements keeper.Manifest so manifest follows
// every change of resource table.
package opf

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"epubkeep/bookpath"
	"epubkeep/keeper"
)

const (
	NamespaceOPF = "http://www.idpf.org/2007/opf"
	NamespaceDC  = "http://purl.org/dc/elements/1.1/"
	NamespaceNCX = "http://www.daisy.org/z3986/2005/ncx/"

	uniqueIDName = "BookId"
)

var ErrMalformed = errors.New("malformed package document")

// Item is a single manifest entry.
type Item struct {
	ID         string
	Href       string
	BookPath   string
	MediaType  string
	Properties string
}

// Package is in-memory package document backed by OPF resource.
type Package struct {
	log *zap.Logger
	res *keeper.Resource

	mu       sync.Mutex
	doc      *etree.Document
	version  string
	// folder manifest hrefs are relative to
	base     string
	metadata *etree.Element
	manifest *etree.Element
	spine    *etree.Element
}

// New creates fresh package document of the version ("2.0" or "3.0") for
// OPF resource. Nothing is written until Save.
func New(res *keeper.Resource, version string, log *zap.Logger) *Package {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", NamespaceOPF)
	pkg.CreateAttr("unique-identifier", uniqueIDName)
	pkg.CreateAttr("version", version)

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", NamespaceDC)
	metadata.CreateAttr("xmlns:opf", NamespaceOPF)

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", uniqueIDName)
	dcIdentifier.SetText("urn:uuid:" + uuid.NewString())

	dcTitle := metadata.CreateElement("dc:title")
	dcTitle.SetText("[Title here]")

	dcLang := metadata.CreateElement("dc:language")
	dcLang.SetText("en")

	if isEPUB3(version) {
		modified := metadata.CreateElement("meta")
		modified.CreateAttr("property", "dcterms:modified")
		modified.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	}

	p := &Package{
		log:      log.Named("opf"),
		res:      res,
		doc:      doc,
		version:  version,
		base:     bookpath.StartingDir(res.BookPath()),
		metadata: metadata,
		manifest: pkg.CreateElement("manifest"),
		spine:    pkg.CreateElement("spine"),
	}
	return p
}

// Load parses package document of the OPF resource.
func Load(res *keeper.Resource, log *zap.Logger) (*Package, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromFile(res.FullPath()); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", res.BookPath(), err)
	}

	pkg := doc.Root()
	if pkg == nil || pkg.Tag != "package" {
		return nil, fmt.Errorf("%s has no package element: %w", res.BookPath(), ErrMalformed)
	}
	p := &Package{
		log:      log.Named("opf"),
		res:      res,
		doc:      doc,
		version:  pkg.SelectAttrValue("version", "2.0"),
		base:     bookpath.StartingDir(res.BookPath()),
		metadata: pkg.SelectElement("metadata"),
		manifest: pkg.SelectElement("manifest"),
		spine:    pkg.SelectElement("spine"),
	}
	if p.manifest == nil {
		return nil, fmt.Errorf("%s has no manifest: %w", res.BookPath(), ErrMalformed)
	}
	if p.metadata == nil {
		p.metadata = etree.NewElement("metadata")
		pkg.InsertChildAt(0, p.metadata)
	}
	if p.spine == nil {
		p.spine = pkg.CreateElement("spine")
	}
	return p, nil
}

func isEPUB3(version string) bool {
	return strings.HasPrefix(version, "3")
}

// Resource returns OPF resource.
func (p *Package) Resource() *keeper.Resource {
	return p.res
}

// Version returns package version attribute.
func (p *Package) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// IsEPUB3 reports if package is EPUB 3.
func (p *Package) IsEPUB3() bool {
	return isEPUB3(p.Version())
}

// Items returns manifest entries in document order with hrefs resolved to
// book paths.
func (p *Package) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res []Item
	for _, el := range p.manifest.SelectElements("item") {
		href := el.SelectAttrValue("href", "")
		if href == "" {
			continue
		}
		path, _ := bookpath.ParseRelativeHREF(href)
		res = append(res, Item{
			ID:         el.SelectAttrValue("id", ""),
			Href:       href,
			BookPath:   bookpath.BuildBookPath(bookpath.URLDecodePath(path), p.base),
			MediaType:  el.SelectAttrValue("media-type", ""),
			Properties: el.SelectAttrValue("properties", ""),
		})
	}
	return res
}

// Spine returns book paths of spine items in reading order.
func (p *Package) Spine() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res []string
	for _, ref := range p.spine.SelectElements("itemref") {
		if item := p.itemByID(ref.SelectAttrValue("idref", "")); item != nil {
			res = append(res, p.itemBookPath(item))
		}
	}
	return res
}

// Identifier returns unique identifier of the book.
func (p *Package) Identifier() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid := p.doc.Root().SelectAttrValue("unique-identifier", "")
	var first string
	for _, el := range p.metadata.ChildElements() {
		if el.Space != "dc" || el.Tag != "identifier" {
			continue
		}
		if uid != "" && el.SelectAttrValue("id", "") == uid {
			return strings.TrimSpace(el.Text())
		}
		if first == "" {
			first = strings.TrimSpace(el.Text())
		}
	}
	return first
}

// Title returns first dc:title of the book.
func (p *Package) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el := p.dcElement("title"); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// Language returns first dc:language of the book.
func (p *Package) Language() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el := p.dcElement("language"); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func (p *Package) dcElement(name string) *etree.Element {
	for _, el := range p.metadata.ChildElements() {
		if el.Space == "dc" && el.Tag == name {
			return el
		}
	}
	return nil
}

// Save writes package document to OPF resource.
func (p *Package) Save() error {
	p.mu.Lock()
	p.doc.Indent(2)
	text, err := p.doc.WriteToString()
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("unable to serialize package document: %w", err)
	}
	if err := p.res.WriteText(text); err != nil {
		return err
	}
	p.log.Debug("Saved package document", zap.String("book_path", p.res.BookPath()))
	return nil
}

// String returns serialized package document.
func (p *Package) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, err := p.doc.WriteToString()
	if err != nil {
		return ""
	}
	return text
}
