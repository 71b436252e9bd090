package opf

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"epubkeep/bookpath"
	"epubkeep/keeper"
	"epubkeep/media"
)

func (p *Package) href(bookPath string) string {
	return bookpath.BuildRelativeHREF(bookpath.RelativePath(bookPath, p.base), "")
}

func (p *Package) itemBookPath(item *etree.Element) string {
	path, _ := bookpath.ParseRelativeHREF(item.SelectAttrValue("href", ""))
	return bookpath.BuildBookPath(bookpath.URLDecodePath(path), p.base)
}

// refBookPath resolves href of manifest item or guide reference.
func (p *Package) refBookPath(el *etree.Element) (string, string) {
	path, frag := bookpath.ParseRelativeHREF(el.SelectAttrValue("href", ""))
	if path == "" {
		return "", frag
	}
	return bookpath.BuildBookPath(bookpath.URLDecodePath(path), p.base), frag
}

func (p *Package) guideRefs() []*etree.Element {
	if guide := p.doc.Root().SelectElement("guide"); guide != nil {
		return guide.SelectElements("reference")
	}
	return nil
}

func (p *Package) itemByID(id string) *etree.Element {
	if id == "" {
		return nil
	}
	for _, item := range p.manifest.SelectElements("item") {
		if item.SelectAttrValue("id", "") == id {
			return item
		}
	}
	return nil
}

func (p *Package) itemByBookPath(bp string) *etree.Element {
	for _, item := range p.manifest.SelectElements("item") {
		if p.itemBookPath(item) == bp {
			return item
		}
	}
	return nil
}

// validID turns name into valid XML NCName.
func validID(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		case i == 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
			sb.WriteByte('x')
		default:
			r = '_'
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return "item"
	}
	return sb.String()
}

func (p *Package) uniqueID(name string) string {
	base := validID(name)
	id := base
	for n := 1; p.itemByID(id) != nil || p.doc.FindElement(fmt.Sprintf("//*[@id='%s']", id)) != nil; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}

// ResourceAdded adds manifest item for resource, text documents are also
// appended to spine.
func (p *Package) ResourceAdded(r *keeper.Resource) {
	if r == p.res {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(r)
}

func (p *Package) addLocked(r *keeper.Resource) {
	if p.itemByBookPath(r.BookPath()) != nil {
		return
	}

	name := r.FileName()
	if r.Kind() == media.KindNcx {
		name = "ncx"
	}
	item := p.manifest.CreateElement("item")
	item.CreateAttr("id", p.uniqueID(name))
	item.CreateAttr("href", p.href(r.BookPath()))
	item.CreateAttr("media-type", r.MediaType())

	switch r.Kind() {
	case media.KindHtml:
		ref := p.spine.CreateElement("itemref")
		ref.CreateAttr("idref", item.SelectAttrValue("id", ""))
	case media.KindNcx:
		p.spine.CreateAttr("toc", item.SelectAttrValue("id", ""))
	}
	p.log.Debug("Manifest item added", zap.String("id", item.SelectAttrValue("id", "")), zap.String("book_path", r.BookPath()))
}

// ResourceRemoved drops manifest item of the resource and its spine entries.
func (p *Package) ResourceRemoved(r *keeper.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(r.BookPath())
}

// ResourcesRemoved is ResourceRemoved for several resources.
func (p *Package) ResourcesRemoved(rs []*keeper.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range rs {
		p.removeLocked(r.BookPath())
	}
}

func (p *Package) removeLocked(bp string) {
	item := p.itemByBookPath(bp)
	if item == nil {
		return
	}
	id := item.SelectAttrValue("id", "")
	p.manifest.RemoveChild(item)
	for _, ref := range p.spine.SelectElements("itemref") {
		if ref.SelectAttrValue("idref", "") == id {
			p.spine.RemoveChild(ref)
		}
	}
	if p.spine.SelectAttrValue("toc", "") == id {
		p.spine.RemoveAttr("toc")
	}
	for _, ref := range p.guideRefs() {
		if target, _ := p.refBookPath(ref); target == bp {
			ref.Parent().RemoveChild(ref)
		}
	}
	p.log.Debug("Manifest item removed", zap.String("id", id), zap.String("book_path", bp))
}

// ResourceRenamed updates manifest href of the resource.
func (p *Package) ResourceRenamed(r *keeper.Resource, oldBookPath string) {
	p.ResourcesMoved([]keeper.Relocation{{Resource: r, OldBookPath: oldBookPath}})
}

// ResourceMoved updates manifest href of the resource.
func (p *Package) ResourceMoved(r *keeper.Resource, oldBookPath string) {
	p.ResourcesMoved([]keeper.Relocation{{Resource: r, OldBookPath: oldBookPath}})
}

// ResourcesRenamed updates hrefs of several resources.
func (p *Package) ResourcesRenamed(rels []keeper.Relocation) {
	p.ResourcesMoved(rels)
}

// ResourcesMoved updates hrefs of several resources. When package document
// itself moves all hrefs are rebased to its new folder.
func (p *Package) ResourcesMoved(rels []keeper.Relocation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// resolve items and guide references first, hrefs of moved package are
	// relative to old base
	items := make([]*etree.Element, len(rels))
	moved := make(map[string]string, len(rels))
	for i, rel := range rels {
		if rel.Resource != p.res {
			items[i] = p.itemByBookPath(rel.OldBookPath)
			moved[rel.OldBookPath] = rel.Resource.BookPath()
		}
	}
	type guideTarget struct {
		ref      *etree.Element
		bookPath string
		fragment string
	}
	var targets []guideTarget
	for _, ref := range p.guideRefs() {
		bp, frag := p.refBookPath(ref)
		if to, ok := moved[bp]; ok {
			targets = append(targets, guideTarget{ref: ref, bookPath: to, fragment: frag})
		}
	}

	for _, rel := range rels {
		if rel.Resource == p.res {
			p.rebaseLocked(bookpath.StartingDir(rel.Resource.BookPath()))
		}
	}
	for i, rel := range rels {
		if items[i] == nil {
			continue
		}
		items[i].CreateAttr("href", p.href(rel.Resource.BookPath()))
		p.log.Debug("Manifest item relocated", zap.String("from", rel.OldBookPath), zap.String("to", rel.Resource.BookPath()))
	}
	for _, t := range targets {
		t.ref.CreateAttr("href", bookpath.BuildRelativeHREF(bookpath.RelativePath(t.bookPath, p.base), t.fragment))
	}
}

func (p *Package) rebaseLocked(base string) {
	refs := append(slices.Clone(p.manifest.SelectElements("item")), p.guideRefs()...)
	for _, el := range refs {
		bp, frag := p.refBookPath(el)
		if bp == "" {
			continue
		}
		el.CreateAttr("href", bookpath.BuildRelativeHREF(bookpath.RelativePath(bp, base), frag))
	}
	p.base = base
}

// SetNav marks resource as navigation document, clearing mark on others.
func (p *Package) SetNav(r *keeper.Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.itemByBookPath(r.BookPath())
	if target == nil {
		return fmt.Errorf("unable to set nav, %s is not in manifest: %w", r.BookPath(), keeper.ErrResourceNotFound)
	}
	for _, item := range p.manifest.SelectElements("item") {
		props := strings.Fields(item.SelectAttrValue("properties", ""))
		has := slices.Contains(props, "nav")
		switch {
		case item == target && !has:
			props = append(props, "nav")
		case item != target && has:
			props = slices.DeleteFunc(props, func(s string) bool { return s == "nav" })
		default:
			continue
		}
		if len(props) == 0 {
			item.RemoveAttr("properties")
		} else {
			item.CreateAttr("properties", strings.Join(props, " "))
		}
	}
	return nil
}

// NavPath returns book path of navigation document or empty string.
func (p *Package) NavPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.manifest.SelectElements("item") {
		if slices.Contains(strings.Fields(item.SelectAttrValue("properties", "")), "nav") {
			return p.itemBookPath(item)
		}
	}
	return ""
}

// SetNonLinear marks spine entry of the resource as auxiliary content.
func (p *Package) SetNonLinear(r *keeper.Resource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := p.itemByBookPath(r.BookPath())
	if item == nil {
		return fmt.Errorf("unable to change spine, %s is not in manifest: %w", r.BookPath(), keeper.ErrResourceNotFound)
	}
	id := item.SelectAttrValue("id", "")
	for _, ref := range p.spine.SelectElements("itemref") {
		if ref.SelectAttrValue("idref", "") == id {
			ref.CreateAttr("linear", "no")
			return nil
		}
	}
	ref := p.spine.CreateElement("itemref")
	ref.CreateAttr("idref", id)
	ref.CreateAttr("linear", "no")
	return nil
}
