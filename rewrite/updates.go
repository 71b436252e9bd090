// Package rewrite updates references between resources inside HTML, CSS and
// XML documents after resources were imported, renamed or moved.
package rewrite

import (
	"epubkeep/bookpath"
	"epubkeep/media"
)

// Updates maps resolved reference target (book path or absolute source path)
// to new book path of the target. Empty value means "leave reference as is".
type Updates map[string]string

// Separate splits updates by documents they are relevant for. Fonts are only
// referenced from stylesheets, images and stylesheets may be referenced from
// both, everything else from HTML only. XML documents (NCX, OPF) could
// reference anything.
func Separate(u Updates) (html, css, xml Updates) {
	html, css, xml = make(Updates), make(Updates), make(Updates, len(u))
	for k, v := range u {
		xml[k] = v
		mt := media.FromExtension(k)
		switch {
		case media.IsFont(mt):
			css[k] = v
		case mt == media.CSS || media.IsImage(mt):
			css[k] = v
			html[k] = v
		default:
			html[k] = v
		}
	}
	return html, css, xml
}

// resolver computes new text of a single reference.
type resolver struct {
	updates     Updates
	origDir     string
	newBookPath string
	moved       bool
}

func newResolver(updates Updates, currentPath, newBookPath string) resolver {
	return resolver{
		updates:     updates,
		origDir:     bookpath.StartingDir(currentPath),
		newBookPath: newBookPath,
		moved:       bookpath.StartingDir(currentPath) != bookpath.StartingDir(newBookPath),
	}
}

// rewrite returns new reference text and true when reference has to change.
func (r resolver) rewrite(ref string) (string, bool) {
	if !bookpath.IsRelativeReference(ref) {
		return "", false
	}
	p, suffix := bookpath.ParseRelativeHREF(ref)
	apath := bookpath.URLDecodePath(p)
	if apath == "" {
		return "", false
	}

	old := bookpath.BuildBookPath(apath, r.origDir)
	target, ok := r.updates[old]
	if !ok {
		if !r.moved {
			return "", false
		}
		// document moved, target did not
		target = old
	}
	if target == "" || (target == old && !r.moved) {
		return "", false
	}

	rel := bookpath.BuildRelativePath(r.newBookPath, target)
	if rel == "" {
		rel = bookpath.FileName(target)
	}
	if rel == apath {
		return "", false
	}
	return bookpath.BuildRelativeHREF(rel, suffix), true
}

// targets reports if reference resolves to any key of updates.
func (r resolver) targets(ref string) bool {
	if !bookpath.IsRelativeReference(ref) {
		return false
	}
	p, _ := bookpath.ParseRelativeHREF(ref)
	apath := bookpath.URLDecodePath(p)
	if apath == "" {
		return false
	}
	_, ok := r.updates[bookpath.BuildBookPath(apath, r.origDir)]
	return ok
}

// Rewrite dispatches on resource kind. For HTML documents the same updates
// are used for links and for embedded styles.
func Rewrite(text string, kind media.Kind, updates Updates, currentPath, newBookPath string) string {
	switch kind {
	case media.KindCss:
		return CSS(text, updates, currentPath, newBookPath)
	case media.KindHtml, media.KindSvg, media.KindNcx, media.KindXml:
		return HTML(text, newBookPath, updates, updates, currentPath)
	}
	return text
}
