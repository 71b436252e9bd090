package book

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epubkeep/bookpath"
	"epubkeep/keeper"
	"epubkeep/opf"
)

const navFileName = "nav.xhtml"

// CreateEmptyNav adds navigation document with empty table of contents to
// text folder, marks it in manifest and makes it non-linear.
func (b *Book) CreateEmptyNav() (*keeper.Resource, error) {
	text, err := opf.EmptyNav("Navigation", b.pkg.Language())
	if err != nil {
		return nil, err
	}
	r, err := b.admitText(navFileName, text)
	if err != nil {
		return nil, fmt.Errorf("unable to create navigation document: %w", err)
	}
	err = multierr.Combine(b.pkg.SetNav(r), b.pkg.SetNonLinear(r))
	if err != nil {
		return nil, err
	}
	b.log.Debug("Navigation document created", zap.String("book_path", r.BookPath()))
	return r, nil
}

// AddNCXForFirstText adds toc.ncx next to package document with single entry
// pointing at firstBookPath.
func (b *Book) AddNCXForFirstText(firstBookPath string) (*keeper.Resource, error) {
	ncxPath := bookpath.Join(bookpath.StartingDir(b.pkg.Resource().BookPath()), keeper.DefaultNCXName)
	r, err := b.k.AddNCX(ncxPath)
	if err != nil {
		return nil, fmt.Errorf("unable to create NCX: %w", err)
	}

	var href string
	if firstBookPath != "" {
		href = bookpath.BuildRelativeHREF(bookpath.BuildRelativePath(ncxPath, firstBookPath), "")
	}
	text, err := opf.DefaultNCX(b.pkg.Identifier(), b.pkg.Title(), href)
	if err != nil {
		return nil, err
	}
	if err := r.WriteText(text); err != nil {
		return nil, err
	}
	b.log.Debug("NCX created", zap.String("book_path", r.BookPath()), zap.String("first", firstBookPath))
	return r, nil
}

// admitText stores text as a new resource with the given file name in
// default folder of its media group.
func (b *Book) admitText(name, text string) (*keeper.Resource, error) {
	dir, err := os.MkdirTemp("", "epubkeep-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, name)
	if err := os.WriteFile(src, []byte(text), 0o644); err != nil {
		return nil, err
	}
	return b.k.Admit(src, keeper.AdmitOptions{})
}
