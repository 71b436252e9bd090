// Package importer brings external HTML document together with images and
// stylesheets it references into a book.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"epubkeep/book"
	"epubkeep/bookpath"
	"epubkeep/config"
	"epubkeep/css"
	"epubkeep/keeper"
	"epubkeep/media"
	"epubkeep/opf"
	"epubkeep/rewrite"
	"epubkeep/xhtml"
)

var (
	ErrCannotReadFile = errors.New("cannot read file")
	ErrOutOfOrder     = errors.New("operation is not allowed in current state")
)

type Options struct {
	// IgnoreDuplicates reuses resident resources with the same file name
	// instead of importing referenced files again.
	IgnoreDuplicates bool
	ExtractMetadata  bool
	// Mend repairs documents which are not well-formed XML.
	Mend bool
	// Workers limits concurrent imports per asset category, 0 means book
	// default.
	Workers int
}

// OptionsFromConfig returns import options of configuration section.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		IgnoreDuplicates: cfg.IgnoreDuplicates,
		ExtractMetadata:  cfg.ExtractMetadata,
		Mend:             cfg.Mend,
		Workers:          cfg.Workers,
	}
}

// Result of a finished import.
type Result struct {
	HTML *keeper.Resource
	// Added lists book paths of all resources created by import.
	Added []string
	// Broken lists references to missing files, left as they were.
	Broken []string
}

// Importer imports single HTML document. It is not reusable.
type Importer struct {
	log  *zap.Logger
	b    *book.Book
	src  string
	key  string // slash separated absolute source path, base of references
	opts Options

	mu     sync.Mutex
	state  State
	source string
	added  []string
	broken []string
}

// New prepares import of file src into b.
func New(b *book.Book, src string, opts Options, log *zap.Logger) (*Importer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path for %s: %w", src, err)
	}
	if opts.Workers <= 0 {
		opts.Workers = b.Workers()
	}
	return &Importer{
		log:  log.Named("import"),
		b:    b,
		src:  abs,
		key:  filepath.ToSlash(abs),
		opts: opts,
	}, nil
}

// State returns current state of import.
func (imp *Importer) State() State {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.state
}

func (imp *Importer) advance(from []State, to State) error {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	if !slices.Contains(from, imp.state) {
		return fmt.Errorf("unable to move import of %s from %s to %s: %w", imp.src, imp.state, to, ErrOutOfOrder)
	}
	imp.state = to
	return nil
}

// LoadSource reads and decodes source document. Text is normalized to NFC
// with LF line endings, characters not allowed in XML are dropped or
// replaced by entities. Repeated calls return cached text.
func (imp *Importer) LoadSource() (string, error) {
	imp.mu.Lock()
	if imp.state != StateCreated {
		defer imp.mu.Unlock()
		if imp.state == StateSourceLoaded || imp.state == StateMetadataExtracted {
			return imp.source, nil
		}
		return "", fmt.Errorf("unable to load source of %s in state %s: %w", imp.src, imp.state, ErrOutOfOrder)
	}
	imp.mu.Unlock()

	data, err := os.ReadFile(imp.src)
	if err != nil {
		return "", fmt.Errorf("unable to load %s: %w: %w", imp.src, ErrCannotReadFile, err)
	}
	text, enc, err := xhtml.Decode(data)
	if err != nil {
		return "", fmt.Errorf("unable to load %s: %w: %w", imp.src, ErrCannotReadFile, err)
	}
	text = xhtml.CharToEntity(xhtml.FixEncodingDeclarations(xhtml.Normalize(text)))

	if imp.opts.Mend {
		doctype := xhtml.DoctypeXHTML11
		if imp.b.Package().IsEPUB3() {
			doctype = xhtml.DoctypeHTML5
		}
		if mended, err := xhtml.Mend(text, doctype); err != nil {
			imp.log.Warn("Unable to mend document, using it as is", zap.String("src", imp.src), zap.Error(err))
		} else {
			text = mended
		}
	}
	imp.log.Debug("Source loaded", zap.String("src", imp.src), zap.String("encoding", enc), zap.Int("length", len(text)))

	imp.mu.Lock()
	imp.source = text
	imp.mu.Unlock()
	return text, imp.advance([]State{StateCreated}, StateSourceLoaded)
}

// LoadMetadata maps meta elements of loaded source to book metadata.
func (imp *Importer) LoadMetadata() error {
	imp.mu.Lock()
	source := imp.source
	imp.mu.Unlock()

	if err := imp.advance([]State{StateSourceLoaded}, StateMetadataExtracted); err != nil {
		return err
	}
	meta := opf.MetaFromHTML(xhtml.Metadata(source))
	imp.b.Package().SetMetadata(meta)
	imp.log.Debug("Metadata extracted", zap.String("src", imp.src), zap.Int("entries", len(meta)))
	return nil
}

// AddedBookPaths returns book paths of resources created so far.
func (imp *Importer) AddedBookPaths() []string {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return slices.Clone(imp.added)
}

func (imp *Importer) addPath(bp string) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	imp.added = append(imp.added, bp)
}

// Import runs the whole pipeline: loads source if necessary, creates HTML
// resource, imports referenced media and stylesheets, rewrites references and
// makes sure book has navigation.
func (imp *Importer) Import(ctx context.Context) (*Result, error) {
	switch imp.State() {
	case StateCreated:
		if _, err := imp.LoadSource(); err != nil {
			return nil, err
		}
		if imp.opts.ExtractMetadata {
			if err := imp.LoadMetadata(); err != nil {
				return nil, err
			}
		}
	case StateSourceLoaded, StateMetadataExtracted:
	default:
		return nil, fmt.Errorf("unable to import %s in state %s: %w", imp.src, imp.State(), ErrOutOfOrder)
	}

	imp.mu.Lock()
	source := imp.source
	imp.mu.Unlock()

	k := imp.b.Keeper()
	k.SuspendWatching()
	defer k.ResumeWatching()

	res, err := imp.admitSource(source)
	if err != nil {
		return nil, err
	}
	imp.addPath(res.BookPath())

	if err := imp.advance([]State{StateSourceLoaded, StateMetadataExtracted}, StateAssetsResolving); err != nil {
		return nil, err
	}
	updates, imported, err := imp.resolveAssets(ctx, source)
	if err != nil {
		return nil, err
	}

	if err := imp.rewriteAndCommit(ctx, res, source, updates, imported); err != nil {
		return nil, err
	}
	if err := imp.advance([]State{StateAssetsResolving}, StateLinksRewritten); err != nil {
		return nil, err
	}

	if err := imp.ensureNavigation(); err != nil {
		return nil, err
	}
	if err := imp.b.Save(); err != nil {
		return nil, err
	}
	if err := imp.advance([]State{StateLinksRewritten}, StateCommitted); err != nil {
		return nil, err
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	result := &Result{HTML: res, Added: slices.Clone(imp.added), Broken: slices.Clone(imp.broken)}
	slices.Sort(result.Broken)
	imp.log.Debug("Import finished", zap.String("src", imp.src), zap.Strings("added", result.Added), zap.Int("broken", len(result.Broken)))
	return result, nil
}

// admitSource creates XHTML resource with the file name of the source.
// Failure here aborts import.
func (imp *Importer) admitSource(source string) (*keeper.Resource, error) {
	dir, err := os.MkdirTemp("", "epubkeep-import-")
	if err != nil {
		return nil, fmt.Errorf("unable to import %s: %w", imp.src, err)
	}
	defer os.RemoveAll(dir)

	tmp := filepath.Join(dir, filepath.Base(imp.src))
	if err := os.WriteFile(tmp, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("unable to import %s: %w", imp.src, err)
	}
	res, err := imp.b.Keeper().Admit(tmp, keeper.AdmitOptions{MediaType: media.XHTML})
	if err != nil {
		return nil, fmt.Errorf("unable to import %s: %w", imp.src, err)
	}
	return res, nil
}

// referenceKey returns absolute slash separated path reference resolves to,
// or empty string for references which could not point to local file.
func (imp *Importer) referenceKey(ref string) string {
	if !bookpath.IsRelativeReference(ref) {
		return ""
	}
	p, _ := bookpath.ParseRelativeHREF(strings.TrimSpace(ref))
	if p = bookpath.URLDecodePath(p); p == "" {
		return ""
	}
	return bookpath.BuildBookPath(p, bookpath.StartingDir(imp.key))
}

// resolveAssets imports media and stylesheets concurrently. Returned updates
// map source paths to new book paths, imported maps book paths of new
// stylesheets to their source paths.
func (imp *Importer) resolveAssets(ctx context.Context, source string) (rewrite.Updates, map[string]string, error) {
	var (
		mu       sync.Mutex
		updates  = make(rewrite.Updates)
		imported = make(map[string]string)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		partial, _, err := imp.importAssets(ctx, xhtml.MediaPaths(source))
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for k, v := range partial {
			updates[k] = v
		}
		return nil
	})
	g.Go(func() error {
		partial, styles, err := imp.importAssets(ctx, xhtml.StylePaths(source))
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for k, v := range partial {
			updates[k] = v
		}
		for k, v := range styles {
			imported[k] = v
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return updates, imported, nil
}

// importAssets admits referenced files using bounded pool. Missing files are
// recorded as broken references with empty update value.
func (imp *Importer) importAssets(ctx context.Context, refs []string) (rewrite.Updates, map[string]string, error) {
	var (
		mu       sync.Mutex
		updates  = make(rewrite.Updates)
		imported = make(map[string]string)
		seen     = make(map[string]bool)
	)

	k := imp.b.Keeper()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Workers)
	for _, ref := range refs {
		key := imp.referenceKey(ref)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var bp string
			if imp.opts.IgnoreDuplicates {
				bp = k.PathByPathEnd(bookpath.FileName(key))
			}
			if bp == "" {
				r, err := k.Admit(filepath.FromSlash(key), keeper.AdmitOptions{})
				if err != nil {
					imp.log.Warn("Unable to import referenced file, reference left as is", zap.String("ref", ref), zap.Error(err))
					imp.mu.Lock()
					imp.broken = append(imp.broken, ref)
					imp.mu.Unlock()

					mu.Lock()
					updates[key] = ""
					mu.Unlock()
					return nil
				}
				bp = r.BookPath()
				imp.addPath(bp)
				if r.Kind() == media.KindCss {
					mu.Lock()
					imported[bp] = key
					mu.Unlock()
				}
			}
			mu.Lock()
			updates[key] = bp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return updates, imported, nil
}

// pinned returns copy of updates extended with empty entries for all
// references of refs which updates do not know about, so rewriting of a
// relocated document never touches them.
func (imp *Importer) pinned(updates rewrite.Updates, refs []string, dir string) rewrite.Updates {
	res := make(rewrite.Updates, len(updates)+len(refs))
	for k, v := range updates {
		res[k] = v
	}
	for _, ref := range refs {
		if !bookpath.IsRelativeReference(ref) {
			continue
		}
		p, _ := bookpath.ParseRelativeHREF(strings.TrimSpace(ref))
		if p = bookpath.URLDecodePath(p); p == "" {
			continue
		}
		key := bookpath.BuildBookPath(p, dir)
		if _, ok := res[key]; !ok {
			res[key] = ""
		}
	}
	return res
}

// rewriteAndCommit updates resident stylesheets concurrently while imported
// HTML is rewritten on the calling goroutine.
func (imp *Importer) rewriteAndCommit(ctx context.Context, res *keeper.Resource, source string, updates rewrite.Updates, imported map[string]string) error {
	htmlUpdates, cssUpdates, _ := rewrite.Separate(updates)
	srcDir := bookpath.StartingDir(imp.key)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Workers)
	for _, r := range imp.b.Keeper().ResourcesOfKind(media.KindCss) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bp := r.BookPath()
			current, fresh := imported[bp]
			if !fresh {
				current = bp
			}
			_, err := r.UpdateText(func(text string) string {
				u := cssUpdates
				if fresh {
					var refs []string
					for _, ref := range css.NewParser(imp.log).Parse([]byte(text), bp).References() {
						refs = append(refs, ref.URL)
					}
					u = imp.pinned(cssUpdates, refs, bookpath.StartingDir(current))
				} else if !rewrite.MightReferenceCSS(text, u, current) {
					return text
				}
				return rewrite.CSS(text, u, current, bp)
			})
			return err
		})
	}

	newPath := res.BookPath()
	htmlUpdates = imp.pinned(htmlUpdates, xhtml.HrefSrcPaths(source), srcDir)
	htmlUpdates[imp.key] = newPath
	cssUpdates = imp.pinned(cssUpdates, css.URLsIn(source), srcDir)

	text := rewrite.HTML(source, newPath, htmlUpdates, cssUpdates, imp.key)
	err := res.WriteText(text)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return fmt.Errorf("unable to commit %s: %w", newPath, err)
	}
	imp.log.Debug("References rewritten", zap.String("book_path", newPath), zap.Int("updates", len(updates)))
	return nil
}

// ensureNavigation adds empty navigation document to EPUB 3 books and NCX
// to EPUB 2 books when they are missing.
func (imp *Importer) ensureNavigation() error {
	pkg := imp.b.Package()
	if pkg.IsEPUB3() {
		if pkg.NavPath() != "" {
			return nil
		}
		nav, err := imp.b.CreateEmptyNav()
		if err != nil {
			return err
		}
		imp.addPath(nav.BookPath())
		return nil
	}
	if imp.b.Keeper().NCX() != nil {
		return nil
	}
	ncx, err := imp.b.AddNCXForFirstText(imp.AddedBookPaths()[0])
	if err != nil {
		return err
	}
	imp.addPath(ncx.BookPath())
	return nil
}
