// Package book ties together workspace resources, package document and
// reference maintenance of a single EPUB being edited.
package book

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/beevik/etree"
	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epubkeep/config"
	"epubkeep/keeper"
	"epubkeep/media"
	"epubkeep/opf"
)

var (
	ErrNoContainer = errors.New("container.xml is missing or has no rootfile")
	ErrLocked      = errors.New("workspace is used by another process")
)

const changesBuffer = 64

// Book is an open workspace. All mutations of resources should go through
// Book so references between documents stay consistent.
type Book struct {
	root    *zap.Logger
	log     *zap.Logger
	cfg     *config.Config
	k       *keeper.Keeper
	pkg     *opf.Package
	lock    *flock.Flock
	workers int

	mu      sync.Mutex
	changes chan *keeper.Resource
	closed  bool
}

func lockWorkspace(root string) (*flock.Flock, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path for %s: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create parent of workspace %s: %w", abs, err)
	}
	lock := flock.New(filepath.Clean(abs) + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("unable to lock workspace %s: %w", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("unable to lock workspace %s: %w", abs, ErrLocked)
	}
	return lock, nil
}

func newBook(root string, cfg *config.Config, log *zap.Logger) (*Book, error) {
	lock, err := lockWorkspace(root)
	if err != nil {
		return nil, err
	}

	b := &Book{
		root:    log,
		log:     log.Named("book"),
		cfg:     cfg,
		lock:    lock,
		workers: cfg.Import.Workers,
		changes: make(chan *keeper.Resource, changesBuffer),
	}
	if b.workers <= 0 {
		b.workers = runtime.GOMAXPROCS(0)
	}

	opts := []keeper.Option{keeper.WithChangeHandler(b.changed)}
	if cfg.Book.TransliterateNames {
		opts = append(opts, keeper.WithTransliteration())
	}
	if cfg.Watch.Enable {
		opts = append(opts, keeper.WithWatcher(cfg.Watch.SettleTimeout))
	}
	if b.k, err = keeper.New(root, log, opts...); err != nil {
		return nil, multierr.Append(err, lock.Unlock())
	}
	return b, nil
}

// Create initializes new empty book in root, which should not contain a book
// already.
func Create(root string, cfg *config.Config, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(keeper.ContainerPath))); err == nil {
		return nil, fmt.Errorf("unable to create book in %s: %w", root, keeper.ErrPathExists)
	}

	b, err := newBook(root, cfg, log)
	if err != nil {
		return nil, err
	}
	res, err := b.k.AddOPF("")
	if err != nil {
		return nil, multierr.Append(err, b.Close())
	}
	b.pkg = opf.New(res, cfg.Book.EpubVersion.PackageVersion(), b.root)
	b.pkg.SetMetadata([]opf.Meta{
		{Name: "title", Content: cfg.Book.Title},
		{Name: "language", Content: cfg.Book.Language},
	})
	b.k.SetManifest(b.pkg)
	if err := b.pkg.Save(); err != nil {
		return nil, multierr.Append(err, b.Close())
	}
	b.log.Debug("Book created", zap.String("root", b.k.Root()), zap.String("version", b.pkg.Version()))
	return b, nil
}

// rootFile returns book path of package document from container.xml.
func rootFile(root string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filepath.Join(root, filepath.FromSlash(keeper.ContainerPath))); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoContainer
		}
		return "", fmt.Errorf("unable to parse container.xml: %w", err)
	}
	for _, rf := range doc.FindElements("//rootfile") {
		if p := rf.SelectAttrValue("full-path", ""); p != "" {
			return p, nil
		}
	}
	return "", ErrNoContainer
}

// Open loads existing book from root. Files listed in manifest are registered
// in place, missing ones are reported and skipped.
func Open(root string, cfg *config.Config, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opfPath, err := rootFile(root)
	if err != nil {
		return nil, fmt.Errorf("unable to open book in %s: %w", root, err)
	}

	b, err := newBook(root, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := b.load(opfPath); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to open book in %s: %w", root, err), b.Close())
	}
	return b, nil
}

func (b *Book) load(opfPath string) error {
	res, err := b.k.AddOPF(opfPath)
	if err != nil {
		return err
	}
	if b.pkg, err = opf.Load(res, b.root); err != nil {
		return err
	}

	for _, item := range b.pkg.Items() {
		if item.MediaType == media.NCX {
			if _, err := b.k.AddNCX(item.BookPath); err != nil {
				b.log.Warn("Unable to register NCX", zap.String("book_path", item.BookPath), zap.Error(err))
			}
			continue
		}
		full := filepath.Join(b.k.Root(), filepath.FromSlash(item.BookPath))
		if _, err := b.k.Admit(full, keeper.AdmitOptions{BookPath: item.BookPath, MediaType: item.MediaType, Silent: true}); err != nil {
			b.log.Warn("Manifest item skipped", zap.String("id", item.ID), zap.String("book_path", item.BookPath), zap.Error(err))
		}
	}
	b.k.SetManifest(b.pkg)

	if b.cfg.Book.Layout == config.LayoutModeInferred {
		b.k.InferFolders(false)
	}
	b.log.Debug("Book opened", zap.String("root", b.k.Root()), zap.String("opf", opfPath), zap.Int("resources", b.k.Count()))
	return nil
}

// Keeper returns resource table of the book.
func (b *Book) Keeper() *keeper.Keeper {
	return b.k
}

// Package returns package document of the book.
func (b *Book) Package() *opf.Package {
	return b.pkg
}

func (b *Book) Root() string {
	return b.k.Root()
}

func (b *Book) Workers() int {
	return b.workers
}

// Save writes package document.
func (b *Book) Save() error {
	return b.pkg.Save()
}

// Close stops watching, closes change stream and unlocks workspace. Package
// document is not saved.
func (b *Book) Close() error {
	err := b.k.Close()

	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.changes)
	}
	b.mu.Unlock()

	if b.lock != nil {
		err = multierr.Append(err, b.lock.Unlock())
	}
	return err
}

// Changes returns stream of resources modified on disk by external programs.
// Stream is closed by Close.
func (b *Book) Changes() <-chan *keeper.Resource {
	return b.changes
}

func (b *Book) changed(r *keeper.Resource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.changes <- r:
	default:
		b.log.Warn("Change notification dropped, nobody is listening", zap.String("book_path", r.BookPath()))
	}
}
