// Package keeper owns the virtual container of a book: the table of
// resources indexed by identifier and book path, the physical files backing
// them under the workspace root and the conventions used to place new files
// into folders.
package keeper

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epubkeep/bookpath"
	"epubkeep/media"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrPathExists       = errors.New("book path already exists")
	ErrInvalidName      = errors.New("invalid file name")
)

const (
	ContainerPath   = "META-INF/container.xml"
	DefaultOPFName  = "content.opf"
	DefaultNCXName  = "toc.ncx"
	containerFormat = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
    <rootfiles>
        <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
   </rootfiles>
</container>
`
)

// Relocation describes resource which changed its book path.
type Relocation struct {
	Resource    *Resource
	OldBookPath string
}

// Manifest is notified about changes of the resource table so package
// document could be kept consistent. Hooks are called outside of keeper
// lock and could call keeper back.
type Manifest interface {
	ResourceAdded(r *Resource)
	ResourceRemoved(r *Resource)
	ResourcesRemoved(rs []*Resource)
	ResourceRenamed(r *Resource, oldBookPath string)
	ResourceMoved(r *Resource, oldBookPath string)
	ResourcesRenamed(rels []Relocation)
	ResourcesMoved(rels []Relocation)
}

// Option configures Keeper.
type Option func(*Keeper)

// WithManifest sets manifest owner to be notified about table changes.
func WithManifest(m Manifest) Option {
	return func(k *Keeper) { k.manifest = m }
}

// WithChangeHandler sets function called when watched resource is modified
// on disk.
func WithChangeHandler(fn func(*Resource)) Option {
	return func(k *Keeper) { k.onChange = fn }
}

// WithWatcher enables watching of externally editable resources. settle is
// the longest time to wait for modified file to reappear on disk.
func WithWatcher(settle time.Duration) Option {
	return func(k *Keeper) {
		k.watchEnabled = true
		k.settle = settle
	}
}

// WithTransliteration makes admitted file names ASCII only.
func WithTransliteration() Option {
	return func(k *Keeper) { k.translit = true }
}

// AdmitOptions controls placement of admitted file.
type AdmitOptions struct {
	// BookPath is used verbatim when not empty.
	BookPath string
	// Folder for the new file, empty means default folder of media group,
	// "." means container root.
	Folder string
	// MediaType overrides media type detection.
	MediaType string
	// Silent admission does not notify manifest.
	Silent bool
}

// Keeper is the resource table of a single book workspace.
type Keeper struct {
	root         string
	log          *zap.Logger
	translit     bool
	watchEnabled bool
	settle       time.Duration
	watcher      *watcher
	seq          atomic.Uint64

	mu       sync.RWMutex
	byID     map[string]*Resource
	byPath   map[string]string
	folders  map[media.Group][]string
	opf      *Resource
	ncx      *Resource
	icons    map[string]string
	manifest Manifest
	onChange func(*Resource)
}

// New creates keeper for workspace rooted at root, creating the directory
// if necessary.
func New(root string, log *zap.Logger, opts ...Option) (*Keeper, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path for %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create workspace %s: %w", abs, err)
	}

	k := &Keeper{
		root:    abs,
		log:     log.Named("keeper"),
		byID:    make(map[string]*Resource),
		byPath:  make(map[string]string),
		folders: standardFolders(),
		icons:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.watchEnabled {
		if k.watcher, err = newWatcher(k.settle); err != nil {
			k.log.Warn("Unable to start file watcher, external changes will not be tracked", zap.Error(err))
		} else {
			go k.watchLoop()
		}
	}
	return k, nil
}

// Root returns absolute path of workspace directory.
func (k *Keeper) Root() string {
	return k.root
}

// SetManifest replaces manifest owner.
func (k *Keeper) SetManifest(m Manifest) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.manifest = m
}

// SetChangeHandler replaces handler of on disk modifications.
func (k *Keeper) SetChangeHandler(fn func(*Resource)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onChange = fn
}

func (k *Keeper) notify(fn func(Manifest)) {
	k.mu.RLock()
	m := k.manifest
	k.mu.RUnlock()
	if m != nil {
		fn(m)
	}
}

func (k *Keeper) fullPath(bookPath string) string {
	return filepath.Join(k.root, filepath.FromSlash(bookPath))
}

// Admit copies src into the workspace and registers it.
func (k *Keeper) Admit(src string, opts AdmitOptions) (*Resource, error) {
	fi, err := os.Stat(src)
	if err != nil || fi.IsDir() {
		return nil, fmt.Errorf("unable to admit %s: %w", src, ErrFileNotFound)
	}

	name := filepath.Base(src)
	if opts.BookPath != "" {
		name = bookpath.FileName(opts.BookPath)
	} else {
		name = strings.TrimPrefix(name, ".")
		if k.translit {
			name = transliterateName(name)
		}
	}
	if !validName(name) {
		return nil, fmt.Errorf("unable to admit %s as %q: %w", src, name, ErrInvalidName)
	}
	mt := media.Resolve(src, opts.MediaType)
	if mt == "" {
		mt = media.Resolve(name, "")
	}

	k.mu.Lock()
	bp, err := k.admissionPathLocked(name, mt, opts)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}
	r := newResource(uuid.NewString(), bp, k.fullPath(bp), mt)
	k.registerLocked(r)
	k.cacheIconLocked(mt)
	k.updateShortNamesLocked()
	k.mu.Unlock()

	if err := copyFile(src, r.FullPath(), fi.Mode()); err != nil {
		k.mu.Lock()
		k.unregisterLocked(r)
		k.updateShortNamesLocked()
		k.mu.Unlock()
		return nil, fmt.Errorf("unable to admit %s: %w", src, err)
	}

	if r.Kind().ExternallyEditable() {
		k.Watch(r)
	}
	if !opts.Silent {
		k.notify(func(m Manifest) { m.ResourceAdded(r) })
	}
	k.log.Debug("Admitted resource", zap.String("src", src), zap.String("book_path", bp), zap.String("media_type", mt))
	return r, nil
}

func (k *Keeper) admissionPathLocked(name, mt string, opts AdmitOptions) (string, error) {
	if opts.BookPath != "" {
		bp := bookpath.ResolveRelativeSegments(strings.TrimPrefix(opts.BookPath, "/"))
		if k.pathTakenLocked(bp, nil) {
			return "", fmt.Errorf("unable to admit %s: %w", bp, ErrPathExists)
		}
		return bp, nil
	}

	folder := opts.Folder
	switch folder {
	case "":
		folder = k.defaultFolderLocked(media.GroupOf(mt))
	case ".":
		folder = ""
	}
	return bookpath.Join(folder, uniqueFileName(name, k.fileNamesLocked())), nil
}

func (k *Keeper) registerLocked(r *Resource) {
	r.seq = k.seq.Add(1)
	k.byID[r.id] = r
	k.byPath[r.BookPath()] = r.id
}

func (k *Keeper) unregisterLocked(r *Resource) {
	delete(k.byID, r.id)
	delete(k.byPath, r.BookPath())
	if k.opf == r {
		k.opf = nil
	}
	if k.ncx == r {
		k.ncx = nil
	}
}

// pathTakenLocked reports if book path is used by resource other than
// except. Comparison ignores case as workspace may live on case
// insensitive file system.
func (k *Keeper) pathTakenLocked(bp string, except *Resource) bool {
	for p, id := range k.byPath {
		if strings.EqualFold(p, bp) && (except == nil || id != except.id) {
			return true
		}
	}
	return false
}

func (k *Keeper) fileNamesLocked() map[string]bool {
	res := make(map[string]bool, len(k.byPath))
	for p := range k.byPath {
		res[strings.ToLower(bookpath.FileName(p))] = true
	}
	return res
}

func (k *Keeper) updateShortNamesLocked() {
	paths := make(map[string]string, len(k.byID))
	for id, r := range k.byID {
		paths[id] = r.BookPath()
	}
	for id, name := range shortNames(paths) {
		k.byID[id].setShortName(name)
	}
}

// UniqueFileName returns name which does not collide with any file name in
// the book, adding or incrementing numeric suffix as necessary.
func (k *Keeper) UniqueFileName(name string) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return uniqueFileName(name, k.fileNamesLocked())
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Rename changes file name of the resource keeping its folder.
func (k *Keeper) Rename(r *Resource, newName string) error {
	if !validName(newName) {
		return fmt.Errorf("unable to rename %s to %q: %w", r.BookPath(), newName, ErrInvalidName)
	}
	old, err := k.relocate(r, bookpath.Join(r.Folder(), newName))
	if err != nil || old == "" {
		return err
	}
	k.notify(func(m Manifest) { m.ResourceRenamed(r, old) })
	return nil
}

// Move changes book path of the resource.
func (k *Keeper) Move(r *Resource, newBookPath string) error {
	newBookPath = bookpath.ResolveRelativeSegments(strings.TrimPrefix(newBookPath, "/"))
	if !validName(bookpath.FileName(newBookPath)) {
		return fmt.Errorf("unable to move %s to %q: %w", r.BookPath(), newBookPath, ErrInvalidName)
	}
	old, err := k.relocate(r, newBookPath)
	if err != nil || old == "" {
		return err
	}
	k.notify(func(m Manifest) { m.ResourceMoved(r, old) })
	return nil
}

// relocate returns previous book path or empty string when nothing changed.
func (k *Keeper) relocate(r *Resource, newBookPath string) (string, error) {
	k.mu.Lock()
	old, err := k.relocateLocked(r, newBookPath, false)
	if err == nil && old != "" {
		k.updateShortNamesLocked()
	}
	k.mu.Unlock()

	if err == nil && old != "" {
		k.rewatch(r, k.fullPath(old))
		err = k.containerFollows(r)
	}
	return old, err
}

// containerFollows rewrites container.xml when package document moved.
func (k *Keeper) containerFollows(r *Resource) error {
	if r != k.OPF() {
		return nil
	}
	return k.writeContainer(r.BookPath())
}

func (k *Keeper) relocateLocked(r *Resource, newBookPath string, uniquify bool) (string, error) {
	old := r.BookPath()
	if _, ok := k.byID[r.id]; !ok {
		return "", fmt.Errorf("unable to relocate %s: %w", old, ErrResourceNotFound)
	}
	if newBookPath == old {
		return "", nil
	}
	if k.pathTakenLocked(newBookPath, r) {
		if !uniquify {
			return "", fmt.Errorf("unable to relocate %s to %s: %w", old, newBookPath, ErrPathExists)
		}
		newBookPath = bookpath.Join(bookpath.StartingDir(newBookPath), uniqueFileName(bookpath.FileName(newBookPath), k.fileNamesLocked()))
	}

	newFull := k.fullPath(newBookPath)
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return "", fmt.Errorf("unable to create folder for %s: %w", newBookPath, err)
	}
	if err := os.Rename(r.FullPath(), newFull); err != nil {
		return "", fmt.Errorf("unable to relocate %s to %s: %w", old, newBookPath, err)
	}
	delete(k.byPath, old)
	k.byPath[newBookPath] = r.id
	r.setPaths(newBookPath, newFull)

	k.log.Debug("Relocated resource", zap.String("from", old), zap.String("to", newBookPath))
	return old, nil
}

// BulkRename renames several resources at once. Name collisions are resolved
// by versioning file names. Manifest is notified once for all successfully
// renamed resources, errors for individual resources are combined.
func (k *Keeper) BulkRename(names map[*Resource]string) ([]Relocation, error) {
	targets := make(map[*Resource]string, len(names))
	var errs error
	for r, name := range names {
		if !validName(name) {
			errs = multierr.Append(errs, fmt.Errorf("unable to rename %s to %q: %w", r.BookPath(), name, ErrInvalidName))
			continue
		}
		targets[r] = bookpath.Join(r.Folder(), name)
	}
	rels, err := k.bulkRelocate(targets)
	errs = multierr.Append(errs, err)
	if len(rels) > 0 {
		k.notify(func(m Manifest) { m.ResourcesRenamed(rels) })
	}
	return rels, errs
}

// BulkMove moves several resources at once, see BulkRename.
func (k *Keeper) BulkMove(paths map[*Resource]string) ([]Relocation, error) {
	targets := make(map[*Resource]string, len(paths))
	var errs error
	for r, p := range paths {
		p = bookpath.ResolveRelativeSegments(strings.TrimPrefix(p, "/"))
		if !validName(bookpath.FileName(p)) {
			errs = multierr.Append(errs, fmt.Errorf("unable to move %s to %q: %w", r.BookPath(), p, ErrInvalidName))
			continue
		}
		targets[r] = p
	}
	rels, err := k.bulkRelocate(targets)
	errs = multierr.Append(errs, err)
	if len(rels) > 0 {
		k.notify(func(m Manifest) { m.ResourcesMoved(rels) })
	}
	return rels, errs
}

func (k *Keeper) bulkRelocate(targets map[*Resource]string) ([]Relocation, error) {
	// stable processing order makes collision resolution predictable
	order := make([]*Resource, 0, len(targets))
	for r := range targets {
		order = append(order, r)
	}
	sort.Slice(order, func(i, j int) bool {
		return natural.Less(order[i].BookPath(), order[j].BookPath())
	})

	var (
		rels []Relocation
		errs error
	)
	k.mu.Lock()
	for _, r := range order {
		old, err := k.relocateLocked(r, targets[r], true)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if old != "" {
			rels = append(rels, Relocation{Resource: r, OldBookPath: old})
		}
	}
	if len(rels) > 0 {
		k.updateShortNamesLocked()
	}
	k.mu.Unlock()

	for _, rel := range rels {
		k.rewatch(rel.Resource, k.fullPath(rel.OldBookPath))
		errs = multierr.Append(errs, k.containerFollows(rel.Resource))
	}
	return rels, errs
}

// Remove deletes resource from the table and its file from disk.
func (k *Keeper) Remove(r *Resource) error {
	if err := k.remove(r); err != nil {
		return err
	}
	k.notify(func(m Manifest) { m.ResourceRemoved(r) })
	return nil
}

// BulkRemove removes several resources notifying manifest once.
func (k *Keeper) BulkRemove(rs []*Resource) error {
	var (
		removed []*Resource
		errs    error
	)
	for _, r := range rs {
		if err := k.remove(r); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		removed = append(removed, r)
	}
	if len(removed) > 0 {
		k.notify(func(m Manifest) { m.ResourcesRemoved(removed) })
	}
	return errs
}

func (k *Keeper) remove(r *Resource) error {
	k.mu.Lock()
	if _, ok := k.byID[r.id]; !ok {
		k.mu.Unlock()
		return fmt.Errorf("unable to remove %s: %w", r.BookPath(), ErrResourceNotFound)
	}
	k.unregisterLocked(r)
	k.updateShortNamesLocked()
	k.mu.Unlock()

	k.Unwatch(r)
	if err := os.Remove(r.FullPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to delete file of %s: %w", r.BookPath(), err)
	}
	k.log.Debug("Removed resource", zap.String("book_path", r.BookPath()))
	return nil
}

// AddOPF registers package document at bookPath (default folder of opf group
// when empty) and writes container.xml pointing to it. Existing file is
// kept, otherwise empty placeholder is created.
func (k *Keeper) AddOPF(bookPath string) (*Resource, error) {
	r, err := k.addSpecial(bookPath, media.GroupOpf, DefaultOPFName, media.OPF)
	if err != nil {
		return nil, err
	}
	k.mu.Lock()
	k.opf = r
	k.mu.Unlock()

	if err := k.writeContainer(r.BookPath()); err != nil {
		return nil, err
	}
	return r, nil
}

// AddNCX registers NCX document at bookPath (default folder of ncx group
// when empty) and notifies manifest.
func (k *Keeper) AddNCX(bookPath string) (*Resource, error) {
	r, err := k.addSpecial(bookPath, media.GroupNcx, DefaultNCXName, media.NCX)
	if err != nil {
		return nil, err
	}
	k.mu.Lock()
	k.ncx = r
	k.mu.Unlock()

	k.notify(func(m Manifest) { m.ResourceAdded(r) })
	return r, nil
}

func (k *Keeper) addSpecial(bookPath string, group media.Group, name, mt string) (*Resource, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if bookPath == "" {
		bookPath = bookpath.Join(k.defaultFolderLocked(group), name)
	}
	bookPath = strings.TrimPrefix(bookPath, "/")
	if k.pathTakenLocked(bookPath, nil) {
		return nil, fmt.Errorf("unable to add %s: %w", bookPath, ErrPathExists)
	}

	full := k.fullPath(bookPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create folder for %s: %w", bookPath, err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", bookPath, err)
	}
	f.Close()

	r := newResource(uuid.NewString(), bookPath, full, mt)
	k.registerLocked(r)
	k.cacheIconLocked(mt)
	k.updateShortNamesLocked()
	return r, nil
}

func (k *Keeper) writeContainer(opfBookPath string) error {
	var sb strings.Builder
	if err := xmlEscape(&sb, opfBookPath); err != nil {
		return err
	}
	full := k.fullPath(ContainerPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("unable to create META-INF: %w", err)
	}
	if err := os.WriteFile(full, fmt.Appendf(nil, containerFormat, sb.String()), 0o644); err != nil {
		return fmt.Errorf("unable to write container.xml: %w", err)
	}
	return nil
}

// OPF returns package document resource or nil.
func (k *Keeper) OPF() *Resource {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.opf
}

// NCX returns NCX resource or nil.
func (k *Keeper) NCX() *Resource {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ncx
}

var groupIcons = map[media.Group]string{
	media.GroupText:   "\U0001F4C4",
	media.GroupStyles: "\U0001F3A8",
	media.GroupImages: "\U0001F5BC",
	media.GroupFonts:  "\U0001F520",
	media.GroupAudio:  "\U0001F50A",
	media.GroupVideo:  "\U0001F3AC",
	media.GroupOpf:    "\U0001F4E6",
	media.GroupNcx:    "\U0001F4D1",
}

func (k *Keeper) cacheIconLocked(mt string) {
	if _, ok := k.icons[mt]; ok {
		return
	}
	icon, ok := groupIcons[media.GroupOf(mt)]
	if !ok {
		icon = "\U0001F4CE"
	}
	k.icons[mt] = icon
}

// IconFor returns display glyph for media type.
func (k *Keeper) IconFor(mediaType string) string {
	k.mu.RLock()
	icon, ok := k.icons[mediaType]
	k.mu.RUnlock()
	if ok {
		return icon
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cacheIconLocked(mediaType)
	return k.icons[mediaType]
}

func copyFile(src, dst string, mode os.FileMode) error {
	if sameFile(src, dst) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	if aa == b {
		return true
	}
	fa, err := os.Stat(aa)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
