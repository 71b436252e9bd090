package keeper

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"epubkeep/bookpath"
	"epubkeep/media"
)

// Resource is a single file tracked by the keeper. Identifier, media type
// and kind never change, paths are updated by the keeper on rename and move.
type Resource struct {
	id        string
	mediaType string
	kind      media.Kind
	// admission order
	seq uint64

	mu        sync.RWMutex
	bookPath  string
	fullPath  string
	shortName string

	// serializes content updates
	textMu sync.Mutex
}

func newResource(id, bookPath, fullPath, mediaType string) *Resource {
	return &Resource{
		id:        id,
		mediaType: mediaType,
		kind:      media.KindOf(mediaType),
		bookPath:  bookPath,
		fullPath:  fullPath,
		shortName: bookpath.FileName(bookPath),
	}
}

func (r *Resource) ID() string        { return r.id }
func (r *Resource) MediaType() string { return r.mediaType }
func (r *Resource) Kind() media.Kind  { return r.kind }

func (r *Resource) BookPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bookPath
}

func (r *Resource) FullPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fullPath
}

func (r *Resource) ShortName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shortName
}

// FileName returns last segment of resource book path.
func (r *Resource) FileName() string {
	return bookpath.FileName(r.BookPath())
}

// Folder returns directory part of resource book path.
func (r *Resource) Folder() string {
	return bookpath.StartingDir(r.BookPath())
}

// Group returns media group of resource. Files in META-INF belong to
// special "other" group regardless of media type.
func (r *Resource) Group() media.Group {
	if isMetaInf(r.BookPath()) {
		return media.GroupOther
	}
	return media.GroupOf(r.mediaType)
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s (%s)", r.BookPath(), r.mediaType)
}

func (r *Resource) setPaths(bookPath, fullPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookPath, r.fullPath = bookPath, fullPath
}

func (r *Resource) setShortName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortName = name
}

// ReadText returns resource content as text.
func (r *Resource) ReadText() (string, error) {
	r.textMu.Lock()
	defer r.textMu.Unlock()
	return r.readText()
}

func (r *Resource) readText() (string, error) {
	data, err := os.ReadFile(r.FullPath())
	if err != nil {
		return "", fmt.Errorf("unable to read resource %s: %w", r.BookPath(), err)
	}
	return string(data), nil
}

// WriteText replaces resource content.
func (r *Resource) WriteText(text string) error {
	r.textMu.Lock()
	defer r.textMu.Unlock()
	return r.writeText(text)
}

func (r *Resource) writeText(text string) error {
	if err := os.WriteFile(r.FullPath(), []byte(text), 0o644); err != nil {
		return fmt.Errorf("unable to write resource %s: %w", r.BookPath(), err)
	}
	return nil
}

// UpdateText applies fn to resource content and stores result when it
// differs. Reports if content was changed.
func (r *Resource) UpdateText(fn func(string) string) (bool, error) {
	r.textMu.Lock()
	defer r.textMu.Unlock()

	text, err := r.readText()
	if err != nil {
		return false, err
	}
	updated := fn(text)
	if updated == text {
		return false, nil
	}
	return true, r.writeText(updated)
}

func isMetaInf(bookPath string) bool {
	return bookPath == "META-INF" || strings.HasPrefix(bookPath, "META-INF/")
}
