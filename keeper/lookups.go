package keeper

import (
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"epubkeep/bookpath"
	"epubkeep/media"
)

// ByID returns resource with identifier or ErrResourceNotFound.
func (k *Keeper) ByID(id string) (*Resource, error) {
	if r := k.FindByID(id); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("no resource with id %s: %w", id, ErrResourceNotFound)
}

// FindByID returns resource with identifier or nil.
func (k *Keeper) FindByID(id string) *Resource {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.byID[id]
}

// ByBookPath returns resource at book path or ErrResourceNotFound.
func (k *Keeper) ByBookPath(bp string) (*Resource, error) {
	if r := k.FindByBookPath(bp); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("no resource at %s: %w", bp, ErrResourceNotFound)
}

// FindByBookPath returns resource at book path or nil.
func (k *Keeper) FindByBookPath(bp string) *Resource {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if id, ok := k.byPath[bp]; ok {
		return k.byID[id]
	}
	return nil
}

// ByFullPath returns resource backed by file or ErrResourceNotFound.
func (k *Keeper) ByFullPath(fp string) (*Resource, error) {
	if r := k.FindByFullPath(fp); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("no resource for %s: %w", fp, ErrResourceNotFound)
}

// FindByFullPath returns resource backed by file or nil.
func (k *Keeper) FindByFullPath(fp string) *Resource {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, r := range k.byID {
		if r.FullPath() == fp {
			return r
		}
	}
	return nil
}

// ByFileName returns first resource (in book path order) with file name
// matching name ignoring case or ErrResourceNotFound.
func (k *Keeper) ByFileName(name string) (*Resource, error) {
	if r := k.FindByFileName(name); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("no resource named %s: %w", name, ErrResourceNotFound)
}

// FindByFileName is ByFileName returning nil when nothing matches.
func (k *Keeper) FindByFileName(name string) *Resource {
	for _, r := range k.SortedResources() {
		if strings.EqualFold(r.FileName(), name) {
			return r
		}
	}
	return nil
}

// Resources returns all resources in admission order.
func (k *Keeper) Resources() []*Resource {
	k.mu.RLock()
	res := make([]*Resource, 0, len(k.byID))
	for _, r := range k.byID {
		res = append(res, r)
	}
	k.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].seq < res[j].seq })
	return res
}

// SortedResources returns all resources in natural order of book paths.
func (k *Keeper) SortedResources() []*Resource {
	res := k.Resources()
	sort.SliceStable(res, func(i, j int) bool {
		return natural.Less(res[i].BookPath(), res[j].BookPath())
	})
	return res
}

// ResourcesOfKind returns resources of any of the kinds in admission order.
func (k *Keeper) ResourcesOfKind(kinds ...media.Kind) []*Resource {
	var res []*Resource
	for _, r := range k.Resources() {
		if slices.Contains(kinds, r.Kind()) {
			res = append(res, r)
		}
	}
	return res
}

// BookPaths returns book paths of all resources in natural order.
func (k *Keeper) BookPaths() []string {
	k.mu.RLock()
	res := make([]string, 0, len(k.byPath))
	for p := range k.byPath {
		res = append(res, p)
	}
	k.mu.RUnlock()

	sort.Sort(natural.StringSlice(res))
	return res
}

// FullPaths returns full paths of all resources in book path order.
func (k *Keeper) FullPaths() []string {
	rs := k.SortedResources()
	res := make([]string, 0, len(rs))
	for _, r := range rs {
		res = append(res, r.FullPath())
	}
	return res
}

// FileNames returns file names of all resources in book path order.
func (k *Keeper) FileNames() []string {
	bps := k.BookPaths()
	res := make([]string, 0, len(bps))
	for _, bp := range bps {
		res = append(res, bookpath.FileName(bp))
	}
	return res
}

// ContainsBookPath reports if resource with book path exists.
func (k *Keeper) ContainsBookPath(bp string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.byPath[bp]
	return ok
}

// ContainsFileName reports if any resource has file name ignoring case.
func (k *Keeper) ContainsFileName(name string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.fileNamesLocked()[strings.ToLower(name)]
}

// Count returns number of resources.
func (k *Keeper) Count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.byID)
}

// PathByPathEnd returns book path of the resource which ends with pathEnd
// and has the same file name, ignoring case. Empty string is returned when
// there is no such resource.
func (k *Keeper) PathByPathEnd(pathEnd string) string {
	end := strings.ToLower(pathEnd)
	name := bookpath.FileName(end)
	for _, bp := range k.BookPaths() {
		lbp := strings.ToLower(bp)
		if strings.HasSuffix(lbp, end) && bookpath.FileName(lbp) == name {
			return bp
		}
	}
	return ""
}

func xmlEscape(w io.Writer, s string) error {
	if err := xml.EscapeText(w, []byte(s)); err != nil {
		return fmt.Errorf("unable to escape %q: %w", s, err)
	}
	return nil
}
