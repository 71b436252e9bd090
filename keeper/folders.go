package keeper

import (
	"fmt"
	"slices"
	"strings"

	"epubkeep/bookpath"
	"epubkeep/media"
)

// groups which hold content files
var contentGroups = []media.Group{
	media.GroupText, media.GroupStyles, media.GroupImages, media.GroupFonts,
	media.GroupAudio, media.GroupVideo, media.GroupMisc,
}

// groups which always have default folder
var layoutGroups = append(slices.Clone(contentGroups), media.GroupOpf, media.GroupNcx)

func standardFolders() map[media.Group][]string {
	res := make(map[media.Group][]string, len(layoutGroups)+1)
	for _, g := range contentGroups {
		res[g] = []string{"OEBPS/" + g.Folder()}
	}
	res[media.GroupOpf] = []string{"OEBPS"}
	res[media.GroupNcx] = []string{"OEBPS"}
	res[media.GroupOther] = []string{""}
	return res
}

// SetStandardFolders resets group folders to OEBPS based layout.
func (k *Keeper) SetStandardFolders() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.folders = standardFolders()
}

// SetGroupFolders sets candidate folders of the group, first one becomes
// default.
func (k *Keeper) SetGroupFolders(g media.Group, folders []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.folders[g] = slices.Clone(folders)
}

// GroupFolders returns candidate folders of the group, most used first.
func (k *Keeper) GroupFolders(g media.Group) []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if f, ok := k.folders[g]; ok && len(f) > 0 {
		return slices.Clone(f)
	}
	return []string{""}
}

// DefaultFolder returns folder for new files of the group, empty string is
// container root.
func (k *Keeper) DefaultFolder(g media.Group) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.defaultFolderLocked(g)
}

func (k *Keeper) defaultFolderLocked(g media.Group) string {
	if f, ok := k.folders[g]; ok && len(f) > 0 {
		return f[0]
	}
	return ""
}

// FolderForGroup returns default folder for files of media type.
func (k *Keeper) FolderForGroup(mediaType string) string {
	return k.DefaultFolder(media.GroupOf(mediaType))
}

// InferFolders rebuilds group folders from current resources.
func (k *Keeper) InferFolders(updateOnly bool) {
	rs := k.Resources()
	bps := make([]string, 0, len(rs))
	mts := make([]string, 0, len(rs))
	for _, r := range rs {
		bps = append(bps, r.BookPath())
		mts = append(mts, r.MediaType())
	}
	// lengths always match
	_ = k.InferFoldersFrom(bps, mts, updateOnly)
}

// InferFoldersFrom rebuilds group folders from book paths and their media
// types. Folders of every group are ranked by number of files they hold.
// With updateOnly previously known folders are kept as less preferable
// candidates, otherwise groups without files get folder derived from
// common ancestor of used folders.
func (k *Keeper) InferFoldersFrom(bookPaths, mediaTypes []string, updateOnly bool) error {
	if len(bookPaths) != len(mediaTypes) {
		return fmt.Errorf("unable to infer folders: %d book paths with %d media types", len(bookPaths), len(mediaTypes))
	}

	seen := make(map[media.Group][]string)
	counts := make(map[media.Group]map[string]int)
	for i, bp := range bookPaths {
		if isMetaInf(bp) {
			continue
		}
		g := media.GroupOf(mediaTypes[i])
		dir := bookpath.StartingDir(bp)
		if counts[g] == nil {
			counts[g] = make(map[string]int)
		}
		if counts[g][dir] == 0 {
			seen[g] = append(seen[g], dir)
		}
		counts[g][dir]++
	}

	folders := make(map[media.Group][]string, len(layoutGroups)+1)
	var (
		dirs         []string
		useLowerCase bool
	)
	for _, g := range layoutGroups {
		if len(seen[g]) == 0 {
			continue
		}
		sorted := bookpath.SortByCounts(seen[g], counts[g])
		folders[g] = sorted
		if slices.Contains(contentGroups, g) && strings.Contains(sorted[0], strings.ToLower(g.String())) {
			useLowerCase = true
		}
		dirs = append(dirs, sorted[0])
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if updateOnly {
		// keep empty folders, they may be filled later
		for _, g := range layoutGroups {
			for _, f := range k.folders[g] {
				if !slices.Contains(folders[g], f) {
					folders[g] = append(folders[g], f)
				}
			}
		}
	} else {
		base := bookpath.LongestCommonPath(dirs, "/")
		if base == "/" {
			base = ""
		}
		for _, g := range layoutGroups {
			if len(folders[g]) > 0 {
				continue
			}
			switch g {
			case media.GroupOpf:
				folders[g] = []string{strings.TrimSuffix(base, "/")}
			case media.GroupNcx:
				if opf := folders[media.GroupOpf]; len(opf) > 0 {
					folders[g] = []string{opf[0]}
				} else {
					folders[g] = []string{strings.TrimSuffix(base, "/")}
				}
			default:
				name := g.String()
				if useLowerCase {
					name = strings.ToLower(name)
				}
				folders[g] = []string{base + name}
			}
		}
	}
	if _, ok := folders[media.GroupOther]; !ok {
		folders[media.GroupOther] = []string{""}
	}
	k.folders = folders
	return nil
}
