package keeper

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

const (
	// width of numeric suffix when there is no numbered version yet
	minSuffixWidth = 4
	// marks short name which had to use complete book path
	fullPathMarker = "^"
)

// uniqueFileName returns name which does not collide (case-insensitively)
// with any of taken names. When name is taken, its trailing digits are
// replaced by a version one larger than the biggest version among taken
// names sharing the same prefix and extension, keeping suffix width.
func uniqueFileName(name string, taken map[string]bool) string {
	if !taken[strings.ToLower(name)] {
		return name
	}

	ext := path.Ext(name)
	prefix := strings.TrimRight(strings.TrimSuffix(name, ext), "0123456789")
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `(\d*)` + regexp.QuoteMeta(ext) + `$`)

	maxVersion, width, found := 0, minSuffixWidth, false
	for n := range taken {
		m := re.FindStringSubmatch(n)
		if m == nil || m[1] == "" {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !found || v > maxVersion {
			maxVersion, width, found = v, len(m[1]), true
		}
	}

	for {
		maxVersion++
		candidate := fmt.Sprintf("%s%0*d%s", prefix, width, maxVersion, ext)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// transliterateName makes file name safe ASCII keeping extension.
func transliterateName(name string) string {
	ext := path.Ext(name)
	base := slug.Make(strings.TrimSuffix(name, ext))
	if base == "" {
		return name
	}
	return base + strings.ToLower(ext)
}

// shortName returns last lvl segments of book path. When lvl covers whole
// path the path is marked so it could never clash with shorter suffix.
func shortName(bookPath string, lvl int) string {
	parts := strings.Split(bookPath, "/")
	switch {
	case lvl <= 1:
		return parts[len(parts)-1]
	case lvl >= len(parts):
		return fullPathMarker + bookPath
	}
	return strings.Join(parts[len(parts)-lvl:], "/")
}

// shortNames disambiguates display names for book paths: every path starts
// with its file name and paths sharing candidate get one more trailing
// segment until all candidates are unique.
func shortNames(bookPaths map[string]string) map[string]string {
	levels := make(map[string]int, len(bookPaths))
	for id := range bookPaths {
		levels[id] = 1
	}
	for {
		groups := make(map[string][]string, len(bookPaths))
		for id, bp := range bookPaths {
			name := shortName(bp, levels[id])
			groups[name] = append(groups[name], id)
		}

		done := true
		for _, ids := range groups {
			if len(ids) < 2 {
				continue
			}
			// complete path is unique, other members of its group grow
			for _, id := range ids {
				if levels[id] < strings.Count(bookPaths[id], "/")+1 {
					levels[id]++
					done = false
				}
			}
		}
		if done {
			res := make(map[string]string, len(bookPaths))
			for name, ids := range groups {
				res[ids[0]] = name
			}
			return res
		}
	}
}
