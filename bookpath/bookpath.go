// Package bookpath has pure helpers for slash separated book paths: paths
// relative to the root of the book container, as used in manifests and links.
package bookpath

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

// StartingDir returns directory part of p without trailing slash. Paths
// without directory part return empty string.
func StartingDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	}
	return p[:i]
}

// FileName returns last segment of p.
func FileName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Join joins directory and name, empty directory means container root.
func Join(dir, name string) string {
	switch {
	case dir == "" || dir == ".":
		return name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	}
	return dir + "/" + name
}

// ResolveRelativeSegments removes "." and ".." segments where possible. Leading
// ".." segments which cannot be resolved are kept.
func ResolveRelativeSegments(p string) string {
	if p == "" {
		return ""
	}
	res := path.Clean(p)
	if res == "." {
		return ""
	}
	return res
}

// BuildBookPath joins decoded relative reference with the directory of the
// document it was found in and resolves the result.
func BuildBookPath(href, startDir string) string {
	if strings.HasPrefix(href, "/") {
		return ResolveRelativeSegments(href)
	}
	return ResolveRelativeSegments(Join(startDir, href))
}

func segments(p string) []string {
	var res []string
	for s := range strings.SplitSeq(p, "/") {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

// RelativePath returns path to dest as seen from directory startDir. Both
// arguments must be either book paths or absolute paths.
func RelativePath(dest, startDir string) string {
	if startDir == "" || startDir == "." {
		return strings.TrimPrefix(dest, "/")
	}
	d, s := segments(dest), segments(startDir)
	common := 0
	for common < len(d) && common < len(s) && d[common] == s[common] {
		common++
	}
	parts := make([]string, 0, len(s)-common+len(d)-common)
	for range len(s) - common {
		parts = append(parts, "..")
	}
	parts = append(parts, d[common:]...)
	return strings.Join(parts, "/")
}

// BuildRelativePath returns relative reference to toFile from a document
// located at fromFile. Empty string is returned when both denote the same file.
func BuildRelativePath(fromFile, toFile string) string {
	if fromFile == toFile {
		return ""
	}
	return RelativePath(toFile, StartingDir(fromFile))
}

// LongestCommonPath returns common ancestor of directories in dirs terminated
// by sep. For a single directory its parent is returned. Empty string means
// there is nothing in common.
func LongestCommonPath(dirs []string, sep string) string {
	uniq := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSuffix(d, "/")
		if !slices.Contains(uniq, d) {
			uniq = append(uniq, d)
		}
	}
	switch len(uniq) {
	case 0:
		return ""
	case 1:
		if parent := StartingDir(uniq[0]); parent != "" {
			return strings.TrimSuffix(parent, "/") + sep
		}
		return ""
	}

	common := segments(uniq[0])
	for _, d := range uniq[1:] {
		segs := segments(d)
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	if len(common) == 0 {
		if strings.HasPrefix(uniq[0], "/") {
			return "/"
		}
		return ""
	}
	res := strings.Join(common, "/") + sep
	if strings.HasPrefix(uniq[0], "/") {
		res = "/" + res
	}
	return res
}

// URLEncodePath percent-encodes every segment of p keeping separators intact.
func URLEncodePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// URLDecodePath reverses URLEncodePath. Malformed escapes leave p as is.
func URLDecodePath(p string) string {
	res, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return res
}

// ParseRelativeHREF splits reference into path and suffix, where suffix
// starts with first '?' or '#' if any.
func ParseRelativeHREF(href string) (string, string) {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i], href[i:]
	}
	return href, ""
}

// BuildRelativeHREF is reverse of ParseRelativeHREF, encoding path part.
func BuildRelativeHREF(p, suffix string) string {
	return URLEncodePath(p) + suffix
}

// IsRelativeReference reports if ref points to something inside the book:
// it has no scheme, is not absolute, is not network path and is not fragment
// only.
func IsRelativeReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, `\`) {
		return false
	}
	if i := strings.IndexAny(ref, ":/?#"); i > 0 && ref[i] == ':' {
		return false
	}
	return true
}

// SortByCounts returns keys ordered by descending counts. Keys with equal
// counts keep their relative order.
func SortByCounts(keys []string, counts map[string]int) []string {
	res := slices.Clone(keys)
	slices.SortStableFunc(res, func(a, b string) int {
		return counts[b] - counts[a]
	})
	return res
}
