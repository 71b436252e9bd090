package config

import (
	"path/filepath"
	"strings"
	"unicode"
)

// CleanFileName removes characters not allowed in file names on current
// platform, control characters, surrounding spaces and leading dots.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(forbiddenNameChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimLeft(strings.TrimSpace(out), ".")
	if len(out) == 0 {
		out = "_bad_file_name_"
	}
	return out
}

// DestinationPath cleans file name part of output path (packed book,
// configuration dump, debug report) and reports if it had to be changed.
func DestinationPath(p string) (string, bool) {
	dir, name := filepath.Split(p)
	if clean := CleanFileName(name); clean != name {
		return filepath.Join(dir, clean), true
	}
	return p, false
}
