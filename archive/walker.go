// Package archive reads EPUB containers: walks entries of OCF zip archive and
// extracts them into workspace.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	MimetypeEntry   = "mimetype"
	MimetypeContent = "application/epub+zip"
)

var (
	ErrUnsafePath  = errors.New("unsafe path (absolute or contains path traversal)")
	ErrNotEPUB     = errors.New("archive is not an EPUB container")
	errNilZipEntry = errors.New("nil zip entry")
)

// WalkFunc is called for every file entry accepted by Walk. The archive
// argument is the path passed to Walk. If an error is returned, processing
// stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk calls walkFn for every file in archive which book path starts with
// prefix. Directory entries are skipped. Archive with absolute paths or ".."
// components in any entry is rejected before walkFn is called even once.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if r != nil {
		defer r.Close()
	}
	if err != nil {
		return err
	}

	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("zip entry %q: %w", f.Name, ErrUnsafePath)
		}
	}
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// Mimetype checks that archive starts with stored mimetype entry and
// returns its content.
func Mimetype(archive string) (string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return "", err
	}
	defer r.Close()

	if len(r.File) == 0 || r.File[0].Name != MimetypeEntry {
		return "", fmt.Errorf("first entry is not %s: %w", MimetypeEntry, ErrNotEPUB)
	}
	rc, err := r.File[0].Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 256))
	if err != nil {
		return "", err
	}
	mt := strings.TrimSpace(string(data))
	if mt != MimetypeContent {
		return mt, fmt.Errorf("unexpected mimetype %q: %w", mt, ErrNotEPUB)
	}
	return mt, nil
}

// Extract writes file entry into dir keeping its book path and returns full
// path of the written file.
func Extract(file *zip.File, dir string) (string, error) {
	if file == nil {
		return "", errNilZipEntry
	}
	if !isSafePath(file.Name) {
		return "", fmt.Errorf("zip entry %q: %w", file.Name, ErrUnsafePath)
	}
	target := filepath.Join(dir, filepath.FromSlash(file.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("unable to open zip entry %q: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", fmt.Errorf("unable to extract zip entry %q: %w", file.Name, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if !file.Modified.IsZero() {
		_ = os.Chtimes(target, file.Modified, file.Modified)
	}
	return target, nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || filepath.VolumeName(name) != "" {
		return false
	}
	for part := range strings.SplitSeq(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
