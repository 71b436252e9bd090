// Package pack converts between workspace directory and EPUB archive.
package pack

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epubkeep/archive"
	"epubkeep/keeper"
)

type Options struct {
	// FixZip rewrites archive without data descriptors, some readers
	// refuse archives which have them.
	FixZip bool
	// NaturalOrder sorts entries so "page2" precedes "page10".
	NaturalOrder bool
}

// Unpack extracts epub into root. Root must not contain a book already.
func Unpack(epub, root string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(keeper.ContainerPath))); err == nil {
		return fmt.Errorf("unable to unpack into %s: %w", root, keeper.ErrPathExists)
	}
	if _, err := archive.Mimetype(epub); err != nil {
		if !errors.Is(err, archive.ErrNotEPUB) {
			return fmt.Errorf("unable to unpack %s: %w", epub, err)
		}
		log.Warn("Archive does not look like EPUB, unpacking anyway", zap.String("epub", epub), zap.Error(err))
	}

	var count int
	err := archive.Walk(epub, "", func(_ string, file *zip.File) error {
		if file.Name == archive.MimetypeEntry {
			return nil
		}
		if _, err := archive.Extract(file, root); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to unpack %s: %w", epub, err)
	}
	log.Debug("Unpacked", zap.String("epub", epub), zap.String("root", root), zap.Int("entries", count))
	return nil
}

// entries returns slash separated paths of all files under root except
// mimetype, container.xml goes first.
func entries(root string, naturalOrder bool) ([]string, error) {
	var res []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); rel != archive.MimetypeEntry {
			res = append(res, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	less := func(a, b string) bool { return a < b }
	if naturalOrder {
		less = natural.Less
	}
	sort.SliceStable(res, func(i, j int) bool {
		ci, cj := res[i] == keeper.ContainerPath, res[j] == keeper.ContainerPath
		if ci != cj {
			return ci
		}
		return less(res[i], res[j])
	})
	return res, nil
}

// Pack writes workspace root into out.
func Pack(ctx context.Context, root, out string, opts Options, log *zap.Logger) (err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(keeper.ContainerPath))); err != nil {
		return fmt.Errorf("unable to pack %s, not a book: %w", root, err)
	}
	names, err := entries(root, opts.NaturalOrder)
	if err != nil {
		return fmt.Errorf("unable to list workspace %s: %w", root, err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	tmpDir, err := os.MkdirTemp("", "epubkeep-pack-")
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, os.RemoveAll(tmpDir))
	}()

	tmpName := filepath.Join(tmpDir, filepath.Base(out))
	if err := writeArchive(ctx, root, tmpName, names); err != nil {
		return err
	}

	if opts.FixZip {
		err = copyZipWithoutDataDescriptors(tmpName, out)
	} else {
		err = copyFile(tmpName, out)
	}
	if err != nil {
		return err
	}
	log.Debug("Packed", zap.String("root", root), zap.String("epub", out), zap.Int("entries", len(names)+1))
	return nil
}

func writeArchive(ctx context.Context, root, name string, names []string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	zw := zip.NewWriter(f)
	if err := writeMimetype(zw); err != nil {
		return multierr.Append(fmt.Errorf("unable to write mimetype: %w", err), zw.Close())
	}
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return multierr.Append(err, zw.Close())
		}
		if err := writeFileToZip(zw, root, n); err != nil {
			return multierr.Append(fmt.Errorf("unable to write %s: %w", n, err), zw.Close())
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	return nil
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   archive.MimetypeEntry,
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, archive.MimetypeContent)
	return err
}

func writeFileToZip(zw *zip.Writer, root, name string) error {
	full := filepath.Join(root, filepath.FromSlash(name))
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	in, err := os.Open(full)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return multierr.Append(fmt.Errorf("unable to write target file (%s): %w", to, err), w.Close())
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to write target file (%s): %w", to, err)
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

// IsEPUBName reports if name has .epub extension.
func IsEPUBName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".epub")
}
