package book

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"epubkeep/keeper"
	"epubkeep/media"
	"epubkeep/rewrite"
)

// Rename changes file name of the resource and fixes references to it.
func (b *Book) Rename(ctx context.Context, r *keeper.Resource, newName string) error {
	old := r.BookPath()
	if err := b.k.Rename(r, newName); err != nil {
		return err
	}
	return b.followRelocations(ctx, []keeper.Relocation{{Resource: r, OldBookPath: old}})
}

// Move changes book path of the resource and fixes references to it and
// references inside it.
func (b *Book) Move(ctx context.Context, r *keeper.Resource, newBookPath string) error {
	old := r.BookPath()
	if err := b.k.Move(r, newBookPath); err != nil {
		return err
	}
	return b.followRelocations(ctx, []keeper.Relocation{{Resource: r, OldBookPath: old}})
}

// BulkRename renames several resources at once. References are updated for
// every resource renamed successfully even if some renames failed.
func (b *Book) BulkRename(ctx context.Context, names map[*keeper.Resource]string) ([]keeper.Relocation, error) {
	rels, err := b.k.BulkRename(names)
	return rels, multierr.Append(err, b.followRelocations(ctx, rels))
}

// BulkMove moves several resources at once, see BulkRename.
func (b *Book) BulkMove(ctx context.Context, paths map[*keeper.Resource]string) ([]keeper.Relocation, error) {
	rels, err := b.k.BulkMove(paths)
	return rels, multierr.Append(err, b.followRelocations(ctx, rels))
}

// Remove deletes resources. References to them are left as they are.
func (b *Book) Remove(rs ...*keeper.Resource) error {
	if len(rs) == 1 {
		return b.k.Remove(rs[0])
	}
	return b.k.BulkRemove(rs)
}

// followRelocations rewrites every textual resource which may reference
// relocated resources, or which was relocated itself.
func (b *Book) followRelocations(ctx context.Context, rels []keeper.Relocation) error {
	updates := make(rewrite.Updates, len(rels))
	moved := make(map[*keeper.Resource]string, len(rels))
	for _, rel := range rels {
		if rel.OldBookPath == "" || rel.OldBookPath == rel.Resource.BookPath() {
			continue
		}
		updates[rel.OldBookPath] = rel.Resource.BookPath()
		moved[rel.Resource] = rel.OldBookPath
	}
	if len(updates) == 0 {
		return nil
	}
	if err := b.UpdateReferences(ctx, updates, moved); err != nil {
		return err
	}
	return b.Save()
}

// UpdateReferences applies updates to all HTML, CSS, SVG and NCX resources
// concurrently. For resources in moved the value is their previous book
// path so relative references inside them are recomputed.
func (b *Book) UpdateReferences(ctx context.Context, updates rewrite.Updates, moved map[*keeper.Resource]string) error {
	html, css, xml := rewrite.Separate(updates)

	b.k.SuspendWatching()
	defer b.k.ResumeWatching()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, r := range b.k.ResourcesOfKind(media.KindHtml, media.KindCss, media.KindSvg, media.KindNcx) {
		current, newPath := r.BookPath(), r.BookPath()
		if old, ok := moved[r]; ok {
			current = old
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			changed, err := r.UpdateText(func(text string) string {
				switch r.Kind() {
				case media.KindHtml:
					return rewrite.HTML(text, newPath, html, css, current)
				case media.KindCss:
					return rewrite.CSS(text, css, current, newPath)
				default:
					return rewrite.HTML(text, newPath, xml, xml, current)
				}
			})
			if err != nil {
				return fmt.Errorf("unable to update references in %s: %w", newPath, err)
			}
			if changed {
				b.log.Debug("References updated", zap.String("book_path", newPath), zap.Int("updates", len(updates)))
			}
			return nil
		})
	}
	return g.Wait()
}
