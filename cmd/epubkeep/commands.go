package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epubkeep/book"
	"epubkeep/config"
	"epubkeep/importer"
	"epubkeep/keeper"
	"epubkeep/pack"
	"epubkeep/state"
	"epubkeep/utils/debug"
)

var errArgs = errors.New("wrong number of arguments")

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:         "new",
			Usage:        "Creates empty book in workspace directory",
			OnUsageError: usageErrorHandler,
			Action:       newBook,
			ArgsUsage:    "WORKSPACE",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "epub-version", Usage: "`VERSION` of created book (epub2, epub3), overrides configuration"},
				&cli.StringFlag{Name: "title", Usage: "book `TITLE`, overrides configuration"},
			},
		},
		{
			Name:         "unpack",
			Usage:        "Unpacks EPUB into new workspace",
			OnUsageError: usageErrorHandler,
			Action:       unpackBook,
			ArgsUsage:    "BOOK.epub WORKSPACE",
		},
		{
			Name:         "import",
			Usage:        "Imports HTML file(s) with referenced images and stylesheets",
			OnUsageError: usageErrorHandler,
			Action:       importFiles,
			ArgsUsage:    "WORKSPACE FILE [FILE...]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "ignore-duplicates", Aliases: []string{"id"}, Usage: "reuse resources with the same file name instead of importing them again"},
				&cli.BoolFlag{Name: "no-mend", Usage: "do not repair documents which are not well-formed"},
			},
		},
		{
			Name:         "list",
			Usage:        "Lists book resources",
			OnUsageError: usageErrorHandler,
			Action:       listResources,
			ArgsUsage:    "WORKSPACE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "tree", Usage: "show folder tree with media types instead of table"},
			},
		},
		{
			Name:         "rename",
			Usage:        "Renames resource and updates references to it",
			OnUsageError: usageErrorHandler,
			Action:       renameResource,
			ArgsUsage:    "WORKSPACE BOOKPATH NEWNAME",
		},
		{
			Name:         "move",
			Usage:        "Moves resource and updates references to and from it",
			OnUsageError: usageErrorHandler,
			Action:       moveResource,
			ArgsUsage:    "WORKSPACE BOOKPATH NEWBOOKPATH",
		},
		{
			Name:         "remove",
			Usage:        "Removes resource(s) from book",
			OnUsageError: usageErrorHandler,
			Action:       removeResources,
			ArgsUsage:    "WORKSPACE BOOKPATH [BOOKPATH...]",
		},
		{
			Name:         "watch",
			Usage:        "Reports resources changed by external programs until interrupted",
			OnUsageError: usageErrorHandler,
			Action:       watchBook,
			ArgsUsage:    "WORKSPACE",
		},
		{
			Name:         "pack",
			Usage:        "Packs workspace into EPUB",
			OnUsageError: usageErrorHandler,
			Action:       packBook,
			ArgsUsage:    "WORKSPACE BOOK.epub",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "overwrite existing destination"},
			},
		},
		{
			Name:  "dumpconfig",
			Usage: "Dumps either default or actual configuration (YAML)",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
			},
			OnUsageError: usageErrorHandler,
			Action:       outputConfiguration,
			ArgsUsage:    "DESTINATION",
			CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
		},
	}
}

func checkArgs(cmd *cli.Command, minimum, maximum int) error {
	n := cmd.Args().Len()
	if n < minimum || (maximum > 0 && n > maximum) {
		return fmt.Errorf("%s: %w, usage: %s %s", cmd.Name, errArgs, cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func newBook(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 1, 1); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	if v := cmd.String("epub-version"); v != "" {
		ver, err := config.ParseEpubVersion(v)
		if err != nil {
			return err
		}
		env.Cfg.Book.EpubVersion = ver
	}
	if title := cmd.String("title"); title != "" {
		env.Cfg.Book.Title = title
	}

	b, err := env.OpenBook(cmd.Args().Get(0), true)
	if err != nil {
		return err
	}
	env.Log.Info("Book created", zap.String("workspace", b.Root()), zap.String("opf", b.Package().Resource().BookPath()), zap.String("version", b.Package().Version()))
	return nil
}

func unpackBook(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 2, 2); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	src, root := cmd.Args().Get(0), cmd.Args().Get(1)

	if err := pack.Unpack(src, root, env.Log); err != nil {
		return err
	}
	b, err := env.OpenBook(root, false)
	if err != nil {
		return err
	}
	env.Log.Info("Book unpacked", zap.String("epub", src), zap.String("workspace", b.Root()), zap.Int("resources", b.Keeper().Count()))
	return nil
}

func importFiles(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 2, 0); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	opts := importer.OptionsFromConfig(env.Cfg.Import)
	if cmd.Bool("ignore-duplicates") {
		opts.IgnoreDuplicates = true
	}
	if cmd.Bool("no-mend") {
		opts.Mend = false
	}

	var errs error
	for _, src := range cmd.Args().Slice()[1:] {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		imp, err := importer.New(b, src, opts, env.Log)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		res, err := imp.Import(ctx)
		if err != nil {
			env.Log.Error("Import failed", zap.String("file", src), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		env.Log.Info("Imported", zap.String("file", src), zap.String("book_path", res.HTML.BookPath()), zap.Int("added", len(res.Added)))
		for _, ref := range res.Broken {
			env.Log.Warn("Broken reference left as is", zap.String("file", src), zap.String("ref", ref))
		}
	}
	return errs
}

func listResources(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 1, 1); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	if cmd.Bool("tree") {
		_, err := fmt.Fprint(os.Stdout, bookTree(b))
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range b.Keeper().SortedResources() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID(), r.BookPath(), r.MediaType(), r.ShortName())
	}
	return w.Flush()
}

// bookTree renders package metadata and folder tree of the book.
func bookTree(b *book.Book) string {
	pkg := b.Package()
	tw := debug.NewTreeWriter()
	tw.Line(0, "%s", b.Root())
	tw.Field(1, "title", pkg.Title())
	tw.Field(1, "language", pkg.Language())
	tw.Field(1, "version", pkg.Version())
	tw.Field(1, "nav", pkg.NavPath())
	tw.Paths(append([]string{keeper.ContainerPath}, b.Keeper().BookPaths()...), func(p string) string {
		if r := b.Keeper().FindByBookPath(p); r != nil {
			return r.MediaType()
		}
		return ""
	})
	return tw.String()
}

func resource(b *book.Book, bp string) (*keeper.Resource, error) {
	return b.Keeper().ByBookPath(filepath.ToSlash(bp))
}

func renameResource(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 3, 3); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	r, err := resource(b, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	old := r.BookPath()
	if err := b.Rename(ctx, r, cmd.Args().Get(2)); err != nil {
		return err
	}
	env.Log.Info("Renamed", zap.String("from", old), zap.String("to", r.BookPath()))
	return nil
}

func moveResource(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 3, 3); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	r, err := resource(b, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	old := r.BookPath()
	if err := b.Move(ctx, r, filepath.ToSlash(cmd.Args().Get(2))); err != nil {
		return err
	}
	env.Log.Info("Moved", zap.String("from", old), zap.String("to", r.BookPath()))
	return nil
}

func removeResources(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 2, 0); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	var rs []*keeper.Resource
	for _, bp := range cmd.Args().Slice()[1:] {
		r, err := resource(b, bp)
		if err != nil {
			return err
		}
		rs = append(rs, r)
	}
	if err := b.Remove(rs...); err != nil {
		return err
	}
	if err := b.Save(); err != nil {
		return err
	}
	env.Log.Info("Removed", zap.Int("resources", len(rs)))
	return nil
}

func watchBook(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 1, 1); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	env.Cfg.Watch.Enable = true

	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	env.Log.Info("Watching for changes, interrupt to stop", zap.String("workspace", b.Root()))
	for {
		select {
		case <-ctx.Done():
			env.Log.Info("Watching stopped")
			return nil
		case r, ok := <-b.Changes():
			if !ok {
				return nil
			}
			env.Log.Info("Resource changed on disk", zap.String("book_path", r.BookPath()), zap.String("media_type", r.MediaType()))
		}
	}
}

func packBook(ctx context.Context, cmd *cli.Command) error {
	if err := checkArgs(cmd, 2, 2); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	out := cmd.Args().Get(1)

	if !pack.IsEPUBName(out) {
		env.Log.Warn("Destination does not have .epub extension", zap.String("file", out))
	}
	if clean, changed := config.DestinationPath(out); changed {
		out = clean
		env.Log.Warn("Destination name sanitized", zap.String("file", out))
	}
	if _, err := os.Stat(out); err == nil {
		if !cmd.Bool("overwrite") {
			return fmt.Errorf("output file already exists: %s", out)
		}
		env.Log.Warn("Overwriting existing file", zap.String("file", out))
	}

	// book is opened to lock workspace and to flush package document
	b, err := env.OpenBook(cmd.Args().Get(0), false)
	if err != nil {
		return err
	}
	if err := b.Save(); err != nil {
		return err
	}
	opts := pack.Options{FixZip: env.Cfg.Pack.FixZip, NaturalOrder: env.Cfg.Pack.NaturalOrder}
	if err := pack.Pack(ctx, b.Root(), out, opts, env.Log); err != nil {
		return err
	}
	env.Log.Info("Book packed", zap.String("epub", out), zap.Int("resources", b.Keeper().Count()))
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)
	if len(fname) > 0 {
		var changed bool
		if fname, changed = config.DestinationPath(fname); changed {
			env.Log.Warn("Destination name sanitized", zap.String("file", fname))
		}
	}

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
