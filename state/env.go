// Package state defines shared program state.
package state

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"epubkeep/book"
	"epubkeep/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// workspace opened by current subcommand, if any
	Book *book.Book

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// OpenBook opens workspace in root, or creates new one when create is set,
// using current configuration. Only one book could be open at a time.
func (e *LocalEnv) OpenBook(root string, create bool) (*book.Book, error) {
	if e.Book != nil {
		return nil, errors.New("book is already open")
	}
	if e.Cfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	var (
		b   *book.Book
		err error
	)
	if create {
		b, err = book.Create(root, e.Cfg, e.Log)
	} else {
		b, err = book.Open(root, e.Cfg, e.Log)
	}
	if err != nil {
		return nil, err
	}
	e.Book = b
	return b, nil
}

// CloseBook closes workspace opened by OpenBook. It is safe to call it when
// nothing is open.
func (e *LocalEnv) CloseBook() error {
	if e.Book == nil {
		return nil
	}
	err := e.Book.Close()
	e.Book = nil
	return err
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
