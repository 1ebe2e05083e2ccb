package wipe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"disk-janitor/internal/fsops"
	"disk-janitor/internal/logging"
)

var (
	ErrRootNotFound   = errors.New("path not found")
	ErrNotDirectory   = errors.New("path is not a directory")
	ErrRootUnreadable = errors.New("path cannot be listed")
)

// Result holds the outcome counters of a single wipe
type Result struct {
	FilesDeleted   uint64
	FoldersDeleted uint64
	Skipped        uint64
}

// Add returns the element-wise sum of r and o
func (r Result) Add(o Result) Result {
	return Result{
		FilesDeleted:   r.FilesDeleted + o.FilesDeleted,
		FoldersDeleted: r.FoldersDeleted + o.FoldersDeleted,
		Skipped:        r.Skipped + o.Skipped,
	}
}

// Visited is the number of entries the wipe attempted to remove
func (r Result) Visited() uint64 {
	return r.FilesDeleted + r.FoldersDeleted + r.Skipped
}

// Logger interface for leveled logging in the engine
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// Throttler is consulted between entries to cap resource usage
type Throttler interface {
	Throttle()
}

// Engine deletes the contents of directory trees
type Engine struct {
	fs       fsops.FS
	logger   Logger
	throttle Throttler
}

// Option configures an Engine
type Option func(*Engine)

// WithFS replaces the filesystem the engine operates on
func WithFS(fsys fsops.FS) Option {
	return func(e *Engine) { e.fs = fsys }
}

// WithLogger routes engine logs to logger
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logging.NewLeveled(logger)
		}
	}
}

// WithThrottler makes the engine call t.Throttle between entries
func WithThrottler(t Throttler) Option {
	return func(e *Engine) { e.throttle = t }
}

// NewEngine creates an Engine backed by the real filesystem unless overridden
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fs:     fsops.OSFS{},
		logger: logging.NewLeveled(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Wipe deletes everything beneath root, leaving root itself in place.
//
// Entries are processed bottom-up: a directory's subdirectories are wiped
// first, then its files are removed, then its emptied subdirectories. A
// failure on any single entry is counted in Skipped and never stops the walk.
// Symlinks are removed as entries and never followed.
//
// ErrRootNotFound, ErrNotDirectory and ErrRootUnreadable are returned with a
// zero Result and no mutation. On cancellation the partial Result is
// returned together with ctx.Err().
func (e *Engine) Wipe(ctx context.Context, root string) (Result, error) {
	info, err := e.fs.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%s: %w", root, ErrRootNotFound)
		}
		return Result{}, fmt.Errorf("%s: %w: %v", root, ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	entries, err := e.fs.ReadDir(root)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w: %v", root, ErrRootUnreadable, err)
	}

	var res Result
	err = e.wipeEntries(ctx, root, entries, &res)
	e.logger.Info("wipe finished", "root", root,
		"files", res.FilesDeleted, "folders", res.FoldersDeleted, "skipped", res.Skipped)
	return res, err
}

// wipeEntries processes the listed children of dir
func (e *Engine) wipeEntries(ctx context.Context, dir string, entries []fs.DirEntry, res *Result) error {
	var subdirs []string

	for _, entry := range entries {
		if !descend(entry) {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		subdirs = append(subdirs, sub)

		children, err := e.fs.ReadDir(sub)
		if err != nil {
			// Removal is still attempted below and will count the outcome
			e.logger.Warn("cannot list directory", "path", sub, "error", err)
			continue
		}
		if err := e.wipeEntries(ctx, sub, children, res); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if descend(entry) {
			continue
		}
		if err := e.pause(ctx); err != nil {
			return err
		}
		e.removeEntry(filepath.Join(dir, entry.Name()), &res.FilesDeleted, res)
	}

	for _, sub := range subdirs {
		if err := e.pause(ctx); err != nil {
			return err
		}
		e.removeEntry(sub, &res.FoldersDeleted, res)
	}
	return nil
}

// descend reports whether entry is a plain directory the engine may walk into.
// Type bits come from lstat, so symlinks are never followed. Windows junctions
// and mount points report ModeDir|ModeIrregular and are removed as leaves.
func descend(entry fs.DirEntry) bool {
	t := entry.Type()
	return t.IsDir() && t&(fs.ModeSymlink|fs.ModeIrregular) == 0
}

func (e *Engine) removeEntry(path string, counter *uint64, res *Result) {
	if err := e.fs.Remove(path); err != nil {
		res.Skipped++
		e.logger.Warn("skipped", "path", path, "error", err)
		return
	}
	*counter++
}

func (e *Engine) pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.throttle != nil {
		e.throttle.Throttle()
	}
	return nil
}
