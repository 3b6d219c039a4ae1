package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/git"
	"github.com/vcnkl/settle/logger"
)

var ErrUnknownEvent = errors.New("unknown event kind")

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
}

// SkippedDir reports whether a directory name is never watched.
func SkippedDir(name string) bool {
	return skipDirs[name]
}

var opNames = map[string]fsnotify.Op{
	"write":  fsnotify.Write,
	"create": fsnotify.Create,
	"remove": fsnotify.Remove,
	"rename": fsnotify.Rename,
	"chmod":  fsnotify.Chmod,
}

// ParseOps turns event kind names into an fsnotify.Op mask.
func ParseOps(names []string) (fsnotify.Op, error) {
	var ops fsnotify.Op
	for _, name := range names {
		op, ok := opNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownEvent, "%q", name)
		}
		ops |= op
	}
	return ops, nil
}

type Event struct {
	Path string
	Op   fsnotify.Op
}

type Options struct {
	Root        string
	Paths       []string
	Ignore      []string
	Ops         fsnotify.Op
	TrackedOnly bool
	Log         logger.Logger
	// OnReady runs once every path is registered.
	OnReady func()
}

type Watcher struct {
	opts     Options
	log      logger.Logger
	onChange func(Event)
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
}

func NewWatcher(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	if opts.Ops == 0 {
		opts.Ops = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	return &Watcher{
		opts: opts,
		log:  log,
		fsw:  fsw,
	}, nil
}

func (w *Watcher) OnChange(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start registers the watched trees and delivers events until ctx is
// done or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.opts.Paths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.opts.Root, path)
		}
		if err := w.addRecursive(path); err != nil {
			return errors.Wrapf(err, "failed to watch path %s", path)
		}
	}
	if w.opts.OnReady != nil {
		w.opts.OnReady()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logger.Err(err))
		}
	}
}

func (w *Watcher) Stop() {
	w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.shouldIgnore(event.Name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err = w.addRecursive(event.Name); err != nil {
				w.log.Warn("failed to watch new directory", logger.String("path", event.Name), logger.Err(err))
			}
		}
	}

	if event.Op&w.opts.Ops == 0 {
		return
	}

	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()

	if fn != nil {
		fn(Event{Path: event.Name, Op: event.Op})
	}
}

func (w *Watcher) addRecursive(root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		if skipDirs[filepath.Base(path)] || w.shouldIgnore(path) {
			return filepath.SkipDir
		}

		if w.opts.TrackedOnly {
			tracked, err := git.IsTracked(w.opts.Root, path)
			if err != nil {
				return err
			}
			if !tracked {
				return filepath.SkipDir
			}
		}

		if err = w.fsw.Add(path); err != nil {
			w.log.Debug("failed to add watch", logger.String("path", path), logger.Err(err))
		}
		return nil
	})
}

// shouldIgnore matches each pattern against the base name and against
// the path relative to the root. "**" matches across directories.
func (w *Watcher) shouldIgnore(path string) bool {
	return Ignored(w.opts.Root, path, w.opts.Ignore)
}

func Ignored(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

		if strings.Contains(pattern, "**") {
			prefix, suffix, _ := strings.Cut(pattern, "**")
			prefix = strings.TrimSuffix(prefix, "/")
			suffix = strings.TrimPrefix(suffix, "/")
			if prefix != "" && rel != prefix && !strings.HasPrefix(rel, prefix+"/") {
				continue
			}
			if suffix == "" {
				return true
			}
			if ok, _ := filepath.Match(suffix, base); ok {
				return true
			}
			continue
		}

		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}
