package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CorpusWatcher watches one corpus directory (not recursively) for changes
// to files matching Options.Pattern.
type CorpusWatcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	errors    chan error
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	dir       string
}

// New creates a watcher. Nothing is watched until Start.
func New(opts Options) (*CorpusWatcher, error) {
	opts = opts.WithDefaults()
	if _, err := filepath.Match(opts.Pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid watch pattern %q: %w", opts.Pattern, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &CorpusWatcher{
		fs:        fsw,
		debouncer: NewDebouncer(opts.Debounce, opts.EventBufferSize),
		opts:      opts,
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches dir and returns once the watch is registered. Events flow
// until ctx is cancelled or Stop is called.
func (w *CorpusWatcher) Start(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := w.fs.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	w.dir = abs
	slog.Info("watch_started", slog.String("dir", abs), slog.String("pattern", w.opts.Pattern))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

func (w *CorpusWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			go func() { _ = w.Stop() }()
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				slog.Warn("watch_error_dropped", slog.String("error", err.Error()))
			}
		}
	}
}

func (w *CorpusWatcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	watched, isConfig := w.opts.classify(name)
	if !watched {
		return
	}

	var op Operation
	switch {
	case isConfig && ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0:
		op = OpConfigChange
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	slog.Debug("watch_event", slog.String("path", name), slog.String("op", op.String()))
	w.debouncer.Add(FileEvent{Path: name, Operation: op, Timestamp: time.Now()})
}

// Events delivers debounced batches. Closed by Stop.
func (w *CorpusWatcher) Events() <-chan []FileEvent { return w.debouncer.Output() }

// Errors delivers non-fatal watcher errors.
func (w *CorpusWatcher) Errors() <-chan error { return w.errors }

// Dir returns the watched directory, or "" before Start.
func (w *CorpusWatcher) Dir() string { return w.dir }

// Stop ends watching and closes Events. Safe to call more than once.
func (w *CorpusWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		err = w.fs.Close()
		w.debouncer.Stop()
	})
	return err
}

// Rebuild calls fn for every batch from events until ctx is done or events
// closes. A failed rebuild is logged and the loop keeps going; the previous
// index stays in service.
func Rebuild(ctx context.Context, events <-chan []FileEvent, fn func(context.Context, []FileEvent) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			start := time.Now()
			if err := fn(ctx, batch); err != nil {
				slog.Error("rebuild_failed",
					slog.Int("events", len(batch)),
					slog.String("error", err.Error()))
				continue
			}
			slog.Info("rebuild_complete",
				slog.Int("events", len(batch)),
				slog.Duration("duration", time.Since(start)))
		}
	}
}
