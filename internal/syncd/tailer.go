package syncd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/example/braid/internal/journal"
)

// Tailer follows a journal file with fsnotify and surfaces records
// appended by other processes. Only complete records are delivered; a
// torn tail is picked up once the writer finishes it.
type Tailer struct {
	path    string
	offset  int64
	apply   func(*journal.Record)
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewTailer creates a tailer starting at the given byte offset.
func NewTailer(path string, offset int64, apply func(*journal.Record), logger *slog.Logger) (*Tailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: the journal may not exist yet, and editors
	// of the data dir produce rename-style events.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	return &Tailer{path: path, offset: offset, apply: apply, logger: logger, watcher: watcher}, nil
}

// Run drains filesystem events until the context is cancelled. It
// always performs one initial poll so records appended between setup
// and Run are not missed.
func (t *Tailer) Run(ctx context.Context) error {
	defer t.watcher.Close()
	t.poll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(t.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				t.poll()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("journal watch error", "error", err)
		}
	}
}

func (t *Tailer) poll() {
	recs, offset, err := journal.ReadFrom(t.path, t.offset)
	if err != nil {
		t.logger.Warn("journal tail read failed", "error", err)
		return
	}
	t.offset = offset
	for _, rec := range recs {
		t.apply(rec)
	}
}
