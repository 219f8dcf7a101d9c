package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"spendlens/adapters/fileproc"
	"spendlens/internal"
	apperrors "spendlens/internal/errors"
)

// DefaultDebounce is how long the watcher waits after the last file
// event before triggering a run, so multi-file drops ingest together.
const DefaultDebounce = 2 * time.Second

// Watcher triggers the pipeline when supported files land in the
// uploads directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	trigger  func(context.Context)
	logger   *internal.Logger
}

// NewWatcher creates a watcher over dir calling trigger once uploads
// settle. A non-positive debounce falls back to DefaultDebounce.
func NewWatcher(dir string, debounce time.Duration, trigger func(context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		trigger:  trigger,
		logger:   internal.NewDefaultLogger().Component("Watcher"),
	}
}

// Start blocks watching the uploads directory until ctx is canceled
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return apperrors.Wrapf(err, "failed to create upload directory %s", w.dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return apperrors.Wrap(err, "failed to start upload watcher")
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return apperrors.Wrapf(err, "failed to watch %s", w.dir)
	}
	w.logger.Info("watching %s for uploads", w.dir)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !fileproc.IsSupported(ev.Name) {
				continue
			}
			pending++
			if armed && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			armed = true
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error: %v", err)
		case <-timer.C:
			armed = false
			w.logger.Info("%d new upload(s) settled, triggering pipeline", pending)
			pending = 0
			w.trigger(ctx)
		}
	}
}
