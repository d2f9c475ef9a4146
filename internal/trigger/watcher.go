package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
	"github.com/cardguard/remediator/internal/pipeline"
)

// Watcher delivers arrival events by watching the quarantine directory of
// the filesystem store. Used for local deployments where no arrival queue
// exists.
//
// A file is dispatched only after it has been quiet for the settle delay:
// a writer streaming rows into a freshly created file keeps refreshing its
// write timestamp, so the pipeline never fetches (and then deletes) a
// half-written object. Files already present at startup go through the
// same settle path.
type Watcher struct {
	container string
	dir       string
	handler   Handler
	settle    time.Duration
	timeout   time.Duration
	logger    *logger.Logger
	wg        sync.WaitGroup
}

// NewWatcher creates a directory watcher for the quarantine container
func NewWatcher(cfg config.TriggerConfig, container, dir string, handler Handler, log *logger.Logger) *Watcher {
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	timeout := cfg.DrainTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Watcher{
		container: container,
		dir:       dir,
		handler:   handler,
		settle:    settle,
		timeout:   timeout,
		logger:    log,
	}
}

// Run watches the quarantine directory until ctx is canceled, dispatching
// each settled file on its own goroutine and draining in-flight
// invocations before returning.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create quarantine directory: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch quarantine directory: %w", err)
	}

	// Objects already in quarantine when the watcher starts were missed
	// while it was down; this source has no redelivery, so seed them as
	// pending arrivals.
	pending := make(map[string]time.Time)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to scan quarantine directory: %w", err)
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pending[filepath.Join(w.dir, entry.Name())] = now
	}

	w.logger.Info("Quarantine watcher started",
		zap.String("dir", w.dir),
		zap.Int("pending", len(pending)),
		zap.Duration("settle_delay", w.settle))

	ticker := time.NewTicker(w.settle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("Quarantine watcher stopped")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case <-ticker.C:
			for name, last := range pending {
				if time.Since(last) < w.settle {
					continue
				}
				delete(pending, name)

				info, err := os.Stat(name)
				if err != nil || info.IsDir() {
					continue
				}

				obj := pipeline.ObjectRef{
					Container: w.container,
					Name:      filepath.Base(name),
					Size:      info.Size(),
				}

				w.wg.Add(1)
				go w.dispatch(obj)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// dispatch runs one invocation on its own context, detached from the
// watcher's cancellation so shutdown drains it instead of aborting it.
func (w *Watcher) dispatch(obj pipeline.ObjectRef) {
	defer w.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Handle reports its own failures through the failure queue.
	_ = w.handler.Handle(ctx, obj)
}
