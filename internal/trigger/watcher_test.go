package trigger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
	"github.com/cardguard/remediator/internal/pipeline"
)

// snapshotHandler reads the dispatched file's content at dispatch time,
// capturing exactly what the pipeline would fetch.
type snapshotHandler struct {
	dir        string
	mu         sync.Mutex
	dispatches []string
	contents   []string
	signal     chan struct{}
}

func newSnapshotHandler(dir string) *snapshotHandler {
	return &snapshotHandler{dir: dir, signal: make(chan struct{}, 16)}
}

func (h *snapshotHandler) Handle(ctx context.Context, obj pipeline.ObjectRef) error {
	content, err := os.ReadFile(filepath.Join(h.dir, obj.Name))
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.dispatches = append(h.dispatches, obj.Name)
	h.contents = append(h.contents, string(content))
	h.mu.Unlock()
	h.signal <- struct{}{}
	return nil
}

func (h *snapshotHandler) snapshot() ([]string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.dispatches...), append([]string(nil), h.contents...)
}

func testWatcher(dir string, handler Handler, settle time.Duration) *Watcher {
	return NewWatcher(config.TriggerConfig{
		SettleDelay:  settle,
		DrainTimeout: 30 * time.Second,
	}, "quarantine", dir, handler, &logger.Logger{Logger: zap.NewNop()})
}

func awaitDispatch(t *testing.T, signal chan struct{}) {
	t.Helper()
	select {
	case <-signal:
	case <-time.After(5 * time.Second):
		t.Fatal("no dispatch observed")
	}
}

func TestWatcherWaitsForWriterToFinish(t *testing.T) {
	dir := t.TempDir()
	handler := newSnapshotHandler(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = testWatcher(dir, handler, 150*time.Millisecond).Run(ctx)
		close(done)
	}()
	// Let the watch get established before the writer starts.
	time.Sleep(50 * time.Millisecond)

	// Writer streams the object in two chunks with a pause well inside
	// the settle delay. A dispatch between the chunks would fetch, and
	// then delete, a half-written object.
	file, err := os.Create(filepath.Join(dir, "data.csv"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := file.WriteString("CustomerID,CreditCardNumber\n"); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := file.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := file.WriteString("1,4111111111111111\n"); err != nil {
		t.Fatalf("write row: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	awaitDispatch(t, handler.signal)
	cancel()
	<-done

	dispatches, contents := handler.snapshot()
	if len(dispatches) != 1 {
		t.Fatalf("dispatched %d times, want exactly 1: %v", len(dispatches), dispatches)
	}
	want := "CustomerID,CreditCardNumber\n1,4111111111111111\n"
	if contents[0] != want {
		t.Errorf("dispatch saw %q, want the complete object %q", contents[0], want)
	}
}

func TestWatcherDispatchesPreExistingFiles(t *testing.T) {
	dir := t.TempDir()

	// The file arrived while the service was down.
	content := "Name,CCNumber\nalice,378282246310005\n"
	if err := os.WriteFile(filepath.Join(dir, "backlog.csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	handler := newSnapshotHandler(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = testWatcher(dir, handler, 20*time.Millisecond).Run(ctx)
		close(done)
	}()

	awaitDispatch(t, handler.signal)
	cancel()
	<-done

	dispatches, contents := handler.snapshot()
	if len(dispatches) != 1 || dispatches[0] != "backlog.csv" {
		t.Fatalf("dispatched %v, want backlog.csv once", dispatches)
	}
	if contents[0] != content {
		t.Errorf("dispatch saw %q, want %q", contents[0], content)
	}
}

func TestWatcherSkipsRemovedPendingFile(t *testing.T) {
	dir := t.TempDir()
	handler := newSnapshotHandler(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = testWatcher(dir, handler, 100*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "withdrawn.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Long enough for the settle sweep to have fired had the file
	// stayed pending.
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	if dispatches, _ := handler.snapshot(); len(dispatches) != 0 {
		t.Errorf("dispatched %v for a withdrawn file", dispatches)
	}
}

func TestWatcherReturnsCanceled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := testWatcher(dir, newSnapshotHandler(dir), 20*time.Millisecond).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}
