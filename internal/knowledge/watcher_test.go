package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newWatcherFixture(t *testing.T) (*Watcher, *MemoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewMemoryStore(nil)
	ix := NewIndexer(store, filepath.Join(dir, "manifest.json"), NewChunker(0, 0), 0)
	w, err := NewWatcher(ix, dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { w.watcher.Close() })
	return w, store, dir
}

func TestWatcherDebounceSettles(t *testing.T) {
	w, store, dir := newWatcherFixture(t)
	w.debounceDur = 10 * time.Millisecond

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("camera pipeline notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A burst of writes collapses to a single pending entry.
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	if len(w.debounceMap) != 1 {
		t.Fatalf("pending entries = %d, want 1", len(w.debounceMap))
	}

	// Before the debounce window elapses nothing is indexed.
	w.processDebounced(context.Background())
	if got, _ := store.Count(context.Background()); got != 0 {
		t.Fatalf("indexed too early: %d chunks", got)
	}

	time.Sleep(20 * time.Millisecond)
	w.processDebounced(context.Background())
	if got, _ := store.Count(context.Background()); got == 0 {
		t.Fatal("expected chunks after debounce window")
	}
	if len(w.debounceMap) != 0 {
		t.Errorf("pending entries after settle = %d, want 0", len(w.debounceMap))
	}
}

func TestWatcherIgnoresRemoveEvents(t *testing.T) {
	w, _, dir := newWatcherFixture(t)
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove})
	if len(w.debounceMap) != 0 {
		t.Errorf("remove event queued for re-index")
	}
}

func TestWatcherStartStop(t *testing.T) {
	w, _, dir := newWatcherFixture(t)
	ctx := context.Background()
	w.Start(ctx)
	w.Start(ctx) // second call is a no-op

	if err := os.WriteFile(filepath.Join(dir, "live.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop() // idempotent
}
