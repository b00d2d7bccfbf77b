package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcsagent/internal/config"
)

func TestBuildTempStoreFromPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "camera.txt", "CameraX SDK: connect(device_id) opens a connection")
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "audio.txt", "AudioHub SDK: stream(channel) starts playback")
	writeFile(t, dir, "empty.txt", "   \n")

	mgr := NewManager(config.DefaultConfig(), nil, nil)
	ctx := context.Background()

	store, n, err := mgr.BuildTempStoreFromPaths(ctx, []string{dir})
	if err != nil {
		t.Fatalf("BuildTempStoreFromPaths: %v", err)
	}
	if n != 2 {
		t.Fatalf("chunks = %d, want 2 (empty file skipped)", n)
	}

	results, err := store.Search(ctx, "connect camera", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || !strings.Contains(results[0].Chunk.Text, "connect(device_id)") {
		t.Errorf("search results = %+v, want the camera chunk first", results)
	}
}

func TestBuildTempStoreFromMissingPath(t *testing.T) {
	mgr := NewManager(config.DefaultConfig(), nil, nil)

	store, n, err := mgr.BuildTempStoreFromPaths(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	if err != nil {
		t.Fatalf("BuildTempStoreFromPaths: %v", err)
	}
	if n != 0 {
		t.Errorf("chunks = %d, want 0 for a missing path", n)
	}
	if got, _ := store.Count(context.Background()); got != 0 {
		t.Errorf("store count = %d, want 0", got)
	}
}
