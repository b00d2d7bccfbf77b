package knowledge

import (
	"context"
	"strings"
	"testing"
)

func TestMemoryStoreKeywordFallback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	chunks := NewChunker(0, 0).Split("camerax.txt", "CameraX SDK v1.2\nconnect(device_id): opens connection")
	if err := store.Add(ctx, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(ctx, NewChunker(0, 0).Split("other.txt", "unrelated billing notes")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.Search(ctx, "how to connect the camera", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	top := results[0]
	if !strings.Contains(top.Chunk.Text, "connect(device_id)") {
		t.Errorf("top result %q does not mention connect(device_id)", top.Chunk.Text)
	}
	if top.Score < 0 {
		t.Errorf("score = %f, want non-negative", top.Score)
	}
	// Keyword fallback cannot claim relevance.
	if top.Score != 0 {
		t.Errorf("keyword fallback score = %f, want 0", top.Score)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	chunks := NewChunker(0, 0).Split("doc", "alpha beta gamma")
	if err := store.Add(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, []string{chunks[0].ID, "unknown-id"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestMemoryStoreAddReplacesSameID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	c := Chunk{ID: "h:0", Text: "old", Source: "doc", ContentHash: "h"}
	if err := store.Add(ctx, []Chunk{c}); err != nil {
		t.Fatal(err)
	}
	c.Text = "new"
	if err := store.Add(ctx, []Chunk{c}); err != nil {
		t.Fatal(err)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
	results, err := store.Search(ctx, "new", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "new" {
		t.Errorf("results = %+v, want the replaced chunk", results)
	}
}
