// Package knowledge implements the retrieval-augmented knowledge subsystem:
// vector stores, the manifest-based incremental indexer, and the adaptive
// answer pipeline.
package knowledge

import "context"

// Chunk is a bounded-length slice of a source document. IDs are
// deterministic (hash of the file content plus the chunk index), so
// re-inserting the same content is naturally idempotent.
type Chunk struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Source      string `json:"source"`
	Index       int    `json:"index"`
	ContentHash string `json:"content_hash"`
}

// Scored pairs a chunk with a relevance score in [0,1]. Backends that
// cannot score report 0.
type Scored struct {
	Chunk Chunk
	Score float64
}

// VectorStore is the retrieval contract shared by the persistent and
// temporary stores. The persistent store and its manifest are shared
// mutable state with no locking across processes; concurrent indexing
// against the same store is not safe.
type VectorStore interface {
	// Add inserts chunks. Existing ids are replaced.
	Add(ctx context.Context, chunks []Chunk) error

	// Delete removes chunks by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Search returns up to k chunks ranked by relevance. Stores without
	// an embedding engine fall back to unscored keyword matching with
	// score 0.
	Search(ctx context.Context, query string, k int) ([]Scored, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// Persister is implemented by stores with a durable backing that supports
// an explicit flush.
type Persister interface {
	Persist() error
}
