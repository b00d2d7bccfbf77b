package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mcsagent/internal/embedding"
)

// MemoryStore is an in-process VectorStore used for temporary knowledge
// bases and as a fallback when the persistent store cannot be opened. It
// honors the same scoring contract as SQLiteStore.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
	vecs   map[string][]float32
	engine embedding.Engine // nil means keyword fallback
}

// NewMemoryStore returns an empty store. engine may be nil.
func NewMemoryStore(engine embedding.Engine) *MemoryStore {
	return &MemoryStore{
		chunks: make(map[string]Chunk),
		vecs:   make(map[string][]float32),
		engine: engine,
	}
}

func (m *MemoryStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var embeddings [][]float32
	if m.engine != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		var err error
		embeddings, err = m.engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		m.chunks[c.ID] = c
		if embeddings != nil {
			m.vecs[c.ID] = embeddings[i]
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.chunks, id)
		delete(m.vecs, id)
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query string, k int) ([]Scored, error) {
	if k <= 0 {
		k = 5
	}

	if m.engine == nil {
		m.mu.RLock()
		all := make([]Chunk, 0, len(m.chunks))
		for _, c := range m.chunks {
			all = append(all, c)
		}
		m.mu.RUnlock()
		return rankKeyword(all, query, k), nil
	}

	queryEmbedding, err := m.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Scored
	for id, c := range m.chunks {
		vec, ok := m.vecs[id]
		if !ok {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryEmbedding, vec)
		if err != nil {
			continue
		}
		results = append(results, Scored{Chunk: c, Score: normalizeScore(sim)})
	}

	sortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

func sortScored(results []Scored) {
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}
