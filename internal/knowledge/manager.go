package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mcsagent/internal/config"
	"mcsagent/internal/embedding"
	"mcsagent/internal/gateway"
	"mcsagent/internal/logging"
)

// Manager lazily opens the persistent store on first use and falls back to
// an in-memory store when the database cannot be opened, so knowledge
// features degrade instead of failing hard.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.Config
	gw      gateway.Client
	engine  embedding.Engine
	store   VectorStore
	indexer *Indexer
	log     *zap.Logger
}

// NewManager creates a manager. engine may be nil; retrieval then uses
// keyword fallback everywhere.
func NewManager(cfg *config.Config, gw gateway.Client, engine embedding.Engine) *Manager {
	return &Manager{
		cfg:    cfg,
		gw:     gw,
		engine: engine,
		log:    logging.Named("knowledge"),
	}
}

// Store returns the shared persistent store, opening it on first call.
func (m *Manager) Store() VectorStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStore()
	return m.store
}

// Indexer returns the manifest-backed indexer over the shared store.
func (m *Manager) Indexer() *Indexer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureStore()
	return m.indexer
}

// Pipeline returns an answer pipeline over the shared store.
func (m *Manager) Pipeline() *Pipeline {
	return NewPipeline(m.Store(), m.gw, m.cfg.Retrieval)
}

func (m *Manager) ensureStore() {
	if m.store != nil {
		return
	}
	store, err := OpenSQLiteStore(m.cfg.Store.DatabasePath, m.cfg.Store.Collection, m.engine)
	if err != nil {
		m.log.Warn("persistent store unavailable, using in-memory store",
			zap.String("path", m.cfg.Store.DatabasePath),
			zap.Error(err))
		m.store = NewMemoryStore(m.engine)
	} else {
		m.store = store
	}
	m.indexer = NewIndexer(m.store, m.manifestPath(),
		NewChunker(m.cfg.Retrieval.ChunkSize, m.cfg.Retrieval.ChunkOverlap),
		m.cfg.Retrieval.BatchSize)
}

func (m *Manager) manifestPath() string {
	return filepath.Join(filepath.Dir(m.cfg.Store.DatabasePath), "manifest.json")
}

// AddDocument chunks raw text into the persistent store under a source
// name. Unlike file indexing there is no manifest entry; callers own
// dedup for non-file content.
func (m *Manager) AddDocument(ctx context.Context, name, text string) (int, error) {
	store := m.Store()
	chunker := NewChunker(m.cfg.Retrieval.ChunkSize, m.cfg.Retrieval.ChunkOverlap)

	chunks := chunker.Split(name, text)
	if err := store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to add document %s: %w", name, err)
	}
	return len(chunks), nil
}

// BuildTempStore chunks the given documents into a fresh in-memory store.
// Each call rebuilds from scratch; there is no manifest and no incremental
// update for temporary knowledge bases.
func (m *Manager) BuildTempStore(ctx context.Context, docs map[string]string) (VectorStore, int, error) {
	store := NewMemoryStore(m.engine)
	chunker := NewChunker(m.cfg.Retrieval.ChunkSize, m.cfg.Retrieval.ChunkOverlap)

	total := 0
	for name, text := range docs {
		chunks := chunker.Split(name, text)
		if err := store.Add(ctx, chunks); err != nil {
			return nil, 0, fmt.Errorf("failed to build temporary store from %s: %w", name, err)
		}
		total += len(chunks)
	}
	return store, total, nil
}

// BuildTempStoreFromPaths chunks the given files or directories into a
// fresh in-memory store. Unreadable or empty files are skipped with a
// warning; there is no manifest, each call starts from scratch.
func (m *Manager) BuildTempStoreFromPaths(ctx context.Context, paths []string) (VectorStore, int, error) {
	store := NewMemoryStore(m.engine)
	chunker := NewChunker(m.cfg.Retrieval.ChunkSize, m.cfg.Retrieval.ChunkOverlap)

	files, bad := expandPaths(paths)
	for _, s := range bad {
		m.log.Warn("temporary store path skipped",
			zap.String("path", s.Path),
			zap.String("reason", s.Reason))
	}

	total := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			m.log.Warn("temporary store file unreadable",
				zap.String("path", path), zap.Error(err))
			continue
		}
		text := decodeLossy(data)
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks := chunker.Split(path, text)
		if err := store.Add(ctx, chunks); err != nil {
			return nil, 0, fmt.Errorf("failed to build temporary store from %s: %w", path, err)
		}
		total += len(chunks)
	}
	return store, total, nil
}

// TempPipeline returns an answer pipeline over an already-built temporary
// store.
func (m *Manager) TempPipeline(store VectorStore) *Pipeline {
	return NewPipeline(store, m.gw, m.cfg.Retrieval)
}

// Close releases the persistent store if it was opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.store.(*SQLiteStore); ok {
		return s.Close()
	}
	return nil
}
