package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"mcsagent/internal/embedding"
	"mcsagent/internal/logging"
)

// SQLiteStore is the durable named collection backing the persistent
// knowledge base. Embeddings are stored as JSON next to the chunk text and
// similarity is computed in-process, so the store works with a plain
// sqlite3 driver; the sqlite-vec extension is registered when built with
// the sqlite_vec tag.
type SQLiteStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	collection string
	engine     embedding.Engine // nil means keyword fallback
	log        *zap.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and binds the
// named collection. engine may be nil; retrieval then degrades to unscored
// keyword matching.
func OpenSQLiteStore(path, collection string, engine embedding.Engine) (*SQLiteStore, error) {
	if collection == "" {
		collection = "default"
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Named("store").Debug("set busy_timeout failed", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Named("store").Debug("set journal_mode=WAL failed", zap.Error(err))
	}

	s := &SQLiteStore{
		db:         db,
		collection: collection,
		engine:     engine,
		log:        logging.Named("store"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Info("opened persistent store",
		zap.String("path", path),
		zap.String("collection", collection))
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL,
		collection TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT,
		chunk_index INTEGER,
		content_hash TEXT,
		embedding TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, collection)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(collection, source);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Add inserts chunks, replacing existing ids.
func (s *SQLiteStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var embeddings [][]float32
	if s.engine != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		var err error
		embeddings, err = s.engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO chunks (id, collection, content, source, chunk_index, content_hash, embedding) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range chunks {
		var embJSON any
		if embeddings != nil {
			data, err := json.Marshal(embeddings[i])
			if err != nil {
				return fmt.Errorf("failed to serialize embedding: %w", err)
			}
			embJSON = string(data)
		}
		if _, err := stmt.Exec(c.ID, s.collection, c.Text, c.Source, c.Index, c.ContentHash, embJSON); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Delete removes chunks by id. Unknown ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM chunks WHERE id = ? AND collection = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id, s.collection); err != nil {
			return fmt.Errorf("failed to delete chunk %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Search returns up to k chunks ranked by cosine similarity, with scores
// normalized into [0,1]. Without an engine it falls back to unscored
// keyword matching.
func (s *SQLiteStore) Search(ctx context.Context, query string, k int) ([]Scored, error) {
	if k <= 0 {
		k = 5
	}

	if s.engine == nil {
		return s.searchKeyword(ctx, query, k)
	}

	queryEmbedding, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, source, chunk_index, content_hash, embedding FROM chunks WHERE collection = ? AND embedding IS NOT NULL",
		s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Scored
	for rows.Next() {
		var c Chunk
		var embJSON string
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.Index, &c.ContentHash, &embJSON); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryEmbedding, vec)
		if err != nil {
			continue
		}
		results = append(results, Scored{Chunk: c, Score: normalizeScore(sim)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// searchKeyword ranks chunks by query-term hits and reports score 0,
// signalling to callers that the backend could not score.
func (s *SQLiteStore) searchKeyword(ctx context.Context, query string, k int) ([]Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, source, chunk_index, content_hash FROM chunks WHERE collection = ?",
		s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.Index, &c.ContentHash); err != nil {
			continue
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rankKeyword(chunks, query, k), nil
}

// Count returns the number of chunks in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&n)
	return n, err
}

// Persist forces a WAL checkpoint so a crash cannot lose acknowledged
// writes.
func (s *SQLiteStore) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// normalizeScore maps cosine similarity [-1,1] into [0,1].
func normalizeScore(sim float64) float64 {
	score := (sim + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// rankKeyword orders chunks by the number of distinct query terms they
// contain. Scores stay 0: keyword matching cannot claim relevance.
func rankKeyword(chunks []Chunk, query string, k int) []Scored {
	terms := strings.Fields(strings.ToLower(query))

	type ranked struct {
		chunk Chunk
		hits  int
	}
	var candidates []ranked
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		hits := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, ranked{chunk: c, hits: hits})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].hits > candidates[j].hits })
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Scored, len(candidates))
	for i, c := range candidates {
		results[i] = Scored{Chunk: c.chunk, Score: 0}
	}
	return results
}
