package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"mcsagent/internal/logging"
)

// FileStatus reports the outcome of indexing a single file. Indexing never
// returns a single aggregate pass/fail; callers get one status per path.
type FileStatus struct {
	Path   string
	Status string // "up-to-date", "indexed", "skipped", "error"
	Chunks int
	Reason string
}

func (s FileStatus) String() string {
	switch s.Status {
	case "indexed":
		return fmt.Sprintf("%s: indexed %d chunks", s.Path, s.Chunks)
	case "skipped", "error":
		return fmt.Sprintf("%s: %s (%s)", s.Path, s.Status, s.Reason)
	default:
		return fmt.Sprintf("%s: %s", s.Path, s.Status)
	}
}

// Indexer maintains a vector store incrementally using a manifest of
// per-file hash/mtime/chunk-id bookkeeping. It is not safe for concurrent
// use against the same manifest path.
type Indexer struct {
	store        VectorStore
	manifestPath string
	chunker      Chunker
	batchSize    int
	log          *zap.Logger
}

// NewIndexer binds a store to a manifest file. batchSize <= 0 selects the
// default of 10.
func NewIndexer(store VectorStore, manifestPath string, chunker Chunker, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Indexer{
		store:        store,
		manifestPath: manifestPath,
		chunker:      chunker,
		batchSize:    batchSize,
		log:          logging.Named("indexer"),
	}
}

// Index processes the given files or directories (directories are walked
// recursively) and returns one status per file. Per-file errors are
// isolated; the run continues past them. The manifest is rewritten once at
// the end via atomic replace.
func (ix *Indexer) Index(ctx context.Context, paths []string) ([]FileStatus, error) {
	manifest, err := LoadManifest(ix.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	files, statuses := expandPaths(paths)
	for _, path := range files {
		statuses = append(statuses, ix.indexFile(ctx, manifest, path))
	}

	if err := manifest.Save(ix.manifestPath); err != nil {
		return statuses, fmt.Errorf("failed to save manifest: %w", err)
	}
	if p, ok := ix.store.(Persister); ok {
		if err := p.Persist(); err != nil {
			ix.log.Warn("store persist failed", zap.Error(err))
		}
	}
	return statuses, nil
}

// expandPaths resolves directories into their contained files, skipping
// hidden entries, and emits error statuses for unreadable paths.
func expandPaths(paths []string) ([]string, []FileStatus) {
	var files []string
	var statuses []FileStatus
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			statuses = append(statuses, FileStatus{Path: path, Status: "error", Reason: err.Error()})
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				statuses = append(statuses, FileStatus{Path: p, Status: "error", Reason: err.Error()})
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") && p != path {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if walkErr != nil {
			statuses = append(statuses, FileStatus{Path: path, Status: "error", Reason: walkErr.Error()})
		}
	}
	return files, statuses
}

func (ix *Indexer) indexFile(ctx context.Context, manifest *Manifest, path string) FileStatus {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileStatus{Path: abs, Status: "error", Reason: err.Error()}
	}

	hash := HashBytes(data)
	if entry, ok := manifest.Files[abs]; ok && entry.Hash == hash {
		return FileStatus{Path: abs, Status: "up-to-date", Chunks: len(entry.DocIDs)}
	}

	// Content changed: drop the stale chunks before inserting replacements
	// so the stored set never becomes a union of old and new.
	if entry, ok := manifest.Files[abs]; ok && len(entry.DocIDs) > 0 {
		if err := ix.store.Delete(ctx, entry.DocIDs); err != nil {
			return FileStatus{Path: abs, Status: "error", Reason: fmt.Sprintf("failed to delete stale chunks: %v", err)}
		}
		delete(manifest.Files, abs)
	}

	text := decodeLossy(data)
	if strings.TrimSpace(text) == "" {
		return FileStatus{Path: abs, Status: "skipped", Reason: "empty file"}
	}

	chunks := ix.chunker.Split(abs, text)

	ids, err := ix.insertBatched(ctx, chunks)
	if err != nil {
		return FileStatus{Path: abs, Status: "error", Reason: err.Error()}
	}

	var mtime float64
	if info, err := os.Stat(path); err == nil {
		mtime = float64(info.ModTime().UnixNano()) / 1e9
	}

	if len(ids) < len(chunks) {
		// Partial insert: record what landed but leave the hash unset, so
		// the next run re-indexes the file instead of calling it up to
		// date, and the recorded ids still get swept as stale.
		manifest.Files[abs] = ManifestEntry{MTime: mtime, DocIDs: ids}
		return FileStatus{Path: abs, Status: "error",
			Reason: fmt.Sprintf("inserted %d of %d chunks", len(ids), len(chunks))}
	}
	manifest.Files[abs] = ManifestEntry{Hash: hash, MTime: mtime, DocIDs: ids}

	ix.log.Debug("indexed file",
		zap.String("path", abs),
		zap.Int("chunks", len(ids)))
	return FileStatus{Path: abs, Status: "indexed", Chunks: len(ids)}
}

// insertBatched inserts chunks in fixed-size batches and returns the ids
// that actually landed. A failed batch is retried one chunk at a time so a
// single malformed chunk cannot lose its whole batch.
func (ix *Indexer) insertBatched(ctx context.Context, chunks []Chunk) ([]string, error) {
	inserted := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		if err := ix.store.Add(ctx, batch); err == nil {
			for _, c := range batch {
				inserted = append(inserted, c.ID)
			}
			continue
		}
		for _, c := range batch {
			if err := ix.store.Add(ctx, []Chunk{c}); err != nil {
				ix.log.Warn("chunk insert failed",
					zap.String("id", c.ID),
					zap.Error(err))
				continue
			}
			inserted = append(inserted, c.ID)
		}
	}
	if len(inserted) == 0 && len(chunks) > 0 {
		return nil, fmt.Errorf("all %d chunk inserts failed", len(chunks))
	}
	return inserted, nil
}

// decodeLossy interprets data as UTF-8, replacing invalid sequences
// instead of aborting the file.
func decodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
