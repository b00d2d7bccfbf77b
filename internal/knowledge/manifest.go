package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestEntry records what the store holds for one absolute file path.
type ManifestEntry struct {
	Hash   string   `json:"hash"`
	MTime  float64  `json:"mtime"`
	DocIDs []string `json:"doc_ids"`
}

// Manifest tracks per-file indexing bookkeeping for a persistent store.
// It is one JSON document, rewritten in full on every indexing pass.
type Manifest struct {
	Files map[string]ManifestEntry `json:"files"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Files: make(map[string]ManifestEntry)}
}

// LoadManifest reads a manifest from path. A missing file yields an empty
// manifest rather than an error.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Files == nil {
		m.Files = make(map[string]ManifestEntry)
	}
	return &m, nil
}

// Save writes the manifest atomically: a temp file in the same directory,
// then a rename over the target. Readers never observe a partial write.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
