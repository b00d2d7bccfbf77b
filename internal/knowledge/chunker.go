package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunker splits text with a fixed sliding window. Splitting is purely
// length-based over runes; there is no semantic boundary awareness.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a chunker, falling back to the 2000/200 defaults for
// non-positive values.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = 200
		if overlap >= size {
			overlap = size / 10
		}
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split chunks text from source. Each chunk id is derived from the whole
// content's hash plus the chunk index, so unchanged content always yields
// the same ids.
func (c Chunker) Split(source, text string) []Chunk {
	hash := HashText(text)
	runes := []rune(text)

	var chunks []Chunk
	step := c.Size - c.Overlap
	for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:          ChunkID(hash, idx),
			Text:        string(runes[start:end]),
			Source:      source,
			Index:       idx,
			ContentHash: hash,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// ChunkID builds the deterministic chunk id for a content hash and index.
func ChunkID(contentHash string, index int) string {
	return fmt.Sprintf("%s:%d", contentHash, index)
}

// HashText returns the hex sha256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the hex sha256 of raw bytes.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
