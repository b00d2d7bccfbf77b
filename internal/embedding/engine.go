// Package embedding provides vector embedding generation for semantic search.
// Supports multiple backends: Ollama (local), Google GenAI (cloud), and any
// OpenAI-compatible endpoint.
package embedding

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"mcsagent/internal/config"
	"mcsagent/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// HealthChecker is an optional interface for engines that can verify
// availability before batch operations.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewEngine creates an embedding engine based on configuration.
func NewEngine(cfg config.EmbeddingConfig) (Engine, error) {
	log := logging.Named("embedding")
	log.Debug("creating embedding engine",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))

	var engine Engine
	var err error

	switch cfg.Provider {
	case "", "ollama":
		engine, err = NewOllamaEngine(cfg.Endpoint, cfg.Model)
	case "genai":
		engine, err = NewGenAIEngine(cfg.APIKey, cfg.Model)
	case "openai":
		engine, err = NewOpenAIEngine(cfg.Endpoint, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama', 'genai', or 'openai')", cfg.Provider)
	}

	if err != nil {
		return nil, err
	}

	log.Info("embedding engine ready",
		zap.String("name", engine.Name()),
		zap.Int("dimensions", engine.Dimensions()))
	return engine, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		aMagnitude += float64(a[i] * a[i])
		bMagnitude += float64(b[i] * b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}
