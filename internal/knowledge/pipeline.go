package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mcsagent/internal/config"
	"mcsagent/internal/gateway"
	"mcsagent/internal/logging"
)

// Pipeline answers questions over a VectorStore with one adaptive query
// rewrite when the best match looks weak.
type Pipeline struct {
	store VectorStore
	gw    gateway.Client
	cfg   config.RetrievalConfig
	log   *zap.Logger
}

// NewPipeline wires a store and gateway together. Zero-valued retrieval
// settings are replaced with defaults.
func NewPipeline(store VectorStore, gw gateway.Client, cfg config.RetrievalConfig) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ContextChunks <= 0 {
		cfg.ContextChunks = 4
	}
	if cfg.RewriteThreshold <= 0 {
		cfg.RewriteThreshold = 0.35
	}
	return &Pipeline{store: store, gw: gw, cfg: cfg, log: logging.Named("pipeline")}
}

// Search returns the raw top-k chunks with scores and sources, no
// synthesis.
func (p *Pipeline) Search(ctx context.Context, query string) ([]Scored, error) {
	return p.store.Search(ctx, query, p.cfg.TopK)
}

// Answer runs retrieval, optionally one rewrite+retry, then a single
// grounded completion. An empty knowledge base yields a clarification
// message, never an error.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	results, err := p.store.Search(ctx, question, p.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		return p.clarify(ctx, question)
	}

	if results[0].Score < p.cfg.RewriteThreshold {
		rewritten, err := p.rewrite(ctx, question)
		if err != nil {
			p.log.Warn("query rewrite failed", zap.Error(err))
		} else if rewritten != "" && rewritten != question {
			p.log.Debug("retrying with rewritten query",
				zap.Float64("top_score", results[0].Score),
				zap.String("rewritten", rewritten))
			retried, err := p.store.Search(ctx, rewritten, p.cfg.TopK)
			if err == nil {
				results = retried
			}
		}
		// One rewrite pass only, whatever its outcome.
	}

	if len(results) == 0 {
		return p.clarify(ctx, question)
	}

	n := p.cfg.ContextChunks
	if n > len(results) {
		n = len(results)
	}
	contextBlock := formatContext(results[:n])

	prompt := fmt.Sprintf(`Use only the context below to answer the question.

Context:
%s

Question: %s

Respond in three parts:
1. Restate the question as a refined, precise version.
2. Extract the relevant facts, using only information present in the context above.
3. Answer the refined question based solely on those facts. If the context does not contain the answer, say so.`, contextBlock, question)

	answer, err := gateway.CompleteText(ctx, p.gw,
		"You are a careful assistant that answers strictly from the provided context.", prompt)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return answer, nil
}

// clarify asks the gateway for a conservative response when nothing was
// retrieved. Grounded content must never be fabricated here.
func (p *Pipeline) clarify(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`The knowledge base returned no results for this question:

%s

The knowledge base may be empty or the question may be out of scope. Reply with a short message explaining that no relevant documents were found and suggest how the user could rephrase the question or add documents. Do not invent an answer.`, question)

	answer, err := gateway.CompleteText(ctx, p.gw,
		"You are a careful assistant. Never fabricate information.", prompt)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return answer, nil
}

// rewrite asks the gateway to reformulate a weakly-matching query using
// general domain knowledge only.
func (p *Pipeline) rewrite(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(`Reformulate the following search query to improve document retrieval. Use general domain knowledge to add likely synonyms or technical terms, but do not assume any specific document contents. Reply with the rewritten query only, no explanation.

Query: %s`, question)

	rewritten, err := gateway.CompleteText(ctx, p.gw,
		"You rewrite search queries. Output only the rewritten query.", prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`)), nil
}

func formatContext(results []Scored) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[source: %s | score: %.2f]\n%s", r.Chunk.Source, r.Score, r.Chunk.Text)
	}
	return b.String()
}
