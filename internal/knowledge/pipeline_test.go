package knowledge

import (
	"context"
	"strings"
	"testing"

	"mcsagent/internal/chat"
	"mcsagent/internal/config"
	"mcsagent/internal/gateway"
)

// scriptedGateway returns canned replies in order and records prompts.
type scriptedGateway struct {
	replies []string
	prompts []string
	calls   int
}

func (g *scriptedGateway) Model() string { return "test-model" }

func (g *scriptedGateway) Complete(ctx context.Context, req gateway.Request) (chat.Message, error) {
	var prompt string
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].PlainText()
	}
	g.prompts = append(g.prompts, prompt)
	reply := "ok"
	if g.calls < len(g.replies) {
		reply = g.replies[g.calls]
	}
	g.calls++
	return chat.Assistant(reply), nil
}

// scriptedStore returns fixed result sets per Search call and counts
// queries.
type scriptedStore struct {
	resultSets [][]Scored
	queries    []string
}

func (s *scriptedStore) Add(ctx context.Context, chunks []Chunk) error  { return nil }
func (s *scriptedStore) Delete(ctx context.Context, ids []string) error { return nil }
func (s *scriptedStore) Count(ctx context.Context) (int, error)         { return 0, nil }

func (s *scriptedStore) Search(ctx context.Context, query string, k int) ([]Scored, error) {
	s.queries = append(s.queries, query)
	idx := len(s.queries) - 1
	if idx >= len(s.resultSets) {
		return nil, nil
	}
	return s.resultSets[idx], nil
}

func scored(text string, score float64) Scored {
	return Scored{Chunk: Chunk{ID: text, Text: text, Source: "doc"}, Score: score}
}

func retrievalDefaults() config.RetrievalConfig {
	return config.RetrievalConfig{TopK: 5, ContextChunks: 4, RewriteThreshold: 0.35}
}

func TestAnswerEmptyStoreReturnsClarification(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"No relevant documents were found."}}
	store := &scriptedStore{}
	p := NewPipeline(store, gw, retrievalDefaults())

	answer, err := p.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer == "" {
		t.Fatal("empty answer")
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1 (clarification only)", gw.calls)
	}
	if !strings.Contains(gw.prompts[0], "no results") {
		t.Errorf("clarification prompt should note the empty result set: %q", gw.prompts[0])
	}
}

func TestAnswerHighScoreSkipsRewrite(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"final answer"}}
	store := &scriptedStore{resultSets: [][]Scored{{scored("relevant text", 0.9)}}}
	p := NewPipeline(store, gw, retrievalDefaults())

	answer, err := p.Answer(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(store.queries) != 1 {
		t.Errorf("search calls = %d, want 1 (no rewrite)", len(store.queries))
	}
	if answer != "final answer" {
		t.Errorf("answer = %q", answer)
	}
	// The completion prompt carries the retrieved context and the
	// three-part instruction.
	final := gw.prompts[len(gw.prompts)-1]
	for _, want := range []string{"relevant text", "Restate", "Extract", "Answer"} {
		if !strings.Contains(final, want) {
			t.Errorf("final prompt missing %q", want)
		}
	}
}

func TestAnswerLowScoreRewritesExactlyOnce(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"rewritten query", "final answer"}}
	store := &scriptedStore{resultSets: [][]Scored{
		{scored("weak match", 0.1)},
		{scored("still weak", 0.05)},
	}}
	p := NewPipeline(store, gw, retrievalDefaults())

	if _, err := p.Answer(context.Background(), "original query"); err != nil {
		t.Fatal(err)
	}

	if len(store.queries) != 2 {
		t.Fatalf("search calls = %d, want exactly 2 (one rewrite retry)", len(store.queries))
	}
	if store.queries[0] != "original query" {
		t.Errorf("first query = %q", store.queries[0])
	}
	if store.queries[1] != "rewritten query" {
		t.Errorf("retry query = %q, want the rewritten form", store.queries[1])
	}
	// Two gateway calls: rewrite + final completion. Never a second rewrite,
	// even though the retry also scored below threshold.
	if gw.calls != 2 {
		t.Errorf("gateway calls = %d, want 2", gw.calls)
	}
}

func TestAnswerUsesTopFourChunks(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"final answer"}}
	store := &scriptedStore{resultSets: [][]Scored{{
		scored("chunk-one", 0.9),
		scored("chunk-two", 0.8),
		scored("chunk-three", 0.7),
		scored("chunk-four", 0.6),
		scored("chunk-five", 0.5),
	}}}
	p := NewPipeline(store, gw, retrievalDefaults())

	if _, err := p.Answer(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	final := gw.prompts[len(gw.prompts)-1]
	for _, want := range []string{"chunk-one", "chunk-two", "chunk-three", "chunk-four"} {
		if !strings.Contains(final, want) {
			t.Errorf("context missing %q", want)
		}
	}
	if strings.Contains(final, "chunk-five") {
		t.Error("context includes the fifth chunk")
	}
}

func TestSearchReturnsRawResults(t *testing.T) {
	store := &scriptedStore{resultSets: [][]Scored{{scored("raw", 0.42)}}}
	p := NewPipeline(store, &scriptedGateway{}, retrievalDefaults())

	results, err := p.Search(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Score != 0.42 {
		t.Errorf("results = %+v", results)
	}
}
