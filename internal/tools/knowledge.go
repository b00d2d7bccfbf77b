package tools

import (
	"context"
	"fmt"
	"strings"

	"mcsagent/internal/knowledge"
	"mcsagent/internal/session"
)

// RegisterKnowledgeTools adds vector-store search, indexing, and grounded
// answer tools over the shared knowledge manager.
func RegisterKnowledgeTools(r *Registry, mgr *knowledge.Manager) {
	r.MustRegister(&Tool{
		Name:        "search_knowledge_base",
		Description: "Search the persistent knowledge base and return the top matching chunks with scores.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search query"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			results, err := mgr.Pipeline().Search(ctx, StringArg(args, "query"))
			if err != nil {
				return fmt.Sprintf("Search failed: %v", err), nil
			}
			return renderResults(results), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "add_to_knowledge_base",
		Description: "Add raw text to the persistent knowledge base under a source name.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Required: []string{"name", "content"},
			Properties: map[string]Property{
				"name":    {Type: "string", Description: "Source name for the text"},
				"content": {Type: "string", Description: "Text to index"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			name := StringArg(args, "name")
			content := StringArg(args, "content")
			if strings.TrimSpace(content) == "" {
				return "Content is empty; nothing indexed.", nil
			}
			n, err := mgr.AddDocument(ctx, name, content)
			if err != nil {
				return fmt.Sprintf("Indexing failed: %v", err), nil
			}
			return fmt.Sprintf("Indexed %d chunks from %q.", n, name), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "update_knowledge_base_from_files",
		Description: "Incrementally index files or directories into the knowledge base. Unchanged files are skipped.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Required: []string{"paths"},
			Properties: map[string]Property{
				"paths": {Type: "string", Description: "Comma-separated file or directory paths"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			paths := splitPaths(StringArg(args, "paths"))
			if len(paths) == 0 {
				return "No paths given.", nil
			}
			statuses, err := mgr.Indexer().Index(ctx, paths)
			if err != nil {
				return fmt.Sprintf("Indexing failed: %v", err), nil
			}
			lines := make([]string, len(statuses))
			for i, s := range statuses {
				lines[i] = s.String()
			}
			return strings.Join(lines, "\n"), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "rag_answer",
		Description: "Answer a question grounded in the persistent knowledge base.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Required: []string{"question"},
			Properties: map[string]Property{
				"question": {Type: "string", Description: "Question to answer"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			answer, err := mgr.Pipeline().Answer(ctx, StringArg(args, "question"))
			if err != nil {
				return fmt.Sprintf("Answer failed: %v", err), nil
			}
			return answer, nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "create_temp_knowledge_base",
		Description: "Build a fresh temporary knowledge base from files or directories, or from the session's uploaded artifacts when no paths are given. Replaces any previous temporary store.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Properties: map[string]Property{
				"paths": {Type: "string", Description: "Optional comma-separated file or directory paths"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}

			if paths := splitPaths(StringArg(args, "paths")); len(paths) > 0 {
				store, n, err := mgr.BuildTempStoreFromPaths(ctx, paths)
				if err != nil {
					return fmt.Sprintf("Temporary knowledge base build failed: %v", err), nil
				}
				if n == 0 {
					return "No documents found at the given paths.", nil
				}
				sc.TempStore = store
				return fmt.Sprintf("Temporary knowledge base built: %d chunks from %d paths.", n, len(paths)), nil
			}

			docs := sc.Artifacts()
			if len(docs) == 0 {
				return "No uploaded artifacts to build from.", nil
			}
			store, n, err := mgr.BuildTempStore(ctx, docs)
			if err != nil {
				return fmt.Sprintf("Temporary knowledge base build failed: %v", err), nil
			}
			sc.TempStore = store
			return fmt.Sprintf("Temporary knowledge base built: %d chunks from %d artifacts.", n, len(docs)), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "search_temp_knowledge_base",
		Description: "Search the session's temporary knowledge base.",
		Category:    CategoryKnowledge,
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {Type: "string", Description: "Search query"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			if sc.TempStore == nil {
				return "No temporary knowledge base. Create one with create_temp_knowledge_base.", nil
			}
			results, err := mgr.TempPipeline(sc.TempStore).Search(ctx, StringArg(args, "query"))
			if err != nil {
				return fmt.Sprintf("Search failed: %v", err), nil
			}
			return renderResults(results), nil
		},
	})
}

// splitPaths parses a comma-separated path list, dropping empty entries.
func splitPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func renderResults(results []knowledge.Scored) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] source=%s score=%.2f\n%s", i+1, r.Chunk.Source, r.Score, r.Chunk.Text)
	}
	return b.String()
}
