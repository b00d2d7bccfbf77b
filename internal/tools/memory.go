package tools

import (
	"context"
	"fmt"
	"strings"

	"mcsagent/internal/session"
)

// RegisterMemoryTools adds the long-term memory tools. All of them require
// an active session context and degrade to the sentinel string without one.
func RegisterMemoryTools(r *Registry) {
	r.MustRegister(&Tool{
		Name:        "save_memory",
		Description: "Save a key-value pair to long-term session memory.",
		Category:    CategoryMemory,
		Schema: ToolSchema{
			Required: []string{"key", "value"},
			Properties: map[string]Property{
				"key":   {Type: "string", Description: "Memory key"},
				"value": {Type: "string", Description: "Value to remember"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			key := StringArg(args, "key")
			sc.SaveMemory(key, StringArg(args, "value"))
			return fmt.Sprintf("Saved memory %q.", key), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "read_memory",
		Description: "Read a value from long-term session memory by key.",
		Category:    CategoryMemory,
		Schema: ToolSchema{
			Required: []string{"key"},
			Properties: map[string]Property{
				"key": {Type: "string", Description: "Memory key"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			return sc.ReadMemory(StringArg(args, "key")), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "list_memories",
		Description: "List all keys stored in long-term session memory.",
		Category:    CategoryMemory,
		Schema:      ToolSchema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			keys := sc.ListMemories()
			if len(keys) == 0 {
				return "No memories stored.", nil
			}
			return "Stored memory keys: " + strings.Join(keys, ", "), nil
		},
	})
}
