// Package tools provides the modular tool definitions workers execute
// inside their bounded loops.
//
// Each tool is standalone: a name, a JSON argument schema, and an execute
// function. Workers receive a role-specific subset via Registry.GetMultiple.
package tools

import (
	"context"
)

// ContextNotActive is the sentinel returned by context-dependent tools
// when no session is installed. It flows back into the conversation as a
// normal tool result; it is never raised as an error.
const ContextNotActive = "Error: context not active."

// ToolCategory classifies tools for role-based filtering.
type ToolCategory string

const (
	// CategoryMemory covers session key/value memory operations.
	CategoryMemory ToolCategory = "memory"

	// CategoryArtifacts covers uploaded SDK docs and framework files.
	CategoryArtifacts ToolCategory = "artifacts"

	// CategoryKnowledge covers vector-store search, indexing, and answers.
	CategoryKnowledge ToolCategory = "knowledge"

	// CategoryCode covers file creation and command execution.
	CategoryCode ToolCategory = "code"

	// CategoryWeb covers external web lookups.
	CategoryWeb ToolCategory = "web"
)

// Property describes a single parameter property for the argument schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolSchema defines the expected arguments for a tool.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. The returned string is
// injected into the conversation; failures should usually be rendered into
// it rather than returned as an error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a tool a worker can invoke.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does, shown to the model.
	Description string

	// Category classifies the tool for role filtering.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}

// StringArg extracts a string argument, tolerating absent keys.
func StringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
