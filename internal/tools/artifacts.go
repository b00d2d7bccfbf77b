package tools

import (
	"context"
	"fmt"
	"strings"

	"mcsagent/internal/knowledge"
	"mcsagent/internal/session"
)

// RegisterArtifactTools adds tools for uploaded SDK docs and framework
// files. SDK doc uploads are also indexed into the persistent knowledge
// base so later searches can find them.
func RegisterArtifactTools(r *Registry, mgr *knowledge.Manager) {
	r.MustRegister(&Tool{
		Name:        "upload_sdk_doc",
		Description: "Store SDK documentation text under a name and index it into the knowledge base.",
		Category:    CategoryArtifacts,
		Schema: ToolSchema{
			Required: []string{"name", "content"},
			Properties: map[string]Property{
				"name":    {Type: "string", Description: "Document name"},
				"content": {Type: "string", Description: "Documentation text"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			name := StringArg(args, "name")
			content := StringArg(args, "content")
			if strings.TrimSpace(content) == "" {
				return "Document is empty; nothing stored.", nil
			}
			sc.AddSDKDoc(name, content)
			n, err := mgr.AddDocument(ctx, name, content)
			if err != nil {
				return fmt.Sprintf("Stored SDK doc %q, but indexing failed: %v", name, err), nil
			}
			return fmt.Sprintf("Stored SDK doc %q and indexed %d chunks.", name, n), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "upload_framework_file",
		Description: "Store a framework source file for later plugin generation.",
		Category:    CategoryArtifacts,
		Schema: ToolSchema{
			Required: []string{"filename", "content"},
			Properties: map[string]Property{
				"filename": {Type: "string", Description: "File name"},
				"content":  {Type: "string", Description: "File content"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			filename := StringArg(args, "filename")
			sc.AddFrameworkFile(filename, StringArg(args, "content"))
			return fmt.Sprintf("Stored framework file %q.", filename), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "inspect_artifacts",
		Description: "List the uploaded SDK docs and framework files in this session.",
		Category:    CategoryArtifacts,
		Schema:      ToolSchema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			docs, files := sc.ArtifactNames()
			var b strings.Builder
			b.WriteString("SDK docs: ")
			if len(docs) == 0 {
				b.WriteString("(none)")
			} else {
				b.WriteString(strings.Join(docs, ", "))
			}
			b.WriteString("\nFramework files: ")
			if len(files) == 0 {
				b.WriteString("(none)")
			} else {
				b.WriteString(strings.Join(files, ", "))
			}
			return b.String(), nil
		},
	})

	r.MustRegister(&Tool{
		Name:        "generate_plugin_stub",
		Description: "Generate a plugin skeleton from an uploaded framework file.",
		Category:    CategoryArtifacts,
		Schema: ToolSchema{
			Required: []string{"filename", "plugin_name"},
			Properties: map[string]Property{
				"filename":    {Type: "string", Description: "Framework file to base the stub on"},
				"plugin_name": {Type: "string", Description: "Name for the new plugin"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			sc := session.Current()
			if sc == nil {
				return ContextNotActive, nil
			}
			filename := StringArg(args, "filename")
			content, ok := sc.FrameworkFile(filename)
			if !ok {
				return fmt.Sprintf("Framework file %q not found. Upload it first with upload_framework_file.", filename), nil
			}
			return pluginStub(StringArg(args, "plugin_name"), filename, content), nil
		},
	})
}

// pluginStub renders a minimal plugin skeleton referencing the interfaces
// found in the framework file.
func pluginStub(pluginName, filename, content string) string {
	var hooks []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "func ") ||
			strings.Contains(trimmed, "interface") || strings.Contains(trimmed, "abstract") {
			hooks = append(hooks, trimmed)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Plugin stub: %s\n# Based on: %s\n\n", pluginName, filename)
	if len(hooks) == 0 {
		b.WriteString("# No hook points detected in the framework file; implement the plugin entry point manually.\n")
		return b.String()
	}
	b.WriteString("# Hook points detected:\n")
	for _, h := range hooks {
		fmt.Fprintf(&b, "#   %s\n", h)
	}
	fmt.Fprintf(&b, "\nclass %s:\n", pluginName)
	b.WriteString("    \"\"\"TODO: implement the detected hook points.\"\"\"\n")
	for _, h := range hooks {
		if strings.HasPrefix(h, "def ") {
			fmt.Fprintf(&b, "\n    %s\n        raise NotImplementedError\n", h)
		}
	}
	return b.String()
}
