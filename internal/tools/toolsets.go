package tools

import (
	"mcsagent/internal/knowledge"
)

// Role toolset names. Each worker gets a fixed subset; the supervisor gets
// none. All roles share memory, temporary knowledge bases, and web search.
var (
	// DeveloperTools supports plugin work: files, commands, framework
	// artifacts, and grounded lookups.
	DeveloperTools = []string{
		"inspect_artifacts",
		"generate_plugin_stub",
		"upload_framework_file",
		"create_file",
		"run_command",
		"search_knowledge_base",
		"save_memory",
		"read_memory",
		"list_memories",
		"create_temp_knowledge_base",
		"search_temp_knowledge_base",
		"search_web",
	}

	// SupportTools covers uploaded documentation and grounded answers.
	SupportTools = []string{
		"upload_sdk_doc",
		"search_knowledge_base",
		"rag_answer",
		"read_memory",
		"list_memories",
		"create_temp_knowledge_base",
		"search_temp_knowledge_base",
		"search_web",
	}

	// ScientistTools covers research and knowledge base curation.
	ScientistTools = []string{
		"save_memory",
		"read_memory",
		"list_memories",
		"search_knowledge_base",
		"add_to_knowledge_base",
		"update_knowledge_base_from_files",
		"create_temp_knowledge_base",
		"search_temp_knowledge_base",
		"search_web",
	}
)

// NewDefaultRegistry builds a registry with every tool registered against
// the shared knowledge manager.
func NewDefaultRegistry(mgr *knowledge.Manager) *Registry {
	r := NewRegistry()
	RegisterMemoryTools(r)
	RegisterArtifactTools(r, mgr)
	RegisterKnowledgeTools(r, mgr)
	RegisterCodeTools(r)
	RegisterWebTools(r)
	return r
}
