package agent

import (
	"fmt"
	"strings"

	"mcsagent/internal/tools"
)

// Worker names form the closed routing set. The supervisor may only route
// to these or FINISH.
const (
	WorkerDeveloper = "Developer"
	WorkerSupport   = "Support"
	WorkerScientist = "Scientist"
)

// WorkerNames lists the closed set of routable workers.
var WorkerNames = []string{WorkerDeveloper, WorkerSupport, WorkerScientist}

const supervisorPrompt = `You are a supervisor routing a conversation between specialized workers.

Workers:
- Developer: writes plugin code, creates files, runs commands, and generates plugin stubs from uploaded framework files.
- Support: stores uploaded SDK documentation, answers questions grounded in the knowledge base, and recalls remembered facts.
- Scientist: researches and curates the knowledge base, saves new facts to memory, indexes files, and searches the web.

Given the conversation, decide who should act next. When the user's request has been fully handled, choose FINISH.

Respond with a single JSON object and nothing else:
{"next": "<Developer|Support|Scientist|FINISH>"}`

const developerPrompt = `You are the Developer, a plugin engineering specialist.
You write integration code for device SDKs: create source files, run build or test commands, and generate plugin skeletons from uploaded framework files.
Ground your code in documentation retrieved from the knowledge base rather than guessing APIs.
When the work is done, summarize what you created.`

const supportPrompt = `You are Support, the operator's assistant.
You manage uploaded SDK documentation, answer questions grounded in the knowledge base, and recall remembered facts (reading and listing; the Scientist saves new ones).
Answer questions about uploaded artifacts precisely; if something is not stored, say so instead of inventing it.`

const scientistPrompt = `You are the Scientist, a research specialist.
You search and curate the knowledge base, index new documents and files, build temporary knowledge bases from paths or session artifacts, save notable facts to memory, and search the web when local knowledge is insufficient.
Cite the sources of retrieved material. Never present fabricated content as retrieved.`

// toolProtocol renders the in-band tool-calling instructions for a
// worker's toolset. The model either answers directly or emits exactly one
// TOOL directive per turn.
func toolProtocol(toolset []*tools.Tool) string {
	if len(toolset) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nYou can use tools. To call one, reply with exactly one line in this form and nothing else:\n")
	b.WriteString("TOOL <name> <json-arguments>\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range toolset {
		fmt.Fprintf(&b, "- %s: %s", t.Name, t.Description)
		if len(t.Schema.Required) > 0 {
			fmt.Fprintf(&b, " (required: %s)", strings.Join(t.Schema.Required, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nTool results arrive as messages prefixed with the tool name. When you have everything you need, reply with your final answer as plain text.")
	return b.String()
}
