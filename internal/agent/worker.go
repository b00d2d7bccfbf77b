package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mcsagent/internal/chat"
	"mcsagent/internal/gateway"
	"mcsagent/internal/logging"
	"mcsagent/internal/tools"
)

// Worker is a role-bound tool-using loop. Each Run injects a role prompt
// ahead of the shared history, iterates tool calls up to MaxTurns, and
// returns only the messages it produced.
type Worker struct {
	// Name is the routing identity; it prefixes the final answer.
	Name string

	// Prompt is the role instruction injected as a system message.
	Prompt string

	// Toolset is the fixed tool subset this role may call.
	Toolset []*tools.Tool

	// Registry executes tool calls with argument validation.
	Registry *tools.Registry

	// MaxTurns bounds the tool loop. Zero selects the default of 10.
	MaxTurns int

	gw             gateway.Client
	supportsImages bool
	log            *zap.Logger
}

// NewWorker builds a worker bound to a gateway and toolset.
func NewWorker(name, prompt string, registry *tools.Registry, toolNames []string, gw gateway.Client, supportsImages bool, maxTurns int) *Worker {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Worker{
		Name:           name,
		Prompt:         prompt,
		Toolset:        registry.GetMultiple(toolNames),
		Registry:       registry,
		MaxTurns:       maxTurns,
		gw:             gw,
		supportsImages: supportsImages,
		log:            logging.Named("worker." + strings.ToLower(name)),
	}
}

// identityTag is the prefix stamped on a worker's final answer so the
// operator can see who spoke. Stamping is idempotent: an already-tagged
// answer is left alone, so reruns never double-tag.
func (w *Worker) identityTag() string {
	return fmt.Sprintf("**[%s]**\n\n", w.Name)
}

// Run executes the bounded tool loop over the shared history and returns
// exactly the messages produced beyond it. The injected role prompt is
// never part of the returned suffix.
func (w *Worker) Run(ctx context.Context, history []chat.Message) ([]chat.Message, error) {
	system := w.Prompt + toolProtocol(w.Toolset)
	msgs := make([]chat.Message, 0, len(history)+4)
	msgs = append(msgs, SanitizeForModel(history, w.supportsImages)...)
	prefixLen := len(msgs)

	for turn := 0; turn < w.MaxTurns; turn++ {
		reply, err := w.gw.Complete(ctx, gateway.Request{
			System:   system,
			Messages: msgs,
		})
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", w.Name, err)
		}

		text := reply.PlainText()
		name, args, ok := parseToolDirective(text)
		if !ok {
			final := w.tagFinal(text)
			msgs = append(msgs, chat.Assistant(final))
			return msgs[prefixLen:], nil
		}

		msgs = append(msgs, chat.Assistant(text))
		msgs = append(msgs, chat.ToolResult(name, w.execute(ctx, name, args)))
	}

	// Loop bound hit without a final answer. Surface what we have rather
	// than failing the turn.
	msgs = append(msgs, chat.Assistant(w.tagFinal("I could not complete the task within the allowed number of tool calls.")))
	return msgs[prefixLen:], nil
}

// execute runs one tool call, converting every failure into text so the
// loop continues.
func (w *Worker) execute(ctx context.Context, name string, args map[string]any) string {
	if !w.allowed(name) {
		return fmt.Sprintf("Tool %q is not available to %s.", name, w.Name)
	}
	res, err := w.Registry.Execute(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Tool %s failed: %v", name, err)
	}
	w.log.Debug("tool call",
		zap.String("tool", name),
		zap.Int64("duration_ms", res.DurationMs))
	return res.Result
}

func (w *Worker) allowed(name string) bool {
	for _, t := range w.Toolset {
		if t.Name == name {
			return true
		}
	}
	return false
}

// tagFinal stamps the identity tag onto a final answer, prefix-checked so
// repeat stamping is a no-op.
func (w *Worker) tagFinal(text string) string {
	tag := w.identityTag()
	if strings.HasPrefix(text, tag) {
		return text
	}
	return tag + text
}

// parseToolDirective recognizes a reply of the form
// "TOOL <name> <json-args>", tolerating code fences and leading
// whitespace. Anything else is a final answer.
func parseToolDirective(text string) (string, map[string]any, bool) {
	raw := strings.TrimSpace(text)
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "TOOL ") {
		return "", nil, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(raw, "TOOL "))

	name := rest
	argsRaw := ""
	if idx := strings.IndexAny(rest, " \t"); idx > 0 {
		name = rest[:idx]
		argsRaw = strings.TrimSpace(rest[idx+1:])
	}
	if name == "" {
		return "", nil, false
	}

	args := map[string]any{}
	if argsRaw != "" {
		if err := json.Unmarshal([]byte(argsRaw), &args); err != nil {
			// A malformed directive is treated as a directive with bad
			// arguments, not as a final answer; the error flows back as a
			// tool result via required-argument validation.
			args = map[string]any{}
		}
	}
	return name, args, true
}
