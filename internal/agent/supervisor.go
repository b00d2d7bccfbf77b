package agent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"mcsagent/internal/chat"
	"mcsagent/internal/gateway"
	"mcsagent/internal/logging"
)

// Supervisor decides which worker acts next. Any failure in the decision
// path maps to Finish: graceful termination is preferred over retrying.
type Supervisor struct {
	gw      gateway.Client
	workers []string
	log     *zap.Logger
}

// NewSupervisor creates a supervisor over the given closed worker set.
func NewSupervisor(gw gateway.Client, workers []string) *Supervisor {
	return &Supervisor{gw: gw, workers: workers, log: logging.Named("supervisor")}
}

// Decide returns the next worker name or chat.Finish. It never returns a
// value outside the closed set.
func (s *Supervisor) Decide(ctx context.Context, state *chat.State) string {
	transcript := compactTranscript(state.Messages)
	if transcript == "" {
		return chat.Finish
	}

	reply, err := gateway.CompleteText(ctx, s.gw, supervisorPrompt, transcript)
	if err != nil {
		s.log.Warn("routing call failed, terminating turn", zap.Error(err))
		return chat.Finish
	}

	next, ok := parseRouting(reply)
	if !ok || !chat.ValidNext(next, s.workers) {
		s.log.Warn("invalid routing decision, terminating turn",
			zap.String("reply", reply))
		return chat.Finish
	}
	return next
}

// compactTranscript renders user and assistant turns only. System turns
// and tool noise are dropped; image blocks become a textual placeholder so
// the routing call never carries image payloads.
func compactTranscript(msgs []chat.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			continue
		}
		text := m.PlainText()
		if m.Role == chat.RoleAssistant {
			if _, _, isDirective := parseToolDirective(text); isDirective {
				continue
			}
		}
		if m.HasImage() {
			if text != "" {
				text += " "
			}
			text += "[image attached]"
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

// parseRouting extracts the "next" value from the model's reply,
// tolerating surrounding code fences and prose.
func parseRouting(reply string) (string, bool) {
	raw := strings.TrimSpace(reply)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	// Tolerate prose around the JSON object.
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var decision struct {
		Next string `json:"next"`
	}
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return "", false
	}
	if decision.Next == "" {
		return "", false
	}
	return decision.Next, true
}
