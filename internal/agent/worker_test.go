package agent

import (
	"context"
	"strings"
	"testing"

	"mcsagent/internal/chat"
	"mcsagent/internal/tools"
)

func echoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.MustRegister(&tools.Tool{
		Name:        "echo",
		Description: "Echo the input back",
		Category:    tools.CategoryCode,
		Schema: tools.ToolSchema{
			Required:   []string{"text"},
			Properties: map[string]tools.Property{"text": {Type: "string", Description: "text to echo"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "echo: " + tools.StringArg(args, "text"), nil
		},
	})
	return reg
}

func newTestWorker(t *testing.T, gw *scriptedGateway, maxTurns int) *Worker {
	t.Helper()
	return NewWorker("Developer", "You are the Developer.", echoRegistry(t), []string{"echo"}, gw, true, maxTurns)
}

func TestWorkerReturnsOnlySuffix(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"done with the task"}}
	w := newTestWorker(t, gw, 5)

	history := []chat.Message{chat.User("first"), chat.Assistant("earlier"), chat.User("do it")}
	produced, err := w.Run(context.Background(), history)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(produced) != 1 {
		t.Fatalf("produced %d messages, want 1 (history must not be echoed back)", len(produced))
	}
	if produced[0].Role != chat.RoleAssistant {
		t.Errorf("produced role = %q", produced[0].Role)
	}
}

func TestWorkerTagsFinalAnswer(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"all done"}}
	w := newTestWorker(t, gw, 5)

	produced, err := w.Run(context.Background(), []chat.Message{chat.User("go")})
	if err != nil {
		t.Fatal(err)
	}
	got := produced[len(produced)-1].PlainText()
	if got != "**[Developer]**\n\nall done" {
		t.Errorf("final = %q", got)
	}
}

func TestWorkerTagIsIdempotent(t *testing.T) {
	// The model may echo the tag itself; it must not be doubled.
	gw := &scriptedGateway{replies: []string{"**[Developer]**\n\nalready tagged"}}
	w := newTestWorker(t, gw, 5)

	produced, err := w.Run(context.Background(), []chat.Message{chat.User("go")})
	if err != nil {
		t.Fatal(err)
	}
	got := produced[len(produced)-1].PlainText()
	if strings.Count(got, "**[Developer]**") != 1 {
		t.Errorf("identity tag doubled: %q", got)
	}
}

func TestWorkerExecutesToolDirective(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		`TOOL echo {"text": "hello"}`,
		"finished",
	}}
	w := newTestWorker(t, gw, 5)

	produced, err := w.Run(context.Background(), []chat.Message{chat.User("echo hello")})
	if err != nil {
		t.Fatal(err)
	}
	// Directive turn, tool result, final answer.
	if len(produced) != 3 {
		t.Fatalf("produced %d messages, want 3: %+v", len(produced), produced)
	}
	if produced[1].Role != chat.RoleTool || produced[1].PlainText() != "echo: hello" {
		t.Errorf("tool result = %+v", produced[1])
	}
	if !strings.HasSuffix(produced[2].PlainText(), "finished") {
		t.Errorf("final = %q", produced[2].PlainText())
	}
}

func TestWorkerDisallowedToolBecomesText(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		`TOOL forbidden {"x": 1}`,
		"ok then",
	}}
	w := newTestWorker(t, gw, 5)

	produced, err := w.Run(context.Background(), []chat.Message{chat.User("go")})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(produced[1].PlainText(), "not available") {
		t.Errorf("tool result = %q, want a not-available message", produced[1].PlainText())
	}
}

func TestWorkerLoopBound(t *testing.T) {
	// The model never stops calling tools; the loop must terminate with a
	// final message instead of spinning.
	replies := make([]string, 20)
	for i := range replies {
		replies[i] = `TOOL echo {"text": "again"}`
	}
	gw := &scriptedGateway{replies: replies}
	w := newTestWorker(t, gw, 3)

	produced, err := w.Run(context.Background(), []chat.Message{chat.User("go")})
	if err != nil {
		t.Fatal(err)
	}
	if gw.calls != 3 {
		t.Errorf("gateway calls = %d, want 3 (the bound)", gw.calls)
	}
	last := produced[len(produced)-1]
	if last.Role != chat.RoleAssistant || !strings.HasPrefix(last.PlainText(), "**[Developer]**") {
		t.Errorf("last message = %+v, want a tagged assistant fallback", last)
	}
}

func TestParseToolDirective(t *testing.T) {
	tests := []struct {
		give     string
		wantName string
		wantOK   bool
	}{
		{`TOOL echo {"text": "hi"}`, "echo", true},
		{"  TOOL echo {}", "echo", true},
		{"```\nTOOL echo {\"text\": \"hi\"}\n```", "echo", true},
		{"TOOL echo", "echo", true},
		{"plain final answer", "", false},
		{"the TOOL keyword mid-sentence", "", false},
	}
	for _, tt := range tests {
		name, _, ok := parseToolDirective(tt.give)
		if ok != tt.wantOK || name != tt.wantName {
			t.Errorf("parseToolDirective(%q) = %q,%v want %q,%v", tt.give, name, ok, tt.wantName, tt.wantOK)
		}
	}
}
