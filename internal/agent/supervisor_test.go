package agent

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"mcsagent/internal/chat"
	"mcsagent/internal/gateway"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (indirect, via google.golang.org/genai) starts a
	// worker goroutine in package init that never exits.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// scriptedGateway returns canned replies in order; an empty script yields
// "ok" forever. err, when set, fails every call.
type scriptedGateway struct {
	replies  []string
	err      error
	calls    int
	requests []gateway.Request
}

func (g *scriptedGateway) Model() string { return "test-model" }

func (g *scriptedGateway) Complete(ctx context.Context, req gateway.Request) (chat.Message, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return chat.Message{}, g.err
	}
	reply := "ok"
	if g.calls < len(g.replies) {
		reply = g.replies[g.calls]
	}
	g.calls++
	return chat.Assistant(reply), nil
}

func stateWith(msgs ...chat.Message) *chat.State {
	s := &chat.State{}
	s.Append(msgs...)
	return s
}

func TestDecideRoutesToWorker(t *testing.T) {
	gw := &scriptedGateway{replies: []string{`{"next": "Developer"}`}}
	sup := NewSupervisor(gw, WorkerNames)

	next := sup.Decide(context.Background(), stateWith(chat.User("write a plugin")))
	if next != WorkerDeveloper {
		t.Errorf("Decide = %q, want Developer", next)
	}
}

func TestDecideMalformedJSONDefaultsToFinish(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Developer sounds right"},
		{"wrong key", `{"worker": "Developer"}`},
		{"unknown worker", `{"next": "Manager"}`},
		{"lowercase worker", `{"next": "developer"}`},
		{"empty value", `{"next": ""}`},
		{"partial json", `{"next": "Deve`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []string{tt.reply}}
			sup := NewSupervisor(gw, WorkerNames)
			if next := sup.Decide(context.Background(), stateWith(chat.User("hi"))); next != chat.Finish {
				t.Errorf("Decide = %q, want Finish", next)
			}
		})
	}
}

func TestDecideTolerantParsing(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"code fence", "```json\n{\"next\": \"Support\"}\n```", WorkerSupport},
		{"surrounding prose", `Sure. {"next": "Scientist"} as requested.`, WorkerScientist},
		{"finish", `{"next": "FINISH"}`, chat.Finish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &scriptedGateway{replies: []string{tt.reply}}
			sup := NewSupervisor(gw, WorkerNames)
			if next := sup.Decide(context.Background(), stateWith(chat.User("hi"))); next != tt.want {
				t.Errorf("Decide = %q, want %q", next, tt.want)
			}
		})
	}
}

func TestDecideGatewayErrorDefaultsToFinish(t *testing.T) {
	gw := &scriptedGateway{err: errors.New("boom")}
	sup := NewSupervisor(gw, WorkerNames)
	if next := sup.Decide(context.Background(), stateWith(chat.User("hi"))); next != chat.Finish {
		t.Errorf("Decide = %q, want Finish", next)
	}
}

func TestCompactTranscript(t *testing.T) {
	msgs := []chat.Message{
		chat.System("you are a router"),
		chat.User("hello"),
		chat.ToolResult("search_web", "noise"),
		chat.Assistant("hi there"),
		chat.UserWithImage("look at this", "image/png", "base64data"),
	}

	got := compactTranscript(msgs)
	want := "user: hello\nassistant: hi there\nuser: look at this [image attached]"
	if got != want {
		t.Errorf("compactTranscript =\n%q\nwant\n%q", got, want)
	}
}

func TestCompactTranscriptDropsToolDirectives(t *testing.T) {
	msgs := []chat.Message{
		chat.User("index the docs"),
		chat.Assistant(`TOOL update_knowledge_base_from_files {"paths": "docs"}`),
		chat.ToolResult("update_knowledge_base_from_files", "docs: indexed 3 chunks"),
		chat.Assistant("**[Scientist]**\n\nIndexed the docs directory."),
	}

	got := compactTranscript(msgs)
	want := "user: index the docs\nassistant: **[Scientist]**\n\nIndexed the docs directory."
	if got != want {
		t.Errorf("compactTranscript =\n%q\nwant\n%q", got, want)
	}
}
