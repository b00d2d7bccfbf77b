package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mcsagent/internal/chat"
	"mcsagent/internal/config"
	"mcsagent/internal/knowledge"
	"mcsagent/internal/tools"
)

func newTestGraph(t *testing.T, gw *scriptedGateway, maxSteps int) *Graph {
	t.Helper()
	reg := echoRegistry(t)
	workers := []*Worker{
		NewWorker(WorkerDeveloper, "dev", reg, []string{"echo"}, gw, true, 5),
		NewWorker(WorkerSupport, "sup", reg, []string{"echo"}, gw, true, 5),
		NewWorker(WorkerScientist, "sci", reg, []string{"echo"}, gw, true, 5),
	}
	return NewGraph(NewSupervisor(gw, WorkerNames), workers, maxSteps)
}

func TestGraphRoutesWorkerThenFinishes(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		`{"next": "Developer"}`, // supervisor
		"task complete",         // worker final answer
		`{"next": "FINISH"}`,    // supervisor again
	}}
	g := newTestGraph(t, gw, 20)

	state := stateWith(chat.User("do something"))
	if err := g.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Next != chat.Finish {
		t.Errorf("Next = %q, want Finish", state.Next)
	}
	if got := state.LastAssistantText(); !strings.Contains(got, "task complete") {
		t.Errorf("last assistant = %q", got)
	}
}

func TestGraphStepBound(t *testing.T) {
	// Supervisor routes forever; workers always answer. The bound must cut
	// the conversation off with ErrStepLimit.
	replies := make([]string, 0, 40)
	for i := 0; i < 20; i++ {
		replies = append(replies, `{"next": "Developer"}`, "working on it")
	}
	gw := &scriptedGateway{replies: replies}
	g := newTestGraph(t, gw, 6)

	state := stateWith(chat.User("loop"))
	err := g.Run(context.Background(), state)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("Run error = %v, want ErrStepLimit", err)
	}
	if state.Next != chat.Finish {
		t.Errorf("Next = %q, want Finish after bound", state.Next)
	}
}

func TestGraphMalformedRoutingTerminates(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"I think the Developer should handle this"}}
	g := newTestGraph(t, gw, 20)

	state := stateWith(chat.User("hi"))
	if err := g.Run(context.Background(), state); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.Next != chat.Finish {
		t.Errorf("Next = %q, want Finish", state.Next)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1 (no retry on malformed routing)", gw.calls)
	}
}

func TestGraphWorkerErrorSurfacesInConversation(t *testing.T) {
	gw := &scriptedGateway{replies: []string{`{"next": "Support"}`}}
	// After the routing reply, fail every call.
	failing := &scriptedGateway{err: errors.New("connection refused")}
	reg := echoRegistry(t)
	workers := []*Worker{NewWorker(WorkerSupport, "sup", reg, []string{"echo"}, failing, true, 5)}
	g := NewGraph(NewSupervisor(gw, []string{WorkerSupport}), workers, 20)

	state := stateWith(chat.User("hi"))
	if err := g.Run(context.Background(), state); err != nil {
		t.Fatalf("Run must not propagate worker errors, got %v", err)
	}
	if got := state.LastAssistantText(); !strings.Contains(got, "error occurred") {
		t.Errorf("last assistant = %q, want an in-conversation error message", got)
	}
}

func TestGraphSessionCorruptionAsksForReset(t *testing.T) {
	gw := &scriptedGateway{replies: []string{`{"next": "Support"}`}}
	corrupting := &scriptedGateway{err: errors.New("invalid request: insufficient tool messages after tool_calls")}
	reg := echoRegistry(t)
	workers := []*Worker{NewWorker(WorkerSupport, "sup", reg, []string{"echo"}, corrupting, true, 5)}
	g := NewGraph(NewSupervisor(gw, []string{WorkerSupport}), workers, 20)

	state := stateWith(chat.User("hi"))
	if err := g.Run(context.Background(), state); err != nil {
		t.Fatal(err)
	}
	if got := state.LastAssistantText(); !strings.Contains(got, "reset the session") {
		t.Errorf("last assistant = %q, want a reset instruction", got)
	}
}

func TestRunnerTurnAccumulatesHistory(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		`{"next": "Developer"}`, "first answer", `{"next": "FINISH"}`,
		`{"next": "Developer"}`, "second answer", `{"next": "FINISH"}`,
	}}
	runner := NewRunner(newTestGraph(t, gw, 20))

	reply, err := runner.Turn(context.Background(), "sess-1", chat.User("one"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply, "first answer") {
		t.Errorf("reply = %q", reply)
	}

	if _, err := runner.Turn(context.Background(), "sess-1", chat.User("two")); err != nil {
		t.Fatal(err)
	}

	hist := runner.History("sess-1")
	if len(hist) != 4 {
		t.Errorf("history length = %d, want 4 (two user turns, two answers)", len(hist))
	}

	runner.Reset("sess-1")
	if runner.History("sess-1") != nil {
		t.Error("history survived Reset")
	}
}

func TestRunnerStepLimitBecomesMessage(t *testing.T) {
	replies := make([]string, 0, 40)
	for i := 0; i < 20; i++ {
		replies = append(replies, `{"next": "Developer"}`, "still going")
	}
	gw := &scriptedGateway{replies: replies}
	runner := NewRunner(newTestGraph(t, gw, 4))

	reply, err := runner.Turn(context.Background(), "sess-2", chat.User("loop"))
	if err != nil {
		t.Fatalf("step limit must surface as a message, got error %v", err)
	}
	if !strings.Contains(reply, "allowed number of steps") {
		t.Errorf("reply = %q", reply)
	}
}

func TestToolsetsReferenceRegisteredNames(t *testing.T) {
	// Role toolsets must not drift from the registered tool names.
	reg := tools.NewDefaultRegistry(knowledge.NewManager(config.DefaultConfig(), nil, nil))
	for _, set := range [][]string{tools.DeveloperTools, tools.SupportTools, tools.ScientistTools} {
		for _, name := range set {
			if !reg.Has(name) {
				t.Errorf("toolset references unregistered tool %q", name)
			}
		}
	}
}
