package tools

import (
	"context"
	"testing"

	"mcsagent/internal/session"
)

func TestMemoryToolsWithoutActiveSession(t *testing.T) {
	session.Reset()
	t.Cleanup(session.Reset)

	reg := NewRegistry()
	RegisterMemoryTools(reg)

	for _, call := range []struct {
		name string
		args map[string]any
	}{
		{"save_memory", map[string]any{"key": "color", "value": "blue"}},
		{"read_memory", map[string]any{"key": "color"}},
		{"list_memories", map[string]any{}},
	} {
		res, err := reg.Execute(context.Background(), call.name, call.args)
		if err != nil {
			t.Fatalf("%s returned error %v, want sentinel text", call.name, err)
		}
		if res.Result != ContextNotActive {
			t.Errorf("%s = %q, want %q", call.name, res.Result, ContextNotActive)
		}
	}
}

func TestMemoryToolsRoundTrip(t *testing.T) {
	session.Install(session.New("op"))
	t.Cleanup(session.Reset)

	reg := NewRegistry()
	RegisterMemoryTools(reg)
	ctx := context.Background()

	if _, err := reg.Execute(ctx, "save_memory", map[string]any{"key": "color", "value": "blue"}); err != nil {
		t.Fatalf("save_memory: %v", err)
	}

	res, err := reg.Execute(ctx, "read_memory", map[string]any{"key": "color"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != "blue" {
		t.Errorf("read_memory(color) = %q, want %q", res.Result, "blue")
	}

	res, err = reg.Execute(ctx, "read_memory", map[string]any{"key": "size"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != session.MemoryNotFound {
		t.Errorf("read_memory(size) = %q, want the not-found sentinel", res.Result)
	}

	res, err = reg.Execute(ctx, "list_memories", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != "Stored memory keys: color" {
		t.Errorf("list_memories = %q", res.Result)
	}
}
