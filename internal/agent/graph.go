package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mcsagent/internal/chat"
	"mcsagent/internal/gateway"
	"mcsagent/internal/logging"
)

// ErrStepLimit is returned when a turn exhausts the graph's step bound.
// The bound is the only cancellation mechanism inside a turn.
var ErrStepLimit = errors.New("orchestration step limit exceeded")

// resetMessage is surfaced when the gateway reports a corrupted tool-call
// sequence. The history is not auto-repaired; silent repair could drop
// turns unnoticed.
const resetMessage = "The conversation history appears corrupted (incomplete tool-call sequence). Please reset the session to continue."

// Graph is the supervisor/worker state machine. Each Run drives one user
// turn to termination: Supervisor decides, the chosen worker acts, control
// returns to the Supervisor, until Finish or the step bound.
type Graph struct {
	supervisor *Supervisor
	workers    map[string]*Worker
	maxSteps   int
	log        *zap.Logger
}

// NewGraph assembles the state machine. maxSteps <= 0 selects the default
// of 20.
func NewGraph(supervisor *Supervisor, workers []*Worker, maxSteps int) *Graph {
	if maxSteps <= 0 {
		maxSteps = 20
	}
	byName := make(map[string]*Worker, len(workers))
	for _, w := range workers {
		byName[w.Name] = w
	}
	return &Graph{
		supervisor: supervisor,
		workers:    byName,
		maxSteps:   maxSteps,
		log:        logging.Named("graph"),
	}
}

// Run executes one turn to completion, mutating state in place. Worker
// failures terminate the turn with an in-conversation message; only the
// step bound produces an error.
func (g *Graph) Run(ctx context.Context, state *chat.State) error {
	for step := 0; ; step++ {
		if step >= g.maxSteps {
			state.Next = chat.Finish
			return fmt.Errorf("%w (%d steps)", ErrStepLimit, g.maxSteps)
		}

		next := g.supervisor.Decide(ctx, state)
		state.Next = next
		if next == chat.Finish {
			return nil
		}

		worker, ok := g.workers[next]
		if !ok {
			// Decide validates against the closed set, so this is a wiring
			// bug; terminate rather than loop.
			g.log.Error("routed to unknown worker", zap.String("next", next))
			state.Next = chat.Finish
			return nil
		}

		step++
		if step >= g.maxSteps {
			state.Next = chat.Finish
			return fmt.Errorf("%w (%d steps)", ErrStepLimit, g.maxSteps)
		}

		produced, err := worker.Run(ctx, state.Messages)
		if err != nil {
			if gateway.IsSessionCorruption(err) {
				g.log.Warn("session corruption detected", zap.Error(err))
				state.Append(chat.Assistant(resetMessage))
			} else {
				g.log.Warn("worker failed", zap.String("worker", next), zap.Error(err))
				state.Append(chat.Assistant(fmt.Sprintf("**[%s]**\n\nAn error occurred while handling the request: %v", next, err)))
			}
			state.Next = chat.Finish
			return nil
		}
		state.Append(produced...)
	}
}

// Runner owns per-session conversation state and the turn boundary. All
// failures inside a turn, including panics, surface as an in-conversation
// message; the hosting process never crashes on a bad turn.
type Runner struct {
	mu       sync.Mutex
	graph    *Graph
	sessions map[string]*chat.State
	log      *zap.Logger
}

// NewRunner creates a runner over the graph.
func NewRunner(graph *Graph) *Runner {
	return &Runner{
		graph:    graph,
		sessions: make(map[string]*chat.State),
		log:      logging.Named("runner"),
	}
}

// Turn appends the user message to the session's history, runs the graph
// to completion, and returns the last assistant text. A new session id
// starts an empty history.
func (r *Runner) Turn(ctx context.Context, sessionID string, userMsg chat.Message) (reply string, err error) {
	r.mu.Lock()
	state, ok := r.sessions[sessionID]
	if !ok {
		state = &chat.State{}
		r.sessions[sessionID] = state
	}
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in turn", zap.Any("panic", rec))
			reply = fmt.Sprintf("An internal error occurred: %v", rec)
			err = nil
		}
	}()

	state.Append(userMsg)

	if runErr := r.graph.Run(ctx, state); runErr != nil {
		if errors.Is(runErr, ErrStepLimit) {
			msg := "The request could not be completed within the allowed number of steps."
			state.Append(chat.Assistant(msg))
			return msg, nil
		}
		return "", runErr
	}

	if reply = state.LastAssistantText(); reply == "" {
		reply = "I could not determine how to help with that request."
	}
	return reply, nil
}

// Reset drops the state for a session id. The caller issues a fresh id for
// the replacement session.
func (r *Runner) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// History returns a copy of the session's messages.
func (r *Runner) History(sessionID string) []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(state.Messages))
	copy(out, state.Messages)
	return out
}
