// Package agent implements the supervisor/worker orchestration: a
// finite-state machine that routes each user turn between role-bound
// tool-using workers until the supervisor decides the turn is done.
package agent

import (
	"mcsagent/internal/config"
	"mcsagent/internal/gateway"
	"mcsagent/internal/tools"
)

// BuildGraph assembles the default three-worker graph over a shared tool
// registry.
func BuildGraph(cfg *config.Config, gw gateway.Client, registry *tools.Registry) *Graph {
	vision := SupportsImages(cfg.LLM)
	maxTurns := cfg.Graph.WorkerMaxTurns

	workers := []*Worker{
		NewWorker(WorkerDeveloper, developerPrompt, registry, tools.DeveloperTools, gw, vision, maxTurns),
		NewWorker(WorkerSupport, supportPrompt, registry, tools.SupportTools, gw, vision, maxTurns),
		NewWorker(WorkerScientist, scientistPrompt, registry, tools.ScientistTools, gw, vision, maxTurns),
	}

	supervisor := NewSupervisor(gw, WorkerNames)
	return NewGraph(supervisor, workers, cfg.Graph.MaxSteps)
}
