// Package orchestrator coordinates the agent team: it owns the canonical
// bus, artifact store, and workflow engine, routes tasks to agents, and
// drives workflows phase by phase.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/agent"
	"github.com/codecrew-ai/codecrew/bus"
	"github.com/codecrew-ai/codecrew/internal/metrics"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
	"github.com/codecrew-ai/codecrew/workflow"
)

// RoutingStrategy selects among same-role agents in ExecuteTaskAutoRoute.
type RoutingStrategy string

const (
	RouteRoundRobin RoutingStrategy = "round_robin"
	RouteLoadBased  RoutingStrategy = "load_based"
)

type routingState struct {
	roundRobinIndex int
	loadCounts      map[string]int
}

// Orchestrator owns the shared collaboration state. All registries are
// explicit fields; there is no package-level ambient state.
type Orchestrator struct {
	Bus    *bus.MessageBus
	Store  store.Store
	Engine *workflow.Engine

	mu      sync.RWMutex
	agents  map[string]*agent.Agent
	order   []string // registration order, for deterministic role routing
	routing map[types.AgentRole]*routingState

	metrics *metrics.Collector
	logger  *zap.Logger
}

// New creates an orchestrator around the given store. A nil store gets an
// in-memory one; metrics may be nil.
func New(st store.Store, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	b := bus.NewMessageBus(logger)
	b.SetCollector(collector)
	o := &Orchestrator{
		Bus:     b,
		Store:   st,
		Engine:  workflow.NewEngine(logger),
		agents:  make(map[string]*agent.Agent),
		routing: make(map[types.AgentRole]*routingState),
		metrics: collector,
		logger:  logger.With(zap.String("component", "orchestrator")),
	}
	o.logger.Info("orchestrator initialized")
	return o
}

// RegisterAgent adds an agent to the team, replacing any agent with the same
// name.
func (o *Orchestrator) RegisterAgent(a *agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.agents[a.Name()]; !exists {
		o.order = append(o.order, a.Name())
	}
	o.agents[a.Name()] = a
	o.logger.Info("agent registered",
		zap.String("agent", a.Name()),
		zap.String("role", string(a.Role())))
}

// Agent returns a registered agent by name.
func (o *Orchestrator) Agent(name string) (*agent.Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[name]
	return a, ok
}

// AgentsByRole returns all agents with the given role, in registration order.
func (o *Orchestrator) AgentsByRole(role types.AgentRole) []*agent.Agent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var matched []*agent.Agent
	for _, name := range o.order {
		if a := o.agents[name]; a.Role() == role {
			matched = append(matched, a)
		}
	}
	return matched
}

// ExecuteTask runs one skill on one named agent and returns the produced
// artifact ID.
func (o *Orchestrator) ExecuteTask(ctx context.Context, agentName, skillName string, input map[string]any, projectName string) (string, error) {
	a, ok := o.Agent(agentName)
	if !ok {
		return "", types.NewError(types.ErrUnknownAgent,
			"no agent registered with name '"+agentName+"'")
	}

	start := time.Now()
	artifact, err := a.ExecuteSkill(ctx, skillName, projectName, input)
	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordSkillExecution(agentName, skillName, status, time.Since(start))
	}
	if err != nil {
		return "", err
	}
	if o.metrics != nil {
		o.metrics.RecordArtifactStored(string(artifact.Type))
	}
	o.logger.Info("task completed",
		zap.String("agent", agentName),
		zap.String("skill", skillName),
		zap.String("artifact_id", artifact.ID))
	return artifact.ID, nil
}

// ExecuteTaskAutoRoute runs a skill on any agent of the given role, selected
// by the routing strategy. An unknown strategy falls back to round robin.
func (o *Orchestrator) ExecuteTaskAutoRoute(ctx context.Context, role types.AgentRole, skillName string, input map[string]any, projectName string, strategy RoutingStrategy) (string, error) {
	candidates := o.AgentsByRole(role)
	if len(candidates) == 0 {
		return "", types.NewError(types.ErrUnknownAgent,
			"no agents available for role '"+string(role)+"'")
	}

	selected := o.selectAgent(candidates, role, strategy)
	o.logger.Info("auto route selected",
		zap.String("role", string(role)),
		zap.String("strategy", string(strategy)),
		zap.String("agent", selected.Name()),
		zap.String("skill", skillName))
	return o.ExecuteTask(ctx, selected.Name(), skillName, input, projectName)
}

func (o *Orchestrator) selectAgent(candidates []*agent.Agent, role types.AgentRole, strategy RoutingStrategy) *agent.Agent {
	if len(candidates) == 1 {
		return candidates[0]
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.routing[role]
	if !ok {
		state = &routingState{loadCounts: make(map[string]int)}
		o.routing[role] = state
	}

	switch strategy {
	case RouteLoadBased:
		selected := candidates[0]
		for _, a := range candidates[1:] {
			if state.loadCounts[a.Name()] < state.loadCounts[selected.Name()] {
				selected = a
			}
		}
		state.loadCounts[selected.Name()]++
		return selected
	default: // round robin, also for unknown strategies
		selected := candidates[state.roundRobinIndex%len(candidates)]
		state.roundRobinIndex = (state.roundRobinIndex + 1) % len(candidates)
		return selected
	}
}

// RunWorkflow drives a workflow to completion: each phase's tasks get the
// project input merged under their own input, the phase executes, its review
// gate runs, and the run stops early on a failed phase or a rejected review.
func (o *Orchestrator) RunWorkflow(ctx context.Context, w *workflow.Workflow, projectInput map[string]any, projectName string) []workflow.PhaseResult {
	var results []workflow.PhaseResult
	exec := func(ctx context.Context, agentName, skillName string, input map[string]any) (string, error) {
		return o.ExecuteTask(ctx, agentName, skillName, input, projectName)
	}

	o.logger.Info("workflow run started",
		zap.String("workflow", w.Name),
		zap.String("project", projectName))

	for !w.IsComplete() {
		phase := w.CurrentPhase()
		if phase == nil {
			break
		}

		for _, task := range phase.Tasks {
			merged := make(map[string]any, len(projectInput)+len(task.Input))
			for k, v := range projectInput {
				merged[k] = v
			}
			for k, v := range task.Input {
				merged[k] = v
			}
			task.Input = merged
		}

		result := o.Engine.ExecutePhase(ctx, w, exec)
		results = append(results, result)
		if o.metrics != nil {
			o.metrics.RecordPhaseExecuted(result.Phase, string(result.Status))
		}
		if result.Status == workflow.StatusFailed {
			o.logger.Warn("workflow stopped on failed phase",
				zap.String("workflow", w.Name),
				zap.String("phase", result.Phase))
			break
		}

		if phase.ReviewGate != nil {
			review := o.Engine.RunReview(ctx, w, exec)
			if !review.Approved {
				o.logger.Warn("workflow stopped on rejected review",
					zap.String("workflow", w.Name),
					zap.String("phase", phase.Name),
					zap.String("error", review.Error))
				break
			}
		}

		w.Advance()
	}

	o.logger.Info("workflow run finished",
		zap.String("workflow", w.Name),
		zap.Int("phases", len(results)))
	return results
}

// RunDefaultWorkflow runs the standard four-phase pipeline.
func (o *Orchestrator) RunDefaultWorkflow(ctx context.Context, projectInput map[string]any, projectName string) []workflow.PhaseResult {
	return o.RunWorkflow(ctx, workflow.DefaultWorkflow(), projectInput, projectName)
}
