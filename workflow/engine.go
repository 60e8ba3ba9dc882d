package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Executor dispatches one task to an agent and returns the produced artifact
// ID. The orchestrator supplies it; the engine stays decoupled from agents.
type Executor func(ctx context.Context, agent, skill string, input map[string]any) (string, error)

// TaskResult is the outcome of one task in a phase.
type TaskResult struct {
	Status     PhaseStatus `json:"status"`
	ArtifactID string      `json:"artifact_id,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PhaseResult is the outcome of executing one phase.
type PhaseResult struct {
	Phase  string                `json:"phase"`
	Status PhaseStatus           `json:"status"`
	Tasks  map[string]TaskResult `json:"tasks"`
}

// ReviewResult is the outcome of running a review gate.
type ReviewResult struct {
	Approved   bool   `json:"approved"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunResult is the outcome of driving a workflow to completion. Approved is
// false the moment any phase fails or a review gate rejects.
type RunResult struct {
	Approved bool          `json:"approved"`
	Phases   []PhaseResult `json:"phases"`
}

// Engine drives workflows phase by phase through an Executor. It also keeps
// a registry of named workflows.
type Engine struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	logger    *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		workflows: make(map[string]*Workflow),
		logger:    logger.With(zap.String("component", "workflow_engine")),
	}
}

// RegisterWorkflow stores a workflow under its name.
func (e *Engine) RegisterWorkflow(w *Workflow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflows[w.Name] = w
}

// Workflow returns a registered workflow by name.
func (e *Engine) Workflow(name string) (*Workflow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.workflows[name]
	return w, ok
}

// ExecutePhase runs every task of the current phase. One task's failure
// never aborts its siblings; the phase completes only when all tasks
// succeeded. A phase with a review gate lands in in_review instead of
// completed so the gate can run.
func (e *Engine) ExecutePhase(ctx context.Context, w *Workflow, exec Executor) PhaseResult {
	phase := w.CurrentPhase()
	if phase == nil {
		return PhaseResult{Status: StatusCompleted, Tasks: map[string]TaskResult{}}
	}

	phase.Status = StatusInProgress
	results := make(map[string]TaskResult, len(phase.Tasks))

	for _, task := range phase.Tasks {
		task.Status = StatusInProgress
		artifactID, err := exec(ctx, task.Agent, task.Skill, task.Input)
		if err != nil {
			task.Status = StatusFailed
			results[task.Key()] = TaskResult{Status: StatusFailed, Error: err.Error()}
			e.logger.Warn("task failed",
				zap.String("phase", phase.Name),
				zap.String("task", task.Key()),
				zap.Error(err))
			continue
		}
		task.Status = StatusCompleted
		task.ResultArtifactID = artifactID
		results[task.Key()] = TaskResult{Status: StatusCompleted, ArtifactID: artifactID}
	}

	allSucceeded := true
	for _, task := range phase.Tasks {
		if task.Status != StatusCompleted {
			allSucceeded = false
			break
		}
	}

	switch {
	case allSucceeded && phase.ReviewGate != nil:
		phase.Status = StatusInReview
	case allSucceeded:
		phase.Status = StatusCompleted
	default:
		phase.Status = StatusFailed
	}

	e.logger.Info("phase executed",
		zap.String("phase", phase.Name),
		zap.String("status", string(phase.Status)))
	return PhaseResult{Phase: phase.Name, Status: phase.Status, Tasks: results}
}

// Run drives the workflow until it completes or a phase fails, running each
// phase's review gate along the way. The workflow is approved only if every
// phase completed and every gate passed.
func (e *Engine) Run(ctx context.Context, w *Workflow, exec Executor) RunResult {
	var phases []PhaseResult
	for !w.IsComplete() {
		result := e.ExecutePhase(ctx, w, exec)
		phases = append(phases, result)
		if result.Status == StatusFailed {
			return RunResult{Approved: false, Phases: phases}
		}
		if review := e.RunReview(ctx, w, exec); !review.Approved {
			return RunResult{Approved: false, Phases: phases}
		}
		w.Advance()
	}
	return RunResult{Approved: true, Phases: phases}
}

// RunReview runs the current phase's review gate. A phase without a gate is
// trivially approved. Gate failure means not approved, never a panic across
// the boundary.
func (e *Engine) RunReview(ctx context.Context, w *Workflow, exec Executor) ReviewResult {
	phase := w.CurrentPhase()
	if phase == nil || phase.ReviewGate == nil {
		return ReviewResult{Approved: true}
	}

	gate := phase.ReviewGate
	artifactID, err := exec(ctx, gate.ReviewerAgent, gate.ReviewSkill, map[string]any{
		"target_artifact_type": string(gate.TargetArtifactType),
	})
	if err != nil {
		e.logger.Warn("review gate failed",
			zap.String("phase", phase.Name),
			zap.String("reviewer", gate.ReviewerAgent),
			zap.Error(err))
		return ReviewResult{Approved: false, Error: err.Error()}
	}
	phase.Status = StatusCompleted
	return ReviewResult{Approved: true, ArtifactID: artifactID}
}
