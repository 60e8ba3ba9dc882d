// Package workflow models the phased development pipeline: ordered phases of
// agent tasks with optional review gates between them.
package workflow

import (
	"fmt"

	"github.com/codecrew-ai/codecrew/types"
)

// PhaseStatus is the lifecycle status of a phase or task.
type PhaseStatus string

const (
	StatusPending    PhaseStatus = "pending"
	StatusInProgress PhaseStatus = "in_progress"
	StatusInReview   PhaseStatus = "in_review"
	StatusCompleted  PhaseStatus = "completed"
	StatusFailed     PhaseStatus = "failed"
)

// Task is a single unit of work within a phase: one skill executed by one
// agent.
type Task struct {
	Agent            string
	Skill            string
	Input            map[string]any
	Status           PhaseStatus
	ResultArtifactID string
}

// Key identifies a task within its phase as "agent.skill".
func (t Task) Key() string {
	return fmt.Sprintf("%s.%s", t.Agent, t.Skill)
}

// ReviewGate is a review checkpoint at the end of a phase.
type ReviewGate struct {
	ReviewerAgent      string
	ReviewSkill        string
	TargetArtifactType types.ArtifactType
	MaxIterations      int
}

// Phase is an ordered group of tasks that execute together.
type Phase struct {
	Name       string
	Tasks      []*Task
	ReviewGate *ReviewGate
	Status     PhaseStatus
}

// NewPhase creates an empty pending phase.
func NewPhase(name string) *Phase {
	return &Phase{Name: name, Status: StatusPending}
}

// AddTask appends a task to the phase and returns it.
func (p *Phase) AddTask(agent, skill string, input map[string]any) *Task {
	if input == nil {
		input = map[string]any{}
	}
	t := &Task{Agent: agent, Skill: skill, Input: input, Status: StatusPending}
	p.Tasks = append(p.Tasks, t)
	return t
}

// Workflow is a named sequence of phases with a cursor over them.
type Workflow struct {
	Name   string
	Phases []*Phase
	cursor int
}

// NewWorkflow creates an empty workflow.
func NewWorkflow(name string) *Workflow {
	return &Workflow{Name: name}
}

// AddPhase appends a phase.
func (w *Workflow) AddPhase(p *Phase) {
	w.Phases = append(w.Phases, p)
}

// CurrentPhase returns the phase under the cursor, or nil when the workflow
// is complete.
func (w *Workflow) CurrentPhase() *Phase {
	if w.cursor >= 0 && w.cursor < len(w.Phases) {
		return w.Phases[w.cursor]
	}
	return nil
}

// Advance moves the cursor to the next phase and returns it, or nil when the
// workflow just completed.
func (w *Workflow) Advance() *Phase {
	w.cursor++
	return w.CurrentPhase()
}

// IsComplete reports whether the cursor has moved past the last phase.
// An empty workflow is complete.
func (w *Workflow) IsComplete() bool {
	return w.cursor >= len(w.Phases)
}

// DefaultWorkflow builds the standard four-phase development pipeline:
// requirements, design, implementation, testing, each closed by a review
// gate.
func DefaultWorkflow() *Workflow {
	w := NewWorkflow("default_sdlc")

	p1 := NewPhase("requirements")
	p1.AddTask("product_manager", "requirement_analysis", nil)
	p1.AddTask("product_manager", "user_story_writing", nil)
	p1.AddTask("product_manager", "product_design", nil)
	p1.ReviewGate = &ReviewGate{
		ReviewerAgent:      "product_manager",
		ReviewSkill:        "product_review",
		TargetArtifactType: types.ArtifactPRD,
		MaxIterations:      3,
	}
	w.AddPhase(p1)

	p2 := NewPhase("design")
	p2.AddTask("architect", "system_design", nil)
	p2.AddTask("architect", "api_design", nil)
	p2.AddTask("architect", "tech_stack_selection", nil)
	p2.ReviewGate = &ReviewGate{
		ReviewerAgent:      "architect",
		ReviewSkill:        "architecture_review",
		TargetArtifactType: types.ArtifactArchitectureDesign,
		MaxIterations:      3,
	}
	w.AddPhase(p2)

	p3 := NewPhase("implementation")
	p3.AddTask("developer", "code_generation", nil)
	p3.AddTask("developer", "unit_test_writing", nil)
	p3.ReviewGate = &ReviewGate{
		ReviewerAgent:      "developer",
		ReviewSkill:        "code_review",
		TargetArtifactType: types.ArtifactSourceCode,
		MaxIterations:      3,
	}
	w.AddPhase(p3)

	p4 := NewPhase("testing")
	p4.AddTask("qa_engineer", "test_plan_design", nil)
	p4.AddTask("qa_engineer", "test_case_design", nil)
	p4.AddTask("qa_engineer", "test_automation", nil)
	p4.ReviewGate = &ReviewGate{
		ReviewerAgent:      "qa_engineer",
		ReviewSkill:        "test_review",
		TargetArtifactType: types.ArtifactAutomatedTests,
		MaxIterations:      3,
	}
	w.AddPhase(p4)

	return w
}
