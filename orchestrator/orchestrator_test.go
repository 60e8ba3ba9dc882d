package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecrew-ai/codecrew/agent"
	"github.com/codecrew-ai/codecrew/llm"
	"github.com/codecrew-ai/codecrew/types"
	"github.com/codecrew-ai/codecrew/workflow"
)

func newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(nil, nil, nil)
}

func addAgent(t *testing.T, o *Orchestrator, name string, role types.AgentRole) *agent.Agent {
	t.Helper()
	client := llm.NewStaticClient(llm.ModelConfig{Provider: "offline", Model: "static-1"})
	a := agent.New(name, role, o.Bus, o.Store, client, nil)
	o.RegisterAgent(a)
	return a
}

func defaultTeam(t *testing.T, o *Orchestrator) {
	t.Helper()
	addAgent(t, o, "product_manager", types.RoleProductManager)
	addAgent(t, o, "architect", types.RoleArchitect)
	addAgent(t, o, "developer", types.RoleDeveloper)
	addAgent(t, o, "qa_engineer", types.RoleQAEngineer)
}

func TestRegisterAgent_AndLookup(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "pm-1", types.RoleProductManager)
	addAgent(t, o, "dev-1", types.RoleDeveloper)
	addAgent(t, o, "dev-2", types.RoleDeveloper)

	a, ok := o.Agent("dev-1")
	require.True(t, ok)
	assert.Equal(t, types.RoleDeveloper, a.Role())

	_, ok = o.Agent("ghost")
	assert.False(t, ok)

	devs := o.AgentsByRole(types.RoleDeveloper)
	require.Len(t, devs, 2)
	assert.Equal(t, "dev-1", devs[0].Name())
	assert.Equal(t, "dev-2", devs[1].Name())
}

func TestExecuteTask_UnknownAgent(t *testing.T) {
	o := newOrchestrator(t)
	_, err := o.ExecuteTask(context.Background(), "ghost", "requirement_analysis", nil, "demo")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgent))
}

func TestExecuteTask_ProducesArtifact(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "pm-1", types.RoleProductManager)

	id, err := o.ExecuteTask(context.Background(), "pm-1", "requirement_analysis",
		map[string]any{"raw_requirements": "Users can log in"}, "demo")
	require.NoError(t, err)

	stored, ok := o.Store.Get(id)
	require.True(t, ok)
	assert.Equal(t, types.ArtifactRequirements, stored.Type)
}

func TestExecuteTaskAutoRoute_RoundRobin(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "dev-1", types.RoleDeveloper)
	addAgent(t, o, "dev-2", types.RoleDeveloper)

	producers := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := o.ExecuteTaskAutoRoute(context.Background(), types.RoleDeveloper,
			"code_generation", map[string]any{}, "demo", RouteRoundRobin)
		require.NoError(t, err)
		a, _ := o.Store.Get(id)
		producers = append(producers, a.Producer)
	}
	assert.Equal(t, []string{"dev-1", "dev-2", "dev-1", "dev-2"}, producers)
}

func TestExecuteTaskAutoRoute_LoadBased(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "dev-1", types.RoleDeveloper)
	addAgent(t, o, "dev-2", types.RoleDeveloper)

	counts := map[string]int{}
	for i := 0; i < 6; i++ {
		id, err := o.ExecuteTaskAutoRoute(context.Background(), types.RoleDeveloper,
			"code_generation", map[string]any{}, "demo", RouteLoadBased)
		require.NoError(t, err)
		a, _ := o.Store.Get(id)
		counts[a.Producer]++
	}
	assert.Equal(t, 3, counts["dev-1"])
	assert.Equal(t, 3, counts["dev-2"])
}

func TestExecuteTaskAutoRoute_NoAgents(t *testing.T) {
	o := newOrchestrator(t)
	_, err := o.ExecuteTaskAutoRoute(context.Background(), types.RoleDeveloper,
		"code_generation", nil, "demo", RouteRoundRobin)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownAgent))
}

func TestRunWorkflow_DefaultPipelineCompletes(t *testing.T) {
	o := newOrchestrator(t)
	defaultTeam(t, o)

	w := workflow.DefaultWorkflow()
	results := o.RunWorkflow(context.Background(), w,
		map[string]any{
			"raw_requirements": "Users can log in\nUsers can log out",
			"target_users":     "registered members",
		}, "demo")

	require.Len(t, results, 4)
	assert.True(t, w.IsComplete())
	for _, r := range results {
		// each phase is in_review after tasks, completed by its gate
		assert.NotEqual(t, workflow.StatusFailed, r.Status, r.Phase)
	}

	// the pipeline actually produced the downstream artifacts
	_, ok := o.Store.Latest(types.ArtifactSystemDesign)
	assert.True(t, ok)
	_, ok = o.Store.Latest(types.ArtifactAutomatedTests)
	assert.True(t, ok)
}

func TestRunWorkflow_StopsOnFailedPhase(t *testing.T) {
	o := newOrchestrator(t)
	defaultTeam(t, o)

	w := workflow.NewWorkflow("broken")
	p1 := workflow.NewPhase("reqs")
	// missing required target_users field makes this task fail validation
	p1.AddTask("product_manager", "user_story_writing", nil)
	w.AddPhase(p1)
	p2 := workflow.NewPhase("design")
	p2.AddTask("architect", "system_design", nil)
	w.AddPhase(p2)

	results := o.RunWorkflow(context.Background(), w, map[string]any{}, "demo")
	require.Len(t, results, 1)
	assert.Equal(t, workflow.StatusFailed, results[0].Status)
	assert.False(t, w.IsComplete())
}

func TestRunWorkflow_StopsOnRejectedReview(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "product_manager", types.RoleProductManager)

	w := workflow.NewWorkflow("gated")
	p := workflow.NewPhase("reqs")
	p.AddTask("product_manager", "requirement_analysis", nil)
	// reviewer agent is not registered, so the gate fails
	p.ReviewGate = &workflow.ReviewGate{
		ReviewerAgent: "ghost",
		ReviewSkill:   "product_review",
	}
	w.AddPhase(p)
	p2 := workflow.NewPhase("design")
	w.AddPhase(p2)

	results := o.RunWorkflow(context.Background(), w,
		map[string]any{"raw_requirements": "Users can log in"}, "demo")
	require.Len(t, results, 1)
	assert.False(t, w.IsComplete())
}

func TestRunWorkflow_InjectsProjectInput(t *testing.T) {
	o := newOrchestrator(t)
	addAgent(t, o, "product_manager", types.RoleProductManager)

	w := workflow.NewWorkflow("inject")
	p := workflow.NewPhase("reqs")
	task := p.AddTask("product_manager", "requirement_analysis",
		map[string]any{"raw_requirements": "task-level wins"})
	w.AddPhase(p)

	o.RunWorkflow(context.Background(), w,
		map[string]any{"raw_requirements": "project-level", "extra": "x"}, "demo")

	// task input overrides project input on collision, project keys merge in
	assert.Equal(t, "task-level wins", task.Input["raw_requirements"])
	assert.Equal(t, "x", task.Input["extra"])
}
