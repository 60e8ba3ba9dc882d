// Package agent ties a role's skill roster to the shared bus and artifact
// store. An agent is a passive executor: it acts only when ExecuteSkill is
// called directly or a request message arrives over the bus.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/bus"
	"github.com/codecrew-ai/codecrew/llm"
	"github.com/codecrew-ai/codecrew/skill"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
)

// Agent is a named team member with a role-defined skill set.
type Agent struct {
	name   string
	role   types.AgentRole
	bus    *bus.MessageBus
	store  store.Store
	skills map[string]skill.Skill
	llm    llm.Client
	logger *zap.Logger
}

// New creates an agent with the built-in skill roster for its role and
// subscribes it on the bus under its name.
func New(name string, role types.AgentRole, b *bus.MessageBus, st store.Store, client llm.Client, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		name:   name,
		role:   role,
		bus:    b,
		store:  st,
		skills: make(map[string]skill.Skill),
		llm:    client,
		logger: logger.With(zap.String("component", "agent"), zap.String("agent", name)),
	}
	for _, s := range skill.Catalog(role) {
		a.skills[s.Name()] = s
	}
	if b != nil {
		b.Subscribe(name, a.HandleMessage)
	}
	return a
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.name }

// Role returns the agent's team role.
func (a *Agent) Role() types.AgentRole { return a.role }

// Skills returns the names of the agent's registered skills.
func (a *Agent) Skills() []string {
	names := make([]string, 0, len(a.skills))
	for name := range a.skills {
		names = append(names, name)
	}
	return names
}

// HasSkill reports whether the agent can execute the named skill.
func (a *Agent) HasSkill(name string) bool {
	_, ok := a.skills[name]
	return ok
}

// ExecuteSkill validates the input, runs the skill, and stores the produced
// artifact. Validation failures store nothing.
func (a *Agent) ExecuteSkill(ctx context.Context, skillName, projectName string, input map[string]any) (types.Artifact, error) {
	s, ok := a.skills[skillName]
	if !ok {
		return types.Artifact{}, types.NewError(types.ErrUnknownSkill,
			"agent '"+a.name+"' has no skill '"+skillName+"'")
	}

	if errs := s.ValidateInput(input); len(errs) > 0 {
		return types.Artifact{}, types.NewError(types.ErrValidation,
			"invalid input for skill '"+skillName+"'").WithDetails(errs...)
	}

	sc := &skill.Context{
		Store:       a.store,
		ProjectName: projectName,
		Agent:       a.name,
		LLM:         a.llm,
		Logger:      a.logger,
	}
	artifact, err := s.Execute(ctx, input, sc)
	if err != nil {
		a.logger.Error("skill execution failed",
			zap.String("skill", skillName),
			zap.Error(err))
		return types.Artifact{}, err
	}

	a.store.Put(artifact)
	a.logger.Info("skill executed",
		zap.String("skill", skillName),
		zap.String("artifact_id", artifact.ID),
		zap.String("artifact_type", string(artifact.Type)))
	return artifact, nil
}

// HandleMessage is the agent's bus handler. Request messages carrying a
// skill name are executed; failures come back as error replies, never as
// handler errors, so one bad request cannot poison a broadcast fan-out.
func (a *Agent) HandleMessage(msg types.Message) (*types.Message, error) {
	if msg.Type != types.MessageRequest {
		a.logger.Debug("ignoring non-request message",
			zap.String("message_id", msg.ID),
			zap.String("msg_type", string(msg.Type)))
		return nil, nil
	}

	skillName, _ := msg.Content["skill"].(string)
	projectName, _ := msg.Content["project_name"].(string)
	input, _ := msg.Content["input_data"].(map[string]any)
	if input == nil {
		input = map[string]any{}
	}

	artifact, err := a.ExecuteSkill(context.Background(), skillName, projectName, input)
	if err != nil {
		reply := msg.Reply(map[string]any{
			"status": "error",
			"error":  err.Error(),
		}, types.MessageResponse)
		return &reply, nil
	}

	reply := msg.Reply(map[string]any{
		"status":      "success",
		"artifact_id": artifact.ID,
	}, types.MessageResponse)
	return &reply, nil
}
