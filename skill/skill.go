// Package skill defines the validated unit-of-work contract: a skill turns
// input plus runtime context into exactly one new artifact.
//
// Skills form a closed set of implementations registered in a map at
// agent-build time; there is no runtime reflection dispatch.
package skill

import (
	"context"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/llm"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
)

// Context is the runtime context a skill executes against.
type Context struct {
	Store       store.Store
	ProjectName string
	// Agent is the executing agent's name; it becomes the artifact producer.
	Agent      string
	Parameters map[string]any
	LLM        llm.Client
	Logger     *zap.Logger
}

// Skill is a discrete, stateless capability an agent can execute.
type Skill interface {
	// Name is the unique skill identifier.
	Name() string
	// Description says what the skill does, for discovery and logging.
	Description() string
	// ValidateInput returns human-readable error strings; empty means valid.
	ValidateInput(input map[string]any) []string
	// Execute runs the skill and produces its artifact. The caller stores it.
	Execute(ctx context.Context, input map[string]any, sc *Context) (types.Artifact, error)
}

func (sc *Context) logger() *zap.Logger {
	if sc.Logger == nil {
		return zap.NewNop()
	}
	return sc.Logger
}

func stringInput(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
