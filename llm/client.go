// Package llm abstracts the text-generation collaborator. The core treats
// model calls as black-box functions returning text or failing with a
// transport error; nothing in this repository inspects provider wire formats.
package llm

import (
	"context"
	"fmt"

	"github.com/codecrew-ai/codecrew/types"
)

// ModelConfig is the opaque model-routing handle carried through skill
// execution. The core never interprets it beyond logging.
type ModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// Client sends a prompt to a model and returns the completion text.
// Implementations must bound the call with the context and surface failures
// as types.ErrTransport.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Config() ModelConfig
}

// StaticClient is a deterministic offline client. Skills keep working
// without an API key: the completion is a fixed banner plus the prompt's
// leading line, which is enough for the deterministic skill templates.
type StaticClient struct {
	cfg ModelConfig
}

// NewStaticClient creates an offline client for the given config.
func NewStaticClient(cfg ModelConfig) *StaticClient {
	return &StaticClient{cfg: cfg}
}

func (c *StaticClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.NewError(types.ErrTransport, "completion canceled").WithCause(err)
	}
	return fmt.Sprintf("[offline:%s] %s", c.cfg.Model, firstLine(prompt)), nil
}

func (c *StaticClient) Config() ModelConfig { return c.cfg }

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
