package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens estimates the token count of text for a model.
// Falls back to the bytes/4 heuristic when the model's encoding is
// unavailable (offline, or an unknown model name).
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return len(text)/4 + 1
	}
	return len(enc.Encode(text, nil, nil))
}
