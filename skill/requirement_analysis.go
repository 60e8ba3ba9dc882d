package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/codecrew-ai/codecrew/types"
)

// RequirementAnalysis parses raw requirement text into structured
// functional / non-functional / constraint records. It is deterministic:
// classification is keyword-based and needs no model call.
type RequirementAnalysis struct{}

func (RequirementAnalysis) Name() string { return "requirement_analysis" }

func (RequirementAnalysis) Description() string {
	return "Analyze raw input and produce structured requirements (functional, non-functional, constraints)"
}

func (RequirementAnalysis) ValidateInput(input map[string]any) []string {
	if stringInput(input, "raw_requirements") == "" {
		return []string{"'raw_requirements' field is required"}
	}
	return nil
}

var (
	nonFunctionalKeywords = []string{"performance", "security", "scalab", "reliab", "maintain"}
	constraintKeywords    = []string{"constraint", "must use", "limited to", "budget", "deadline"}
)

func (RequirementAnalysis) Execute(_ context.Context, input map[string]any, sc *Context) (types.Artifact, error) {
	raw := stringInput(input, "raw_requirements")

	var functional, nonFunctional, constraints []map[string]any
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case containsAny(lower, nonFunctionalKeywords):
			nonFunctional = append(nonFunctional, map[string]any{
				"id":          fmt.Sprintf("NFR-%03d", len(nonFunctional)+1),
				"description": line,
				"priority":    "high",
			})
		case containsAny(lower, constraintKeywords):
			constraints = append(constraints, map[string]any{
				"id":          fmt.Sprintf("CON-%03d", len(constraints)+1),
				"description": line,
			})
		default:
			functional = append(functional, map[string]any{
				"id":          fmt.Sprintf("FR-%03d", len(functional)+1),
				"description": line,
				"priority":    "medium",
			})
		}
	}

	content := map[string]any{
		"project":        sc.ProjectName,
		"functional":     functional,
		"non_functional": nonFunctional,
		"constraints":    constraints,
	}
	return types.NewArtifact(types.ArtifactRequirements, content, sc.Agent), nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
