package skill

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/types"
)

// templateSkill is the shared implementation behind the catalog skills: it
// validates required fields, builds a prompt from the input and referenced
// upstream artifacts, completes it through the model client, and wraps the
// completion in an artifact of the declared type.
type templateSkill struct {
	name         string
	description  string
	artifactType types.ArtifactType
	required     []string
	// upstream lists artifact types whose latest content is folded into the
	// prompt when present in the store. Missing upstream is not an error.
	upstream []types.ArtifactType
}

func (s templateSkill) Name() string        { return s.name }
func (s templateSkill) Description() string { return s.description }

func (s templateSkill) ValidateInput(input map[string]any) []string {
	var errs []string
	for _, field := range s.required {
		if _, ok := input[field]; !ok {
			errs = append(errs, fmt.Sprintf("'%s' field is required", field))
		}
	}
	return errs
}

func (s templateSkill) Execute(ctx context.Context, input map[string]any, sc *Context) (types.Artifact, error) {
	prompt := s.buildPrompt(input, sc)

	completion, err := sc.LLM.Complete(ctx, prompt)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("complete %s prompt: %w", s.name, err)
	}
	sc.logger().Debug("skill completion produced",
		zap.String("skill", s.name),
		zap.Int("prompt_len", len(prompt)))

	content := map[string]any{
		"project": sc.ProjectName,
		"skill":   s.name,
		"body":    completion,
	}
	for k, v := range input {
		content["input_"+k] = v
	}
	return types.NewArtifact(s.artifactType, content, sc.Agent), nil
}

func (s templateSkill) buildPrompt(input map[string]any, sc *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nProject: %s\n", s.description, sc.ProjectName)

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, input[k])
	}

	if sc.Store != nil {
		for _, at := range s.upstream {
			latest, ok := sc.Store.Latest(at)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\nUpstream %s (artifact %s v%d):\n%v\n",
				at, latest.ID, latest.Version, latest.Content)
		}
	}
	return b.String()
}

// Catalog returns the built-in skill roster for a role. The set is closed:
// agents get exactly these skills registered at construction, and an unknown
// role yields an empty roster.
func Catalog(role types.AgentRole) []Skill {
	switch role {
	case types.RoleProductManager:
		return []Skill{
			RequirementAnalysis{},
			templateSkill{
				name:         "user_story_writing",
				description:  "Write user stories from the structured requirements",
				artifactType: types.ArtifactUserStories,
				required:     []string{"target_users"},
				upstream:     []types.ArtifactType{types.ArtifactRequirements},
			},
			templateSkill{
				name:         "product_design",
				description:  "Produce the product requirements document",
				artifactType: types.ArtifactPRD,
				upstream:     []types.ArtifactType{types.ArtifactRequirements, types.ArtifactUserStories},
			},
			templateSkill{
				name:         "product_review",
				description:  "Review a product artifact against the requirements",
				artifactType: types.ArtifactReviewFeedback,
				upstream:     []types.ArtifactType{types.ArtifactRequirements},
			},
		}
	case types.RoleArchitect:
		return []Skill{
			templateSkill{
				name:         "system_design",
				description:  "Design the system architecture from the PRD",
				artifactType: types.ArtifactSystemDesign,
				upstream:     []types.ArtifactType{types.ArtifactPRD, types.ArtifactRequirements},
			},
			templateSkill{
				name:         "api_design",
				description:  "Define the API contract for the designed system",
				artifactType: types.ArtifactAPIContract,
				upstream:     []types.ArtifactType{types.ArtifactSystemDesign},
			},
			templateSkill{
				name:         "tech_stack_selection",
				description:  "Select the technology stack for the system",
				artifactType: types.ArtifactTechStack,
				upstream:     []types.ArtifactType{types.ArtifactSystemDesign},
			},
			templateSkill{
				name:         "architecture_review",
				description:  "Review an architecture artifact for soundness",
				artifactType: types.ArtifactReviewFeedback,
				upstream:     []types.ArtifactType{types.ArtifactSystemDesign},
			},
		}
	case types.RoleDeveloper:
		return []Skill{
			templateSkill{
				name:         "code_generation",
				description:  "Implement source code from the design and API contract",
				artifactType: types.ArtifactSourceCode,
				upstream: []types.ArtifactType{
					types.ArtifactSystemDesign,
					types.ArtifactAPIContract,
					types.ArtifactTechStack,
				},
			},
			templateSkill{
				name:         "unit_test_writing",
				description:  "Write unit tests for the generated source code",
				artifactType: types.ArtifactUnitTests,
				upstream:     []types.ArtifactType{types.ArtifactSourceCode},
			},
			codeReviewSkill(),
		}
	case types.RoleQAEngineer:
		return []Skill{
			templateSkill{
				name:         "test_plan_design",
				description:  "Design the test plan from requirements and design",
				artifactType: types.ArtifactTestPlan,
				upstream:     []types.ArtifactType{types.ArtifactRequirements, types.ArtifactSystemDesign},
			},
			templateSkill{
				name:         "test_case_design",
				description:  "Derive concrete test cases from the test plan",
				artifactType: types.ArtifactTestCases,
				upstream:     []types.ArtifactType{types.ArtifactTestPlan},
			},
			templateSkill{
				name:         "test_automation",
				description:  "Automate the designed test cases",
				artifactType: types.ArtifactAutomatedTests,
				upstream:     []types.ArtifactType{types.ArtifactTestCases, types.ArtifactSourceCode},
			},
			templateSkill{
				name:         "test_review",
				description:  "Review test coverage against the test plan",
				artifactType: types.ArtifactReviewFeedback,
				upstream:     []types.ArtifactType{types.ArtifactTestPlan},
			},
		}
	case types.RoleTeamLead:
		return []Skill{
			templateSkill{
				name:         "task_decomposition",
				description:  "Decompose the design into assignable work items",
				artifactType: types.ArtifactProgressReport,
				upstream:     []types.ArtifactType{types.ArtifactSystemDesign, types.ArtifactPRD},
			},
			templateSkill{
				name:         "progress_tracking",
				description:  "Summarize project progress from stored artifacts",
				artifactType: types.ArtifactProgressReport,
				upstream:     []types.ArtifactType{types.ArtifactStatusTracking},
			},
			StatusTracking{},
		}
	case types.RoleReviewer:
		return []Skill{codeReviewSkill()}
	default:
		return nil
	}
}

func codeReviewSkill() Skill {
	return templateSkill{
		name:         "code_review",
		description:  "Review source code for correctness and style",
		artifactType: types.ArtifactReviewFeedback,
		upstream:     []types.ArtifactType{types.ArtifactSourceCode, types.ArtifactAPIContract},
	}
}
