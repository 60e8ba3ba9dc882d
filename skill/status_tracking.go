package skill

import (
	"context"
	"fmt"
	"time"

	"github.com/codecrew-ai/codecrew/status"
	"github.com/codecrew-ai/codecrew/types"
)

// StatusTracking seeds the project status registry from a list of tracked
// elements. Every element starts 未开始; parent/child links are derived from
// the declared parent ids.
type StatusTracking struct{}

func (StatusTracking) Name() string { return "status_tracking" }

func (StatusTracking) Description() string {
	return "Seed the status tracking registry from the decomposed element list"
}

func (StatusTracking) ValidateInput(input map[string]any) []string {
	elements, ok := input["elements"].([]any)
	if !ok || len(elements) == 0 {
		return []string{"'elements' field is required and must be a non-empty list"}
	}
	var errs []string
	for i, raw := range elements {
		el, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("elements[%d]: not an object", i))
			continue
		}
		if stringInput(el, "id") == "" {
			errs = append(errs, fmt.Sprintf("elements[%d]: 'id' is required", i))
		}
		if stringInput(el, "type") == "" {
			errs = append(errs, fmt.Sprintf("elements[%d]: 'type' is required", i))
		}
	}
	return errs
}

func (StatusTracking) Execute(_ context.Context, input map[string]any, sc *Context) (types.Artifact, error) {
	rawElements := input["elements"].([]any)

	tracking := status.Tracking{
		ProjectName: sc.ProjectName,
		LastUpdated: time.Now().UTC(),
		Elements:    make(map[string]status.Element, len(rawElements)),
	}

	for _, raw := range rawElements {
		el := raw.(map[string]any)
		id := stringInput(el, "id")
		tracking.Elements[id] = status.Element{
			Type:        status.ElementType(stringInput(el, "type")),
			Description: stringInput(el, "description"),
			Status:      status.StatusNotStarted,
			Parent:      stringInput(el, "parent"),
		}
	}

	// derive children from parent links
	for id, el := range tracking.Elements {
		if el.Parent == "" {
			continue
		}
		parent, ok := tracking.Elements[el.Parent]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, id)
		tracking.Elements[el.Parent] = parent
	}

	tracking.Summary = fmt.Sprintf("%d elements, 0 done", len(tracking.Elements))

	content, err := tracking.Content()
	if err != nil {
		return types.Artifact{}, fmt.Errorf("encode status tracking: %w", err)
	}
	return types.NewArtifact(types.ArtifactStatusTracking, content, sc.Agent), nil
}
