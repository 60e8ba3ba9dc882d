package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// ElementType identifies a node's position in the tracking tree.
type ElementType string

const (
	ElementSystemFeature           ElementType = "system_feature"
	ElementSystemRequirement       ElementType = "system_requirement"
	ElementArchitectureRequirement ElementType = "architecture_requirement"
	ElementFunction                ElementType = "function"
)

// IsLeaf reports whether the element type is directly schedulable.
// Aggregate types roll up from their children and are never scheduled,
// even when marked not-started.
func (t ElementType) IsLeaf() bool {
	return t == ElementArchitectureRequirement || t == ElementFunction
}

// Element is one tracked unit of work in the registry.
type Element struct {
	Type        ElementType   `json:"type"`
	Description string        `json:"description,omitempty"`
	Status      ElementStatus `json:"status"`
	Parent      string        `json:"parent,omitempty"`
	Children    []string      `json:"children,omitempty"`
	LastUpdated *time.Time    `json:"last_updated,omitempty"`
}

// Tracking is the full content of a status_tracking artifact.
type Tracking struct {
	ProjectName string             `json:"project_name"`
	LastUpdated time.Time          `json:"last_updated"`
	Elements    map[string]Element `json:"elements"`
	Summary     string             `json:"summary,omitempty"`
}

// DecodeTracking converts raw artifact content into a typed registry.
// The returned value is a deep copy; mutating it never touches the artifact.
func DecodeTracking(content map[string]any) (Tracking, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Tracking{}, fmt.Errorf("encode tracking content: %w", err)
	}
	var t Tracking
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tracking{}, fmt.Errorf("decode tracking content: %w", err)
	}
	if t.Elements == nil {
		t.Elements = map[string]Element{}
	}
	return t, nil
}

// Content converts the registry back into artifact content.
func (t Tracking) Content() (map[string]any, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode tracking: %w", err)
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("decode tracking: %w", err)
	}
	return content, nil
}
