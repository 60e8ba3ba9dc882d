// Package types provides core types used across the codecrew framework.
// This package has ZERO dependencies on other codecrew packages to avoid
// circular imports. All other packages should import types from here.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactType identifies the kind of work product an artifact carries.
type ArtifactType string

const (
	ArtifactRequirements            ArtifactType = "requirements"
	ArtifactUserStories             ArtifactType = "user_stories"
	ArtifactPRD                     ArtifactType = "prd"
	ArtifactSystemDesign            ArtifactType = "system_design"
	ArtifactSystemRequirements      ArtifactType = "system_requirements"
	ArtifactArchitectureDesign      ArtifactType = "architecture_design"
	ArtifactAPIContract             ArtifactType = "api_contract"
	ArtifactTechStack               ArtifactType = "tech_stack"
	ArtifactSourceCode              ArtifactType = "source_code"
	ArtifactUnitTests               ArtifactType = "unit_tests"
	ArtifactReviewFeedback          ArtifactType = "review_feedback"
	ArtifactTestPlan                ArtifactType = "test_plan"
	ArtifactTestCases               ArtifactType = "test_cases"
	ArtifactAutomatedTests          ArtifactType = "automated_tests"
	ArtifactBugReport               ArtifactType = "bug_report"
	ArtifactProgressReport          ArtifactType = "progress_report"
	ArtifactArchitectureRequirement ArtifactType = "architecture_requirement"
	ArtifactFunctionalDesign        ArtifactType = "functional_design"
	ArtifactStatusTracking          ArtifactType = "status_tracking"
)

// ArtifactStatus is the lifecycle status of an artifact.
type ArtifactStatus string

const (
	StatusDraft    ArtifactStatus = "draft"
	StatusInReview ArtifactStatus = "in_review"
	StatusApproved ArtifactStatus = "approved"
	StatusRejected ArtifactStatus = "rejected"
	StatusRevised  ArtifactStatus = "revised"
)

// MetaPreviousVersionID is the metadata key linking a revision to the
// artifact it was derived from.
const MetaPreviousVersionID = "previous_version_id"

// Artifact is a versioned work product created by an agent.
// Artifacts are immutable once stored; changes are expressed by storing a
// new version created through Revise.
type Artifact struct {
	ID        string         `json:"id"`
	Type      ArtifactType   `json:"artifact_type"`
	Content   map[string]any `json:"content"`
	Producer  string         `json:"producer"`
	Status    ArtifactStatus `json:"status"`
	Version   int            `json:"version"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewArtifact creates a version-1 draft artifact.
func NewArtifact(artifactType ArtifactType, content map[string]any, producer string) Artifact {
	return Artifact{
		ID:        ShortID(12),
		Type:      artifactType,
		Content:   content,
		Producer:  producer,
		Status:    StatusDraft,
		Version:   1,
		Metadata:  map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
}

// Revise creates the next version of this artifact with new content.
// The revision keeps the type and producer, bumps the version, is marked
// revised, and records this artifact's ID under MetaPreviousVersionID.
func (a Artifact) Revise(newContent map[string]any) Artifact {
	metadata := make(map[string]any, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		metadata[k] = v
	}
	metadata[MetaPreviousVersionID] = a.ID

	return Artifact{
		ID:        ShortID(12),
		Type:      a.Type,
		Content:   newContent,
		Producer:  a.Producer,
		Status:    StatusRevised,
		Version:   a.Version + 1,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// ShortID returns the first n hex characters of a fresh UUID.
func ShortID(n int) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > 0 && n < len(id) {
		return id[:n]
	}
	return id
}
