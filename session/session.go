// Package session runs concurrent developer sessions: N workers pull tasks
// from the queue, mark them in progress, run the develop function, and keep
// the element's heartbeat fresh while they work.
package session

import (
	"time"

	"github.com/codecrew-ai/codecrew/types"
)

// Status is the lifecycle state of a developer session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DeveloperSession is one worker's run at one task.
type DeveloperSession struct {
	ID              string
	AgentName       string
	TaskElementID   string
	TaskDescription string
	Status          Status
	BranchName      string
	WorktreePath    string
	PRNumber        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Error           string
}

// NewDeveloperSession creates a pending session for a task.
func NewDeveloperSession(agentName, elementID, description string) *DeveloperSession {
	now := time.Now().UTC()
	return &DeveloperSession{
		ID:              types.ShortID(8),
		AgentName:       agentName,
		TaskElementID:   elementID,
		TaskDescription: description,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Touch stamps the session as active.
func (s *DeveloperSession) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
