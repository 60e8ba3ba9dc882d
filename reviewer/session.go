// Package reviewer runs the pull-request review loop: one session per PR,
// polled by a single cooperative manager that reviews, waits on CI, and
// merges when everything is green.
package reviewer

import (
	"time"

	"github.com/codecrew-ai/codecrew/types"
)

// SessionStatus is the lifecycle state of a reviewer session.
//
// REVIEWING → {WAITING_CI, WAITING_FIXES, APPROVED} → MERGED.
// FAILED is reachable from any non-terminal state; MERGED and FAILED are
// terminal.
type SessionStatus string

const (
	StatusReviewing    SessionStatus = "reviewing"
	StatusWaitingCI    SessionStatus = "waiting_ci"
	StatusWaitingFixes SessionStatus = "waiting_fixes"
	StatusApproved     SessionStatus = "approved"
	StatusMerged       SessionStatus = "merged"
	StatusFailed       SessionStatus = "failed"
)

// Terminal reports whether the status is final.
func (s SessionStatus) Terminal() bool {
	return s == StatusMerged || s == StatusFailed
}

// Session tracks the review of one pull request.
type Session struct {
	ID             string
	PRNumber       int
	Status         SessionStatus
	CommentsPosted int
	ReviewRounds   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSession creates a session in the reviewing state.
func NewSession(prNumber int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        types.ShortID(8),
		PRNumber:  prNumber,
		Status:    StatusReviewing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch stamps the session as just acted on.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
