package reviewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/hosting"
	"github.com/codecrew-ai/codecrew/internal/metrics"
)

// TaskExecutor dispatches one skill execution; the orchestrator's
// ExecuteTask satisfies it. Review feedback failing is tolerated — posting
// the round matters more than the artifact.
type TaskExecutor func(ctx context.Context, agent, skill string, input map[string]any, project string) (string, error)

// Manager polls every registered pull request and drives its session
// through the review state machine. It is single-threaded by design: one
// poll loop walks sessions in registration order, so no session ever races
// another.
type Manager struct {
	client       hosting.Client
	execute      TaskExecutor
	pollInterval time.Duration
	projectName  string

	mu       sync.RWMutex
	sessions map[int]*Session
	order    []int

	stop    chan struct{}
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewManager creates a reviewer manager. execute may be nil when no reviewer
// agent is registered; review rounds then only post to the host.
func NewManager(client hosting.Client, execute TaskExecutor, pollInterval time.Duration, projectName string, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client:       client,
		execute:      execute,
		pollInterval: pollInterval,
		projectName:  projectName,
		sessions:     make(map[int]*Session),
		stop:         make(chan struct{}),
		metrics:      collector,
		logger:       logger.With(zap.String("component", "reviewer_manager")),
	}
}

// AddPR registers a pull request for review. Adding the same PR again
// returns the existing session unchanged. The returned session is owned by
// the manager; once polling starts, read its state through Session or
// Sessions, which return snapshots.
func (m *Manager) AddPR(prNumber int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[prNumber]; ok {
		return s
	}
	s := NewSession(prNumber)
	m.sessions[prNumber] = s
	m.order = append(m.order, prNumber)
	m.logger.Info("pr registered for review", zap.Int("pr", prNumber))
	return s
}

// Session returns a snapshot of the session for a PR. The poll loop keeps
// mutating the live session; callers get a detached copy.
func (m *Manager) Session(prNumber int) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[prNumber]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

// Sessions returns snapshots of all sessions in registration order.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.order))
	for _, n := range m.order {
		copied := *m.sessions[n]
		out = append(out, &copied)
	}
	return out
}

// live returns the manager-owned sessions for the poll loop.
func (m *Manager) live() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.sessions[n])
	}
	return out
}

// transition moves a session to a new state under the manager lock, so
// snapshot reads never observe a half-written session.
func (m *Manager) transition(s *Session, status SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
}

func (m *Manager) status(s *Session) SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return s.Status
}

// Start runs the poll loop until Stop is called or the context is canceled.
// Cancellation is honored at the inter-poll wait, never mid-iteration, so a
// cycle that has started always finishes.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("reviewer manager started",
		zap.Duration("poll_interval", m.pollInterval))
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		m.reviewCycle(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("reviewer manager stopped", zap.String("reason", "context canceled"))
			return
		case <-m.stop:
			m.logger.Info("reviewer manager stopped", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
		}
	}
}

// Stop signals the poll loop to exit at its next wait.
func (m *Manager) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// reviewCycle processes every non-terminal session once. A transport
// failure on one PR is logged and retried next cycle; it never blocks the
// other sessions and never fails the session.
func (m *Manager) reviewCycle(ctx context.Context) {
	open := 0
	for _, s := range m.live() {
		if m.status(s).Terminal() {
			continue
		}
		open++
		if err := m.processPR(ctx, s); err != nil {
			m.logger.Warn("pr processing failed, will retry next poll",
				zap.Int("pr", s.PRNumber),
				zap.Error(err))
			if m.metrics != nil {
				m.metrics.RecordReviewerPoll("error")
			}
			continue
		}
		if m.metrics != nil {
			m.metrics.RecordReviewerPoll("ok")
		}
	}
	if m.metrics != nil {
		m.metrics.SetReviewerSessionsOpen(open)
	}
}

// processPR advances one session through the state machine.
func (m *Manager) processPR(ctx context.Context, s *Session) error {
	pr, err := m.client.GetPullRequest(ctx, s.PRNumber)
	if err != nil {
		return err
	}

	if pr.Merged {
		m.transition(s, StatusMerged)
		m.logger.Info("pr merged externally", zap.Int("pr", s.PRNumber))
		return nil
	}
	if pr.State == "closed" {
		m.transition(s, StatusFailed)
		m.logger.Warn("pr closed without merge", zap.Int("pr", s.PRNumber))
		return nil
	}

	if !m.checkCI(ctx, pr.HeadSHA) {
		m.transition(s, StatusWaitingCI)
		return nil
	}

	if m.status(s) == StatusReviewing {
		if err := m.reviewRound(ctx, s); err != nil {
			return err
		}
	}

	comments, err := m.client.ListComments(ctx, s.PRNumber)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if !c.Resolved {
			m.transition(s, StatusWaitingFixes)
			return nil
		}
	}

	m.transition(s, StatusApproved)
	if err := m.client.MergePullRequest(ctx, s.PRNumber, "squash"); err != nil {
		// stay approved and retry the merge next cycle
		return err
	}
	m.transition(s, StatusMerged)
	m.logger.Info("pr merged", zap.Int("pr", s.PRNumber))
	return nil
}

// reviewRound runs the reviewer agent over the changed files and posts one
// review to the host. Skill failure is tolerated; posting the review is the
// part that must land.
func (m *Manager) reviewRound(ctx context.Context, s *Session) error {
	files, err := m.client.ListChangedFiles(ctx, s.PRNumber)
	if err != nil {
		return err
	}

	if m.execute != nil {
		names := make([]any, 0, len(files))
		for _, f := range files {
			names = append(names, f.Filename)
		}
		if _, err := m.execute(ctx, "reviewer", "code_review", map[string]any{
			"files":     names,
			"pr_number": s.PRNumber,
		}, m.projectName); err != nil {
			m.logger.Warn("code review skill failed",
				zap.Int("pr", s.PRNumber),
				zap.Error(err))
		}
	}

	body := fmt.Sprintf("Automated review: %d files reviewed.", len(files))
	if err := m.client.CreateReview(ctx, s.PRNumber, body, hosting.ReviewComment); err != nil {
		return err
	}
	m.mu.Lock()
	s.CommentsPosted++
	s.ReviewRounds++
	s.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

// checkCI reports whether CI is green for a ref. An empty ref or a fetch
// failure counts as not green; a repository with no checks configured counts
// as green.
func (m *Manager) checkCI(ctx context.Context, ref string) bool {
	if ref == "" {
		return false
	}
	runs, err := m.client.GetCheckRuns(ctx, ref)
	if err != nil {
		return false
	}
	for _, r := range runs {
		if r.Conclusion != "success" {
			return false
		}
	}
	return true
}
