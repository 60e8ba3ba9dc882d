package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codecrew-ai/codecrew/internal/metrics"
	"github.com/codecrew-ai/codecrew/taskqueue"
)

// DevelopFunc does the actual work of one session: skill execution plus an
// optional isolated workspace. Returning an error fails the session and
// releases the claim so another worker can retry the element later.
type DevelopFunc func(ctx context.Context, s *DeveloperSession, task taskqueue.DevTask) error

// Options tunes the manager.
type Options struct {
	Workers           int
	IdlePollInterval  time.Duration // wait between queue checks when idle
	MaxIdleChecks     int           // consecutive empty checks before a worker exits
	HeartbeatInterval time.Duration // how often a running session touches its element
}

func (o *Options) fill() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.IdlePollInterval <= 0 {
		o.IdlePollInterval = 30 * time.Second
	}
	if o.MaxIdleChecks <= 0 {
		o.MaxIdleChecks = 10
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = time.Minute
	}
}

// Manager drives N concurrent developer sessions over the task queue.
//
// Claiming is cooperative: the claim set feeds the queue's excludeIDs, so
// within one manager no two workers ever hold the same element. Crashed
// claims are not a problem — the element's heartbeat goes stale and the
// queue hands it out again.
type Manager struct {
	queue   *taskqueue.Queue
	updater *taskqueue.StatusUpdater
	develop DevelopFunc
	opts    Options

	mu       sync.Mutex
	claims   map[string]struct{}
	sessions map[string]*DeveloperSession
	done     int
	failed   int

	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewManager creates a session manager.
func NewManager(queue *taskqueue.Queue, updater *taskqueue.StatusUpdater, develop DevelopFunc, opts Options, collector *metrics.Collector, logger *zap.Logger) *Manager {
	opts.fill()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		queue:    queue,
		updater:  updater,
		develop:  develop,
		opts:     opts,
		claims:   make(map[string]struct{}),
		sessions: make(map[string]*DeveloperSession),
		metrics:  collector,
		logger:   logger.With(zap.String("component", "session_manager")),
	}
}

// ActiveSessions returns a snapshot of the currently running sessions.
func (m *Manager) ActiveSessions() []*DeveloperSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DeveloperSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// ClaimedElements returns the element ids currently held by workers.
func (m *Manager) ClaimedElements() map[string]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.claims))
	for id := range m.claims {
		out[id] = struct{}{}
	}
	return out
}

// Counts returns how many sessions completed and failed so far.
func (m *Manager) Counts() (completed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done, m.failed
}

// Run starts the workers and blocks until all of them exit: either the
// queue drained past the idle limit or the context was canceled.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("session manager starting", zap.Int("workers", m.opts.Workers))
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < m.opts.Workers; i++ {
		workerID := i
		g.Go(func() error {
			return m.worker(ctx, workerID)
		})
	}
	err := g.Wait()
	completed, failed := m.Counts()
	m.logger.Info("session manager finished",
		zap.Int("completed", completed),
		zap.Int("failed", failed))
	return err
}

func (m *Manager) worker(ctx context.Context, workerID int) error {
	agentName := fmt.Sprintf("developer_worker_%d", workerID)
	idle := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, ok := m.claimNext()
		if !ok {
			idle++
			if idle >= m.opts.MaxIdleChecks {
				m.logger.Info("worker idle limit reached, exiting",
					zap.Int("worker", workerID))
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.opts.IdlePollInterval):
			}
			continue
		}

		idle = 0
		m.runSession(ctx, agentName, task)
	}
}

// claimNext atomically picks the most urgent unclaimed task and claims it.
// Claim and pick share the lock so two workers can never select the same
// element in the same instant.
func (m *Manager) claimNext() (taskqueue.DevTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.queue.Next(m.claims, time.Now().UTC())
	if !ok {
		return taskqueue.DevTask{}, false
	}
	m.claims[task.ElementID] = struct{}{}
	if m.metrics != nil {
		m.metrics.RecordTaskClaimed()
		if task.Priority == taskqueue.PriorityStale {
			m.metrics.RecordTaskReclaimed()
		}
	}
	return task, true
}

func (m *Manager) release(elementID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, elementID)
}

func (m *Manager) runSession(ctx context.Context, agentName string, task taskqueue.DevTask) {
	s := NewDeveloperSession(agentName, task.ElementID, task.Description)
	m.mu.Lock()
	m.sessions[s.ID] = s
	if m.metrics != nil {
		m.metrics.SetDevSessionsActive(len(m.sessions))
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.sessions, s.ID)
		if m.metrics != nil {
			m.metrics.SetDevSessionsActive(len(m.sessions))
		}
		m.mu.Unlock()
		m.release(task.ElementID)
	}()

	m.logger.Info("session started",
		zap.String("session", s.ID),
		zap.String("element", task.ElementID))

	m.updater.MarkInProgress(task.ElementID)
	s.Status = StatusRunning
	s.Touch()

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go func() {
		defer hb.Done()
		m.heartbeat(heartbeatCtx, task.ElementID)
	}()

	err := m.develop(ctx, s, task)
	stopHeartbeat()
	hb.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		s.Status = StatusFailed
		s.Error = err.Error()
		s.Touch()
		m.failed++
		m.logger.Warn("session failed",
			zap.String("session", s.ID),
			zap.String("element", task.ElementID),
			zap.Error(err))
		return
	}

	m.updater.MarkCompleted(task.ElementID)
	s.Status = StatusCompleted
	s.Touch()
	m.done++
	m.logger.Info("session completed",
		zap.String("session", s.ID),
		zap.String("element", task.ElementID))
}

// heartbeat keeps the element's timestamp fresh so other workers do not see
// it as stale while this session is alive.
func (m *Manager) heartbeat(ctx context.Context, elementID string) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.updater.Touch(elementID)
		}
	}
}
