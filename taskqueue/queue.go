// Package taskqueue derives pending development work from the latest status
// tracking artifact. The queue holds no state of its own: eligibility is
// recomputed from the store on every call, and claiming is advisory — callers
// pass the element ids they are already working on.
package taskqueue

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/status"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
)

// Priority levels. Lower is more urgent.
const (
	PriorityNotStarted = 0
	PriorityStale      = 1
)

// DevTask is one schedulable unit of development work.
type DevTask struct {
	ElementID   string
	ElementType status.ElementType
	Description string
	ParentID    string
	Priority    int
}

// Queue reads the status tracking artifact and produces eligible tasks.
type Queue struct {
	store          store.Store
	staleThreshold time.Duration
	logger         *zap.Logger
}

// NewQueue creates a queue over the store. Elements in progress longer than
// staleThreshold without a heartbeat are handed out again.
func NewQueue(st store.Store, staleThreshold time.Duration, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		store:          st,
		staleThreshold: staleThreshold,
		logger:         logger.With(zap.String("component", "task_queue")),
	}
}

// PendingTasks returns every eligible task, most urgent first.
//
// An element is eligible when it is a schedulable leaf, not in excludeIDs,
// and either not started (priority 0) or in progress with a heartbeat that is
// missing or older than the stale threshold (priority 1). Ties sort by
// element id so the result is deterministic.
func (q *Queue) PendingTasks(excludeIDs map[string]struct{}, now time.Time) []DevTask {
	artifact, ok := q.store.Latest(types.ArtifactStatusTracking)
	if !ok {
		return nil
	}
	tracking, err := status.DecodeTracking(artifact.Content)
	if err != nil {
		q.logger.Warn("undecodable status tracking artifact",
			zap.String("artifact_id", artifact.ID),
			zap.Error(err))
		return nil
	}

	var tasks []DevTask
	for id, el := range tracking.Elements {
		if _, excluded := excludeIDs[id]; excluded {
			continue
		}
		if !el.Type.IsLeaf() {
			continue
		}

		switch el.Status {
		case status.StatusNotStarted:
			tasks = append(tasks, DevTask{
				ElementID:   id,
				ElementType: el.Type,
				Description: el.Description,
				ParentID:    el.Parent,
				Priority:    PriorityNotStarted,
			})
		case status.StatusInProgress:
			// missing heartbeat counts as stale
			if el.LastUpdated != nil && now.Sub(*el.LastUpdated) <= q.staleThreshold {
				continue
			}
			tasks = append(tasks, DevTask{
				ElementID:   id,
				ElementType: el.Type,
				Description: el.Description,
				ParentID:    el.Parent,
				Priority:    PriorityStale,
			})
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		return tasks[i].ElementID < tasks[j].ElementID
	})
	return tasks
}

// Next returns the single most urgent task, or false when nothing is
// pending.
func (q *Queue) Next(excludeIDs map[string]struct{}, now time.Time) (DevTask, bool) {
	tasks := q.PendingTasks(excludeIDs, now)
	if len(tasks) == 0 {
		return DevTask{}, false
	}
	return tasks[0], true
}
