package taskqueue

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/status"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
)

// StatusUpdater changes element states in the status tracking registry.
// Every successful update stores a new revised version of the tracking
// artifact; stored artifacts are never edited in place, so the version chain
// is a full audit trail of state transitions.
//
// Updates are serialized: session workers and their heartbeats share one
// updater, and an unserialized read-modify-write would let two concurrent
// updates revise the same base version, losing one of them.
type StatusUpdater struct {
	store  store.Store
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStatusUpdater creates an updater over the store.
func NewStatusUpdater(st store.Store, logger *zap.Logger) *StatusUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusUpdater{
		store:  st,
		logger: logger.With(zap.String("component", "status_updater")),
	}
}

// MarkInProgress moves an element to 进行中 and stamps it.
func (u *StatusUpdater) MarkInProgress(elementID string) bool {
	return u.update(elementID, func(el *status.Element, now time.Time) {
		el.Status = status.StatusInProgress
		el.LastUpdated = &now
	})
}

// MarkCompleted moves an element to 已完成 and stamps it.
func (u *StatusUpdater) MarkCompleted(elementID string) bool {
	return u.update(elementID, func(el *status.Element, now time.Time) {
		el.Status = status.StatusDone
		el.LastUpdated = &now
	})
}

// Touch refreshes an element's heartbeat without changing its status.
func (u *StatusUpdater) Touch(elementID string) bool {
	return u.update(elementID, func(el *status.Element, now time.Time) {
		el.LastUpdated = &now
	})
}

// update decodes the latest tracking artifact, applies fn to the element,
// and stores the result as a new revision, all under the updater's lock so
// every revision is based on the version before it. Missing artifact or
// unknown element id mean no new version is written.
func (u *StatusUpdater) update(elementID string, fn func(el *status.Element, now time.Time)) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	artifact, ok := u.store.Latest(types.ArtifactStatusTracking)
	if !ok {
		return false
	}
	tracking, err := status.DecodeTracking(artifact.Content)
	if err != nil {
		u.logger.Warn("undecodable status tracking artifact",
			zap.String("artifact_id", artifact.ID),
			zap.Error(err))
		return false
	}
	el, ok := tracking.Elements[elementID]
	if !ok {
		return false
	}

	now := time.Now().UTC()
	fn(&el, now)
	tracking.Elements[elementID] = el
	tracking.LastUpdated = now

	content, err := tracking.Content()
	if err != nil {
		u.logger.Error("encode status tracking failed",
			zap.String("element_id", elementID),
			zap.Error(err))
		return false
	}
	revision := artifact.Revise(content)
	u.store.Put(revision)
	u.logger.Debug("element status updated",
		zap.String("element_id", elementID),
		zap.String("status", el.Status.String()),
		zap.String("artifact_id", revision.ID),
		zap.Int("version", revision.Version))
	return true
}
