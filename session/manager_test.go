package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecrew-ai/codecrew/status"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/taskqueue"
	"github.com/codecrew-ai/codecrew/types"
)

func seedElements(t *testing.T, st store.Store, ids ...string) {
	t.Helper()
	elements := make(map[string]status.Element, len(ids))
	for _, id := range ids {
		elements[id] = status.Element{
			Type:        status.ElementFunction,
			Description: "work on " + id,
			Status:      status.StatusNotStarted,
		}
	}
	tracking := status.Tracking{ProjectName: "demo", LastUpdated: time.Now().UTC(), Elements: elements}
	content, err := tracking.Content()
	require.NoError(t, err)
	st.Put(types.NewArtifact(types.ArtifactStatusTracking, content, "team_lead"))
}

func fastOptions(workers int) Options {
	return Options{
		Workers:           workers,
		IdlePollInterval:  5 * time.Millisecond,
		MaxIdleChecks:     3,
		HeartbeatInterval: 5 * time.Millisecond,
	}
}

func elementStatus(t *testing.T, st store.Store, id string) status.ElementStatus {
	t.Helper()
	latest, ok := st.Latest(types.ArtifactStatusTracking)
	require.True(t, ok)
	tracking, err := status.DecodeTracking(latest.Content)
	require.NoError(t, err)
	return tracking.Elements[id].Status
}

func TestRun_DrainsQueue(t *testing.T) {
	st := store.NewMemoryStore()
	seedElements(t, st, "FN-001", "FN-002", "FN-003")
	q := taskqueue.NewQueue(st, 10*time.Minute, nil)
	u := taskqueue.NewStatusUpdater(st, nil)

	var mu sync.Mutex
	var handled []string
	develop := func(_ context.Context, s *DeveloperSession, task taskqueue.DevTask) error {
		mu.Lock()
		handled = append(handled, task.ElementID)
		mu.Unlock()
		return nil
	}

	m := NewManager(q, u, develop, fastOptions(2), nil, nil)
	require.NoError(t, m.Run(context.Background()))

	assert.ElementsMatch(t, []string{"FN-001", "FN-002", "FN-003"}, handled)
	completed, failed := m.Counts()
	assert.Equal(t, 3, completed)
	assert.Equal(t, 0, failed)
	for _, id := range []string{"FN-001", "FN-002", "FN-003"} {
		assert.Equal(t, status.StatusDone, elementStatus(t, st, id), id)
	}
	assert.Empty(t, m.ClaimedElements())
	assert.Empty(t, m.ActiveSessions())
}

func TestRun_NoDuplicateClaims(t *testing.T) {
	st := store.NewMemoryStore()
	seedElements(t, st, "FN-001", "FN-002", "FN-003", "FN-004", "FN-005", "FN-006")
	q := taskqueue.NewQueue(st, 10*time.Minute, nil)
	u := taskqueue.NewStatusUpdater(st, nil)

	var mu sync.Mutex
	seen := map[string]int{}
	develop := func(_ context.Context, _ *DeveloperSession, task taskqueue.DevTask) error {
		mu.Lock()
		seen[task.ElementID]++
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		return nil
	}

	m := NewManager(q, u, develop, fastOptions(4), nil, nil)
	require.NoError(t, m.Run(context.Background()))

	for id, n := range seen {
		assert.Equal(t, 1, n, "element %s handled %d times", id, n)
	}
	assert.Len(t, seen, 6)
}

func TestRun_FailureReleasesClaimWithoutCompleting(t *testing.T) {
	st := store.NewMemoryStore()
	seedElements(t, st, "FN-001", "FN-002")
	q := taskqueue.NewQueue(st, 10*time.Minute, nil)
	u := taskqueue.NewStatusUpdater(st, nil)

	develop := func(_ context.Context, _ *DeveloperSession, task taskqueue.DevTask) error {
		if task.ElementID == "FN-001" {
			return errors.New("tests failed")
		}
		return nil
	}

	m := NewManager(q, u, develop, fastOptions(1), nil, nil)
	require.NoError(t, m.Run(context.Background()))

	completed, failed := m.Counts()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)
	// the failed element stays in progress; staleness will requeue it later
	assert.Equal(t, status.StatusInProgress, elementStatus(t, st, "FN-001"))
	assert.Equal(t, status.StatusDone, elementStatus(t, st, "FN-002"))
	assert.Empty(t, m.ClaimedElements())
}

func TestRun_HeartbeatKeepsElementFresh(t *testing.T) {
	st := store.NewMemoryStore()
	seedElements(t, st, "FN-001")
	q := taskqueue.NewQueue(st, 10*time.Minute, nil)
	u := taskqueue.NewStatusUpdater(st, nil)

	started := time.Now().UTC()
	develop := func(context.Context, *DeveloperSession, taskqueue.DevTask) error {
		time.Sleep(25 * time.Millisecond) // several heartbeat ticks
		return nil
	}

	m := NewManager(q, u, develop, fastOptions(1), nil, nil)
	require.NoError(t, m.Run(context.Background()))

	// the heartbeat wrote revisions beyond MarkInProgress and MarkCompleted
	versions := st.GetByType(types.ArtifactStatusTracking)
	assert.Greater(t, len(versions), 3)

	latest, _ := st.Latest(types.ArtifactStatusTracking)
	tracking, err := status.DecodeTracking(latest.Content)
	require.NoError(t, err)
	el := tracking.Elements["FN-001"]
	require.NotNil(t, el.LastUpdated)
	assert.True(t, el.LastUpdated.After(started))
}

func TestRun_ContextCancel(t *testing.T) {
	st := store.NewMemoryStore()
	seedElements(t, st, "FN-001")
	q := taskqueue.NewQueue(st, 10*time.Minute, nil)
	u := taskqueue.NewStatusUpdater(st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	develop := func(context.Context, *DeveloperSession, taskqueue.DevTask) error {
		cancel()
		return nil
	}

	m := NewManager(q, u, develop, Options{
		Workers:          2,
		IdlePollInterval: time.Hour, // only cancellation can end the idle wait
		MaxIdleChecks:    1000,
	}, nil, nil)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not honor cancellation")
	}
}

func TestNewDeveloperSession(t *testing.T) {
	s := NewDeveloperSession("developer_worker_0", "FN-001", "login")
	assert.Len(t, s.ID, 8)
	assert.Equal(t, StatusPending, s.Status)

	before := s.UpdatedAt
	time.Sleep(time.Millisecond)
	s.Touch()
	assert.True(t, s.UpdatedAt.After(before))
}
