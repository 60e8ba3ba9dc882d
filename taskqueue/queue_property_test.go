package taskqueue

import (
	"sort"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/codecrew-ai/codecrew/status"
	"github.com/codecrew-ai/codecrew/store"
	"github.com/codecrew-ai/codecrew/types"
)

func TestPendingTasks_Properties(t *testing.T) {
	elementTypes := []status.ElementType{
		status.ElementSystemFeature,
		status.ElementSystemRequirement,
		status.ElementArchitectureRequirement,
		status.ElementFunction,
	}
	statuses := []status.ElementStatus{
		status.StatusNotStarted,
		status.StatusInProgress,
		status.StatusDone,
	}

	rapid.Check(t, func(t *rapid.T) {
		now := time.Now().UTC()
		ids := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{2}-[0-9]{3}`), 0, 20,
			rapid.ID[string]).Draw(t, "ids")

		elements := make(map[string]status.Element, len(ids))
		for _, id := range ids {
			el := status.Element{
				Type:   elementTypes[rapid.IntRange(0, len(elementTypes)-1).Draw(t, "type")],
				Status: statuses[rapid.IntRange(0, len(statuses)-1).Draw(t, "status")],
			}
			if rapid.Bool().Draw(t, "has_heartbeat") {
				age := time.Duration(rapid.IntRange(0, 60).Draw(t, "age_minutes")) * time.Minute
				when := now.Add(-age)
				el.LastUpdated = &when
			}
			elements[id] = el
		}

		st := store.NewMemoryStore()
		tracking := status.Tracking{ProjectName: "demo", LastUpdated: now, Elements: elements}
		content, err := tracking.Content()
		if err != nil {
			t.Fatalf("encode tracking: %v", err)
		}
		st.Put(types.NewArtifact(types.ArtifactStatusTracking, content, "team_lead"))

		threshold := 10 * time.Minute
		q := NewQueue(st, threshold, nil)
		tasks := q.PendingTasks(nil, now)

		// sorted by (priority, element id)
		sorted := sort.SliceIsSorted(tasks, func(i, j int) bool {
			if tasks[i].Priority != tasks[j].Priority {
				return tasks[i].Priority < tasks[j].Priority
			}
			return tasks[i].ElementID < tasks[j].ElementID
		})
		if !sorted {
			t.Fatalf("tasks not sorted: %v", tasks)
		}

		// exactly the eligible elements appear, with the right priority
		got := make(map[string]int, len(tasks))
		for _, task := range tasks {
			got[task.ElementID] = task.Priority
		}
		for id, el := range elements {
			var want int
			eligible := false
			if el.Type.IsLeaf() {
				switch el.Status {
				case status.StatusNotStarted:
					eligible, want = true, PriorityNotStarted
				case status.StatusInProgress:
					if el.LastUpdated == nil || now.Sub(*el.LastUpdated) > threshold {
						eligible, want = true, PriorityStale
					}
				}
			}
			priority, present := got[id]
			if present != eligible {
				t.Fatalf("element %s: eligible=%v present=%v", id, eligible, present)
			}
			if present && priority != want {
				t.Fatalf("element %s: priority=%d want=%d", id, priority, want)
			}
		}
	})
}
