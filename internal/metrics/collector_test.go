package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.skillExecutionsTotal)
	assert.NotNil(t, collector.artifactsStoredTotal)
	assert.NotNil(t, collector.messagesPublishedTotal)
	assert.NotNil(t, collector.phasesExecutedTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.reviewerPollsTotal)
}

func TestCollector_RecordSkillExecution(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordSkillExecution("pm-1", "requirement_analysis", "success", 50*time.Millisecond)
	c.RecordSkillExecution("pm-1", "requirement_analysis", "success", 70*time.Millisecond)
	c.RecordSkillExecution("pm-1", "requirement_analysis", "error", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		c.skillExecutionsTotal.WithLabelValues("pm-1", "requirement_analysis", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		c.skillExecutionsTotal.WithLabelValues("pm-1", "requirement_analysis", "error")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.RecordLLMRequest("offline", "static-1", "success", 42)
	c.RecordLLMRequest("offline", "static-1", "success", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		c.llmRequestsTotal.WithLabelValues("offline", "static-1", "success")))
	assert.Equal(t, 42.0, testutil.ToFloat64(
		c.llmTokensUsed.WithLabelValues("offline", "static-1")))
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.SetReviewerSessionsOpen(3)
	c.SetDevSessionsActive(2)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.reviewerSessionsOpen))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.devSessionsActive))

	c.RecordTaskClaimed()
	c.RecordTaskClaimed()
	c.RecordTaskReclaimed()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tasksClaimedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksReclaimedTotal))
}
