// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 技能执行指标
	skillExecutionsTotal   *prometheus.CounterVec
	skillExecutionDuration *prometheus.HistogramVec

	// 制品与消息指标
	artifactsStoredTotal   *prometheus.CounterVec
	messagesPublishedTotal *prometheus.CounterVec

	// 工作流指标
	phasesExecutedTotal *prometheus.CounterVec

	// LLM 指标
	llmRequestsTotal *prometheus.CounterVec
	llmTokensUsed    *prometheus.CounterVec

	// 评审轮询指标
	reviewerPollsTotal   *prometheus.CounterVec
	reviewerSessionsOpen prometheus.Gauge
	devSessionsActive    prometheus.Gauge
	tasksClaimedTotal    prometheus.Counter
	tasksReclaimedTotal  prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.skillExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_executions_total",
			Help:      "Total number of skill executions",
		},
		[]string{"agent", "skill", "status"},
	)

	c.skillExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "skill_execution_duration_seconds",
			Help:      "Skill execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent", "skill"},
	)

	c.artifactsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Total number of artifacts stored",
		},
		[]string{"artifact_type"},
	)

	c.messagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Total number of messages published on the bus",
		},
		[]string{"msg_type"},
	)

	c.phasesExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_phases_executed_total",
			Help:      "Total number of workflow phases executed",
		},
		[]string{"phase", "status"},
	)

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Estimated tokens sent to the LLM",
		},
		[]string{"provider", "model"},
	)

	c.reviewerPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviewer_polls_total",
			Help:      "Total number of reviewer session polls",
		},
		[]string{"status"},
	)

	c.reviewerSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reviewer_sessions_open",
			Help:      "Number of non-terminal reviewer sessions",
		},
	)

	c.devSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dev_sessions_active",
			Help:      "Number of active developer sessions",
		},
	)

	c.tasksClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_claimed_total",
			Help:      "Total number of development tasks claimed",
		},
	)

	c.tasksReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_reclaimed_total",
			Help:      "Total number of stale in-progress tasks handed out again",
		},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 📝 记录方法
// =============================================================================

// RecordSkillExecution 记录一次技能执行
func (c *Collector) RecordSkillExecution(agent, skill, status string, duration time.Duration) {
	c.skillExecutionsTotal.WithLabelValues(agent, skill, status).Inc()
	c.skillExecutionDuration.WithLabelValues(agent, skill).Observe(duration.Seconds())
}

// RecordArtifactStored 记录制品入库
func (c *Collector) RecordArtifactStored(artifactType string) {
	c.artifactsStoredTotal.WithLabelValues(artifactType).Inc()
}

// RecordMessagePublished 记录消息发布
func (c *Collector) RecordMessagePublished(msgType string) {
	c.messagesPublishedTotal.WithLabelValues(msgType).Inc()
}

// RecordPhaseExecuted 记录工作流阶段执行
func (c *Collector) RecordPhaseExecuted(phase, status string) {
	c.phasesExecutedTotal.WithLabelValues(phase, status).Inc()
}

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, tokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	if tokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// RecordReviewerPoll 记录一次评审轮询
func (c *Collector) RecordReviewerPoll(status string) {
	c.reviewerPollsTotal.WithLabelValues(status).Inc()
}

// SetReviewerSessionsOpen 更新未终结评审会话数
func (c *Collector) SetReviewerSessionsOpen(n int) {
	c.reviewerSessionsOpen.Set(float64(n))
}

// SetDevSessionsActive 更新活跃开发会话数
func (c *Collector) SetDevSessionsActive(n int) {
	c.devSessionsActive.Set(float64(n))
}

// RecordTaskClaimed 记录任务认领
func (c *Collector) RecordTaskClaimed() {
	c.tasksClaimedTotal.Inc()
}

// RecordTaskReclaimed 记录过期任务重新派发
func (c *Collector) RecordTaskReclaimed() {
	c.tasksReclaimedTotal.Inc()
}
