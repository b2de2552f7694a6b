// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/iris-analytics/iris/internal/models"
)

// StageMetrics holds aggregated metrics for one agent kind.
type StageMetrics struct {
	Count     int64
	Succeeded int64
	Failed    int64
	Skipped   int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// StageSnapshot provides computed stats from raw stage metrics.
type StageSnapshot struct {
	Count       int64   `json:"count"`
	Succeeded   int64   `json:"succeeded"`
	Failed      int64   `json:"failed"`
	Skipped     int64   `json:"skipped"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full engine statistics at a point in time.
type Snapshot struct {
	UptimeSeconds  float64                   `json:"uptime_seconds"`
	JobsSubmitted  int64                     `json:"jobs_submitted"`
	Questions      *StageSnapshot            `json:"questions,omitempty"`
	RealtimePoints int64                     `json:"realtime_points"`
	RealtimeFlags  int64                     `json:"realtime_flags"`
	Stages         map[string]*StageSnapshot `json:"stages,omitempty"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	stages    map[models.AgentKind]*StageMetrics
	questions *StageMetrics
	jobs      int64
	points    int64
	flags     int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		stages:    make(map[models.AgentKind]*StageMetrics),
	}
}

func newStageMetrics() *StageMetrics {
	return &StageMetrics{MinTime: time.Duration(math.MaxInt64)}
}

func (m *StageMetrics) record(status models.ResultStatus, duration time.Duration) {
	m.Count++
	switch status {
	case models.ResultSucceeded:
		m.Succeeded++
	case models.ResultFailed:
		m.Failed++
	case models.ResultSkipped:
		m.Skipped++
	}
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordStage records one agent invocation.
func (c *Collector) RecordStage(kind models.AgentKind, status models.ResultStatus, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.stages[kind]
	if !ok {
		m = newStageMetrics()
		c.stages[kind] = m
	}
	m.record(status, duration)
}

// RecordJob records one job submission.
func (c *Collector) RecordJob() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs++
}

// RecordQuestion records one conversational exchange.
func (c *Collector) RecordQuestion(duration time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.questions == nil {
		c.questions = newStageMetrics()
	}
	status := models.ResultSucceeded
	if !ok {
		status = models.ResultFailed
	}
	c.questions.record(status, duration)
}

// RecordPoint records one realtime point.
func (c *Collector) RecordPoint(flagged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points++
	if flagged {
		c.flags++
	}
}

// snapshotStage creates a snapshot for a stage, returning nil if no data.
func snapshotStage(m *StageMetrics) *StageSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &StageSnapshot{
		Count:       m.Count,
		Succeeded:   m.Succeeded,
		Failed:      m.Failed,
		Skipped:     m.Skipped,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
		JobsSubmitted:  c.jobs,
		Questions:      snapshotStage(c.questions),
		RealtimePoints: c.points,
		RealtimeFlags:  c.flags,
	}
	if len(c.stages) > 0 {
		snap.Stages = make(map[string]*StageSnapshot, len(c.stages))
		for kind, m := range c.stages {
			snap.Stages[string(kind)] = snapshotStage(m)
		}
	}
	return snap
}
