// Package metrics provides in-memory runtime statistics collection for the
// worker.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	Failures    int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the full worker statistics at a point in time.
type Snapshot struct {
	UptimeSeconds  float64
	TasksClaimed   int64
	TasksCompleted int64
	TasksFailed    int64
	TaskProcess    *OperationSnapshot
	LLMExtract     *OperationSnapshot
	LLMReason      *OperationSnapshot
	DBQuery        *OperationSnapshot
	Assignment     *OperationSnapshot
}

// Operation names for the collector.
const (
	OpTaskProcess = "task_process"
	OpLLMExtract  = "llm_extract"
	OpLLMReason   = "llm_reason"
	OpDBQuery     = "db_query"
	OpAssignment  = "assignment"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	tasksClaimed   int64
	tasksCompleted int64
	tasksFailed    int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for a successful operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordFailure records a failed attempt at an operation. Failures are
// counted separately and do not affect timing stats.
func (c *Collector) RecordFailure(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getOrCreate(op).Failures++
}

// RecordTaskClaimed increments the claimed-task counter.
func (c *Collector) RecordTaskClaimed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksClaimed++
}

// RecordTaskCompleted increments the completed-task counter.
func (c *Collector) RecordTaskCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksCompleted++
}

// RecordTaskFailed increments the failed-task counter.
func (c *Collector) RecordTaskFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasksFailed++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || (m.Count == 0 && m.Failures == 0) {
		return nil
	}

	snap := &OperationSnapshot{
		Count:    m.Count,
		Failures: m.Failures,
	}
	if m.Count > 0 {
		snap.TotalTimeMs = m.TotalTime.Milliseconds()
		snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		snap.MinTimeMs = m.MinTime.Milliseconds()
		snap.MaxTimeMs = m.MaxTime.Milliseconds()
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
		TasksClaimed:   c.tasksClaimed,
		TasksCompleted: c.tasksCompleted,
		TasksFailed:    c.tasksFailed,
		TaskProcess:    snapshotOp(c.ops[OpTaskProcess]),
		LLMExtract:     snapshotOp(c.ops[OpLLMExtract]),
		LLMReason:      snapshotOp(c.ops[OpLLMReason]),
		DBQuery:        snapshotOp(c.ops[OpDBQuery]),
		Assignment:     snapshotOp(c.ops[OpAssignment]),
	}
}
