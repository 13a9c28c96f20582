package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/go-geocode-keys/model"
)

// JobMetricsData is a point-in-time copy of the job counters
type JobMetricsData struct {
	JobsCreated          int64                     `json:"jobs_created"`
	JobsCompleted        int64                     `json:"jobs_completed"`
	JobsFailed           int64                     `json:"jobs_failed"`
	AverageExecutionTime time.Duration             `json:"average_execution_time_ns"`
	SuccessRate          float64                   `json:"success_rate"`
	Workload             int64                     `json:"workload"` // pending plus running
	JobsByType           map[model.JobType]int64   `json:"jobs_by_type"`
	JobsByStatus         map[model.JobStatus]int64 `json:"jobs_by_status"`
	LastUpdated          time.Time                 `json:"last_updated"`
}

// JobMetrics tracks counters for job operations
type JobMetrics struct {
	mu                 sync.RWMutex
	jobsCreated        int64
	jobsCompleted      int64
	jobsFailed         int64
	totalExecutionTime time.Duration
	jobsByType         map[model.JobType]int64
	jobsByStatus       map[model.JobStatus]int64
	lastUpdated        time.Time
}

// NewJobMetrics creates a new metrics collector
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{
		jobsByType:   make(map[model.JobType]int64),
		jobsByStatus: make(map[model.JobStatus]int64),
		lastUpdated:  time.Now(),
	}
}

// RecordJobCreated increments job creation counter
func (m *JobMetrics) RecordJobCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCreated++
	m.jobsByType[jobType]++
	m.jobsByStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange moves one job between status counters
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.jobsByStatus[oldStatus] > 0 {
		m.jobsByStatus[oldStatus]--
	}
	m.jobsByStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordJobCompleted records successful job completion
func (m *JobMetrics) RecordJobCompleted(jobType model.JobType, executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCompleted++
	m.totalExecutionTime += executionTime
	m.lastUpdated = time.Now()
}

// RecordJobFailed records job failure
func (m *JobMetrics) RecordJobFailed(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsFailed++
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy of current metrics
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := JobMetricsData{
		JobsCreated:   m.jobsCreated,
		JobsCompleted: m.jobsCompleted,
		JobsFailed:    m.jobsFailed,
		SuccessRate:   1.0, // No finished jobs yet
		Workload:      m.jobsByStatus[model.JobStatusPending] + m.jobsByStatus[model.JobStatusRunning],
		JobsByType:    make(map[model.JobType]int64, len(m.jobsByType)),
		JobsByStatus:  make(map[model.JobStatus]int64, len(m.jobsByStatus)),
		LastUpdated:   m.lastUpdated,
	}
	if m.jobsCompleted > 0 {
		data.AverageExecutionTime = m.totalExecutionTime / time.Duration(m.jobsCompleted)
	}
	if finished := m.jobsCompleted + m.jobsFailed; finished > 0 {
		data.SuccessRate = float64(m.jobsCompleted) / float64(finished)
	}
	for k, v := range m.jobsByType {
		data.JobsByType[k] = v
	}
	for k, v := range m.jobsByStatus {
		data.JobsByStatus[k] = v
	}
	return data
}
