package jobs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gcbaptista/go-geocode-keys/internal/errors"
	"github.com/gcbaptista/go-geocode-keys/internal/logger"
	"github.com/gcbaptista/go-geocode-keys/model"
)

// JobFunc is the work of one job. It should return promptly once ctx is done.
type JobFunc func(ctx context.Context, job *model.Job) error

// Manager handles background job execution and tracking
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	workers chan struct{} // Limits concurrent jobs
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *JobMetrics
	log     *log.Logger
}

// NewManager creates a new job manager with specified worker count.
// A nil logger discards output.
func NewManager(maxWorkers int, l *log.Logger) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if l == nil {
		l = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:    make(map[string]*model.Job),
		workers: make(chan struct{}, maxWorkers),
		ctx:     ctx,
		cancel:  cancel,
		metrics: NewJobMetrics(),
		log:     l,
	}
}

// Start begins the background cleanup of finished jobs
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return
	}
	m.log.Info("Job manager started", "workers", cap(m.workers))
	m.wg.Add(1)
	go m.cleanupRoutine()
}

// Stop cancels running jobs and waits for them to return. Submit fails once
// Stop has begun.
func (m *Manager) Stop() {
	// cancel under mu so no Submit can add to wg once Wait may be running
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info("Job manager stopped")
}

// Submit registers a job and runs fn on a worker slot. It returns the job ID
// without waiting for a slot.
func (m *Manager) Submit(jobType model.JobType, metadata map[string]string, fn JobFunc) (string, error) {
	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("job manager is shutting down")
	}
	m.jobs[job.ID] = job
	m.wg.Add(1)
	m.mu.Unlock()

	m.metrics.RecordJobCreated(jobType)
	m.log.Debug("Created job", "id", job.ID, "type", job.Type)
	go m.run(job.ID, fn)
	return job.ID, nil
}

func (m *Manager) run(jobID string, fn JobFunc) {
	defer m.wg.Done()

	// Acquire worker slot
	select {
	case m.workers <- struct{}{}:
	case <-m.ctx.Done():
		m.finish(jobID, model.JobStatusCancelled, "job manager shutting down", 0)
		return
	}
	defer func() { <-m.workers }()

	m.mu.Lock()
	job := m.jobs[jobID]
	now := time.Now()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	jobType := job.Type
	snapshot := copyJob(job)
	m.mu.Unlock()
	m.metrics.RecordJobStatusChange(model.JobStatusPending, model.JobStatusRunning)

	err := fn(m.ctx, snapshot)
	elapsed := time.Since(now)

	switch {
	case err != nil && m.ctx.Err() != nil:
		m.finish(jobID, model.JobStatusCancelled, err.Error(), elapsed)
		m.log.Warn("Job cancelled", "id", jobID, "type", jobType, "err", err)
	case err != nil:
		m.finish(jobID, model.JobStatusFailed, err.Error(), elapsed)
		m.log.Error("Job failed", "id", jobID, "type", jobType, "after", elapsed, "err", err)
	default:
		m.finish(jobID, model.JobStatusCompleted, "", elapsed)
		m.log.Info("Job completed", "id", jobID, "type", jobType, "in", elapsed)
	}
}

// finish moves a job to a final status and records metrics
func (m *Manager) finish(jobID string, status model.JobStatus, errorMsg string, elapsed time.Duration) {
	m.mu.Lock()
	job := m.jobs[jobID]
	oldStatus := job.Status
	job.Status = status
	job.Error = errorMsg
	now := time.Now()
	job.CompletedAt = &now
	jobType := job.Type
	m.mu.Unlock()

	m.metrics.RecordJobStatusChange(oldStatus, status)
	switch status {
	case model.JobStatusCompleted:
		m.metrics.RecordJobCompleted(jobType, elapsed)
	case model.JobStatusFailed:
		m.metrics.RecordJobFailed(jobType)
	}
}

// GetJob retrieves a copy of a job by ID
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns jobs oldest first, optionally filtered by status
func (m *Manager) ListJobs(status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if status == nil || job.Status == *status {
			result = append(result, copyJob(job))
		}
	}
	slices.SortFunc(result, func(a, b *model.Job) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

// cleanupRoutine runs periodic job cleanup
func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs removes finished jobs older than maxAge
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			cleaned++
		}
	}
	if cleaned > 0 {
		m.log.Debug("Cleaned up old jobs", "count", cleaned)
	}
	return cleaned
}

// GetMetrics returns current job performance metrics
func (m *Manager) GetMetrics() JobMetricsData {
	return m.metrics.GetMetrics()
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}
