package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

// jobEntry pairs a tracked job with the cancel function of its worker.
type jobEntry struct {
	job    *models.Job
	cancel context.CancelFunc
}

// Manager tracks background search jobs in memory. Jobs are never persisted:
// a restart forgets everything, and callers are expected to poll while the
// process lives. All status transitions go through the manager so that a job
// only ever advances pending -> running -> completed|failed.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry

	deps   WorkerDeps
	config common.JobsConfig
	events interfaces.EventService // optional, may be nil
	logger arbor.ILogger
}

// NewManager creates a job manager. events may be nil when no streaming is
// wanted.
func NewManager(deps WorkerDeps, config common.JobsConfig, events interfaces.EventService, logger arbor.ILogger) *Manager {
	return &Manager{
		jobs:   make(map[string]*jobEntry),
		deps:   deps,
		config: config,
		events: events,
		logger: logger,
	}
}

// Create registers a new job and launches its worker. The returned snapshot
// is taken synchronously, before the worker has had a chance to run, so the
// caller always observes the pending state and a usable job ID.
func (m *Manager) Create(params models.JobParams) (*models.Job, error) {
	params.Term = strings.TrimSpace(params.Term)
	if params.Term == "" && len(params.AdHocURLs) == 0 {
		return nil, fmt.Errorf("search term is required")
	}
	if params.ResultCount <= 0 {
		params.ResultCount = m.config.DefaultResultCount
	}
	if params.Rigor <= 0 {
		params.Rigor = m.config.DefaultRigor
	}
	if params.Quantity <= 0 {
		params.Quantity = 1
	}

	job := &models.Job{
		ID:        common.NewJobID(),
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
		Params:    params,
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &jobEntry{job: job, cancel: cancel}

	m.mu.Lock()
	m.jobs[job.ID] = entry
	snapshot := job.Clone()
	m.mu.Unlock()

	m.logger.Info().
		Str("job_id", job.ID).
		Str("term", params.Term).
		Int("suppliers", len(params.SupplierIDs)).
		Msg("Job created")
	m.publish(interfaces.EventJobCreated, job.ID, nil)

	ch := make(chan workerMessage, 16)
	worker := newSearchWorker(job.ID, params, m.deps, m.logger)
	go worker.Run(ctx, ch)
	go m.listen(job.ID, ch)

	return snapshot, nil
}

// listen consumes one worker's channel until it closes, applying each message
// to the tracked job. A channel that closes without a terminal message means
// the worker died without reporting; the job is failed so it cannot hang in
// running forever.
func (m *Manager) listen(jobID string, ch <-chan workerMessage) {
	terminal := false
	for msg := range ch {
		if terminal {
			m.logger.Warn().
				Str("job_id", jobID).
				Msg("Worker message received after terminal state, ignoring")
			continue
		}
		switch msg.kind {
		case msgStarted:
			m.markRunning(jobID)
		case msgProgress:
			m.updateProgress(jobID, msg.progress)
		case msgCompleted:
			m.complete(jobID, msg.result)
			terminal = true
		case msgFailed:
			m.fail(jobID, msg.err)
			terminal = true
		}
	}
	if !terminal {
		m.fail(jobID, "worker exited unexpectedly")
	}
}

// GetStatus returns a snapshot of the job, or an error when the ID is
// unknown (including jobs already pruned).
func (m *Manager) GetStatus(id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return entry.job.Clone(), nil
}

// DefaultListLimit caps List results when the caller gives no limit.
const DefaultListLimit = 50

// List returns snapshots of tracked jobs, newest first, capped at limit.
func (m *Manager) List(limit int) []*models.Job {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	m.mu.RLock()
	out := make([]*models.Job, 0, len(m.jobs))
	for _, entry := range m.jobs {
		out = append(out, entry.job.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cancel stops a pending or running job. Terminal jobs cannot be cancelled.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job not found: %s", id)
	}
	if entry.job.Status.Terminal() {
		m.mu.Unlock()
		return fmt.Errorf("job %s already %s", id, entry.job.Status)
	}
	now := time.Now()
	entry.job.Status = models.JobStatusFailed
	entry.job.Error = "cancelado pelo usuario"
	entry.job.CompletedAt = &now
	entry.cancel()
	m.mu.Unlock()

	m.logger.Info().Str("job_id", id).Msg("Job cancelled")
	m.publish(interfaces.EventJobFailed, id, map[string]interface{}{"erro": "cancelado pelo usuario"})
	return nil
}

// Prune drops terminal jobs whose creation is older than maxAgeDays and
// returns how many were removed. Pending and running jobs are never pruned.
func (m *Manager) Prune(maxAgeDays int) int {
	if maxAgeDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, entry := range m.jobs {
		if entry.job.Status.Terminal() && entry.job.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info().Int("removed", removed).Msg("Pruned old jobs")
	}
	return removed
}

// Shutdown cancels every non-terminal job's worker context.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.jobs {
		if !entry.job.Status.Terminal() {
			entry.cancel()
		}
	}
}

func (m *Manager) markRunning(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.jobs[id]
	if !ok || entry.job.Status != models.JobStatusPending {
		return
	}
	now := time.Now()
	entry.job.Status = models.JobStatusRunning
	entry.job.StartedAt = &now
}

func (m *Manager) updateProgress(id string, progress *models.JobProgress) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	entry.job.Progress = progress
	m.mu.Unlock()

	if progress != nil {
		m.publish(interfaces.EventJobProgress, id, map[string]interface{}{
			"etapa":                string(progress.Stage),
			"produtos_encontrados": progress.ProductsFound,
		})
	}
}

func (m *Manager) complete(id string, result *models.JobResult) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		m.mu.Unlock()
		if ok {
			m.logger.Warn().Str("job_id", id).Msg("Completion for already-terminal job, ignoring")
		}
		return
	}
	now := time.Now()
	entry.job.Status = models.JobStatusCompleted
	entry.job.Result = result
	entry.job.CompletedAt = &now
	m.mu.Unlock()

	m.logger.Info().
		Str("job_id", id).
		Int("products", len(result.Products)).
		Msg("Job completed")
	m.publish(interfaces.EventJobCompleted, id, map[string]interface{}{"produtos": len(result.Products)})
}

func (m *Manager) fail(id string, errMsg string) {
	m.mu.Lock()
	entry, ok := m.jobs[id]
	if !ok || entry.job.Status.Terminal() {
		m.mu.Unlock()
		m.logger.Warn().Str("job_id", id).Str("error", errMsg).Msg("Failure for unknown or already-terminal job, ignoring")
		return
	}
	now := time.Now()
	entry.job.Status = models.JobStatusFailed
	entry.job.Error = errMsg
	entry.job.CompletedAt = &now
	m.mu.Unlock()

	m.logger.Warn().Str("job_id", id).Str("error", errMsg).Msg("Job failed")
	m.publish(interfaces.EventJobFailed, id, map[string]interface{}{"erro": errMsg})
}

func (m *Manager) publish(eventType interfaces.EventType, jobID string, extra map[string]interface{}) {
	if m.events == nil {
		return
	}
	payload := map[string]interface{}{"job_id": jobID}
	for k, v := range extra {
		payload[k] = v
	}
	if err := m.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		m.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to publish job event")
	}
}
