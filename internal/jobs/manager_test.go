package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
	"github.com/cotalabs/cotiza/internal/models"
)

func testJobsConfig() common.JobsConfig {
	return common.JobsConfig{
		DefaultResultCount: 5,
		DefaultRigor:       3,
		RetentionDays:      7,
	}
}

func newTestManager(searcher interfaces.SiteSearcher) *Manager {
	deps := WorkerDeps{
		Suppliers: newStubSuppliers(activeSupplier("forn_a", "Site A", "https://a.example/*")),
		Products:  newStubProducts(),
		Searcher:  searcher,
	}
	return NewManager(deps, testJobsConfig(), nil, arbor.NewLogger())
}

func instantSearcher() *stubSearcher {
	return &stubSearcher{fn: func(interfaces.SearchTarget, string, int) ([]models.Product, error) {
		return []models.Product{{Name: "produto"}}, nil
	}}
}

// blockingSearcher blocks until release is closed, keeping its job running.
func blockingSearcher(release <-chan struct{}) *stubSearcher {
	return &stubSearcher{fn: func(interfaces.SearchTarget, string, int) ([]models.Product, error) {
		<-release
		return nil, nil
	}}
}

func waitForStatus(t *testing.T, m *Manager, id string, status models.JobStatus) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.GetStatus(id)
		return err == nil && job.Status == status
	}, 3*time.Second, 10*time.Millisecond, "job %s never reached %s", id, status)
	return job
}

func TestCreateReturnsHandleSynchronously(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestManager(blockingSearcher(release))

	job, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)
	assert.True(t, len(job.ID) > 4 && job.ID[:4] == "job_")
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Nil(t, job.Result)
	assert.Nil(t, job.StartedAt)
}

func TestCreateRejectsEmptyTerm(t *testing.T) {
	m := newTestManager(instantSearcher())
	_, err := m.Create(models.JobParams{Term: "   "})
	assert.Error(t, err)
}

func TestCreateAppliesDefaults(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestManager(blockingSearcher(release))

	job, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)
	assert.Equal(t, 5, job.Params.ResultCount)
	assert.Equal(t, 3, job.Params.Rigor)
	assert.Equal(t, 1, job.Params.Quantity)
}

func TestJobRunsToCompletion(t *testing.T) {
	m := newTestManager(instantSearcher())

	created, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)

	job := waitForStatus(t, m, created.ID, models.JobStatusCompleted)
	require.NotNil(t, job.Result)
	assert.Len(t, job.Result.Products, 1)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.Error)
}

func TestCancelRunningJob(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(blockingSearcher(release))

	created, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)

	require.NoError(t, m.Cancel(created.ID))
	close(release)

	job, err := m.GetStatus(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "cancelado")

	// The worker finishing later must not resurrect the job.
	time.Sleep(50 * time.Millisecond)
	job, err = m.GetStatus(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "cancelado")
}

func TestCancelTerminalJobFails(t *testing.T) {
	m := newTestManager(instantSearcher())

	created, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)
	waitForStatus(t, m, created.ID, models.JobStatusCompleted)

	err = m.Cancel(created.ID)
	assert.Error(t, err)

	job, err := m.GetStatus(created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status, "failed cancel must not alter the job")
}

func TestCancelUnknownJobFails(t *testing.T) {
	m := newTestManager(instantSearcher())
	assert.Error(t, m.Cancel("job_missing"))
}

func TestGetStatusUnknown(t *testing.T) {
	m := newTestManager(instantSearcher())
	_, err := m.GetStatus("job_missing")
	assert.Error(t, err)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	m := newTestManager(instantSearcher())

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
		require.NoError(t, err)
		ids = append(ids, job.ID)
		waitForStatus(t, m, job.ID, models.JobStatusCompleted)
	}

	// Force distinct creation times; Create calls can land on the same tick.
	m.mu.Lock()
	for i, id := range ids {
		m.jobs[id].job.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
	}
	m.mu.Unlock()

	listed := m.List(2)
	require.Len(t, listed, 2)
	assert.Equal(t, ids[2], listed[0].ID)
	assert.Equal(t, ids[1], listed[1].ID)
}

func TestPruneRemovesOnlyOldTerminalJobs(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newTestManager(blockingSearcher(release))

	running, err := m.Create(models.JobParams{Term: "mouse", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)

	finished, err := m.Create(models.JobParams{Term: "teclado", SupplierIDs: []string{"forn_a"}})
	require.NoError(t, err)
	require.NoError(t, m.Cancel(finished.ID)) // terminal via cancellation

	// Backdate both beyond the retention window.
	m.mu.Lock()
	m.jobs[running.ID].job.CreatedAt = time.Now().AddDate(0, 0, -30)
	m.jobs[finished.ID].job.CreatedAt = time.Now().AddDate(0, 0, -30)
	m.mu.Unlock()

	removed := m.Prune(7)
	assert.Equal(t, 1, removed)

	_, err = m.GetStatus(finished.ID)
	assert.Error(t, err, "terminal job should be pruned")
	_, err = m.GetStatus(running.ID)
	assert.NoError(t, err, "running job must never be pruned")
}

func TestListenSynthesizesFailureOnChannelClose(t *testing.T) {
	m := newTestManager(instantSearcher())

	job := &models.Job{
		ID:        "job_orphan",
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now(),
		Params:    models.JobParams{Term: "x"},
	}
	m.mu.Lock()
	m.jobs[job.ID] = &jobEntry{job: job, cancel: func() {}}
	m.mu.Unlock()

	ch := make(chan workerMessage)
	go close(ch)
	m.listen(job.ID, ch)

	got, err := m.GetStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "worker exited unexpectedly", got.Error)
}

func TestListenIgnoresMessagesAfterTerminal(t *testing.T) {
	m := newTestManager(instantSearcher())

	job := &models.Job{
		ID:        "job_chatty",
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now(),
		Params:    models.JobParams{Term: "x"},
	}
	m.mu.Lock()
	m.jobs[job.ID] = &jobEntry{job: job, cancel: func() {}}
	m.mu.Unlock()

	ch := make(chan workerMessage, 4)
	ch <- workerMessage{kind: msgCompleted, result: &models.JobResult{Quantity: 1}}
	ch <- workerMessage{kind: msgProgress, progress: &models.JobProgress{Stage: models.JobStageSearching}}
	ch <- workerMessage{kind: msgFailed, err: "late failure"}
	close(ch)
	m.listen(job.ID, ch)

	got, err := m.GetStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.Progress)
}

func TestFailForUnknownJobIsDropped(t *testing.T) {
	m := newTestManager(instantSearcher())

	m.fail("job_inexistente", "mensagem perdida")

	_, err := m.GetStatus("job_inexistente")
	assert.Error(t, err, "a dropped failure must not materialize a job")
}
