package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]models.MatchRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]models.MatchRun)}
}

func (r *fakeRunRepo) Create(run *models.MatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.StatusQueued
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRunRepo) FindByID(id uuid.UUID) (*models.MatchRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("match run %s: %w", id, repositories.ErrNotFound)
	}
	return &run, nil
}

func (r *fakeRunRepo) Claim(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok || run.Status != models.StatusQueued {
		return false, nil
	}
	run.Status = models.StatusProcessing
	r.runs[id] = run
	return true, nil
}

func (r *fakeRunRepo) Complete(id uuid.UUID, report *models.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.Status = models.StatusCompleted
	run.Report = report
	r.runs[id] = run
	return nil
}

func (r *fakeRunRepo) Fail(id uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.Status = models.StatusFailed
	run.ErrorMessage = &errorMsg
	r.runs[id] = run
	return nil
}

func (r *fakeRunRepo) FindPendingRuns(limit int) ([]models.MatchRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MatchRun
	for _, run := range r.runs {
		if run.Status == models.StatusQueued && len(out) < limit {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *fakeRunRepo) status(id uuid.UUID) models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id].Status
}

func newTestWorker(t *testing.T, h *harness, runs *fakeRunRepo) *worker {
	t.Helper()
	w := NewWorker(runs, h.svc, WorkerOptions{
		Concurrency:  2,
		PollInterval: 20 * time.Millisecond,
		Defaults:     BatchOptions{Strategy: matching.StrategyLexical},
	}, zap.NewNop())
	return w.(*worker)
}

func TestWorkerRunOnceCompletesRun(t *testing.T) {
	jd := scenarioJob()
	h := newHarness(nil, []models.JobDescription{jd},
		resumeWith("20000000-0000-0000-0000-000000000001", "Python developer"))
	runs := newFakeRunRepo()
	run := &models.MatchRun{}
	require.NoError(t, runs.Create(run))

	w := newTestWorker(t, h, runs)
	require.NoError(t, w.runOnce(context.Background(), run.ID))

	stored, err := runs.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	require.NotNil(t, stored.Report)
	require.Len(t, stored.Report.Jobs, 1)
	assert.Equal(t, jd.ID, stored.Report.Jobs[0].JobDescriptionID)
	assert.Equal(t, 1, stored.Report.Jobs[0].Matched)

	require.NoError(t, w.runOnce(context.Background(), run.ID), "a finished run is not processed again")
}

func TestWorkerRunOnceRecordsFailure(t *testing.T) {
	h := newHarness(nil, nil)
	h.jobs.findErr = errStoreDown
	runs := newFakeRunRepo()
	run := &models.MatchRun{}
	require.NoError(t, runs.Create(run))

	w := newTestWorker(t, h, runs)
	assert.Error(t, w.runOnce(context.Background(), run.ID))

	stored, err := runs.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, errStoreDown.Error())
}

func TestWorkerRejectsUnknownRunStrategy(t *testing.T) {
	h := newHarness(nil, nil)
	runs := newFakeRunRepo()
	run := &models.MatchRun{Strategy: "bm25"}
	require.NoError(t, runs.Create(run))

	w := newTestWorker(t, h, runs)
	assert.Error(t, w.runOnce(context.Background(), run.ID))
	assert.Equal(t, models.StatusFailed, runs.status(run.ID))
}

func TestWorkerProcessesEnqueuedAndPendingRuns(t *testing.T) {
	jd := scenarioJob()
	h := newHarness(nil, []models.JobDescription{jd},
		resumeWith("20000000-0000-0000-0000-000000000001", "Python developer"))
	runs := newFakeRunRepo()
	enqueued := &models.MatchRun{}
	pending := &models.MatchRun{}
	require.NoError(t, runs.Create(enqueued))
	require.NoError(t, runs.Create(pending))

	w := newTestWorker(t, h, runs)
	w.Start(context.Background())
	defer w.Stop()

	w.EnqueueRun(enqueued.ID)

	require.Eventually(t, func() bool {
		return runs.status(enqueued.ID) == models.StatusCompleted &&
			runs.status(pending.ID) == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
