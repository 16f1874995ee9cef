package handlers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type stubDocuments struct {
	ingested []string
	ingest   func(fileName string, data []byte) (*models.Resume, error)
	deleted  []uuid.UUID
	jobReq   *models.CreateJobDescriptionRequest
	jobErr   error
}

func (s *stubDocuments) IngestResume(_ context.Context, fileName string, data []byte) (*models.Resume, error) {
	s.ingested = append(s.ingested, fileName)
	return s.ingest(fileName, data)
}

func (s *stubDocuments) CreateJobDescription(_ context.Context, req models.CreateJobDescriptionRequest) (*models.JobDescription, error) {
	s.jobReq = &req
	if s.jobErr != nil {
		return nil, s.jobErr
	}
	return &models.JobDescription{ID: uuid.New(), Title: req.Title}, nil
}

func (s *stubDocuments) DeleteResume(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubDocuments) DeleteJobDescription(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubResumes struct {
	resumes map[uuid.UUID]*models.Resume
}

func (s *stubResumes) Create(r *models.Resume) error {
	s.resumes[r.ID] = r
	return nil
}

func (s *stubResumes) FindByID(id uuid.UUID) (*models.Resume, error) {
	if r, ok := s.resumes[id]; ok {
		return r, nil
	}
	return nil, repositories.ErrNotFound
}

func (s *stubResumes) FindAll() ([]models.Resume, error) {
	out := make([]models.Resume, 0, len(s.resumes))
	for _, r := range s.resumes {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubResumes) Delete(id uuid.UUID) error {
	delete(s.resumes, id)
	return nil
}

func (s *stubResumes) Count() (int64, error) { return int64(len(s.resumes)), nil }

type stubJobs struct {
	jobs map[uuid.UUID]*models.JobDescription
}

func (s *stubJobs) Create(jd *models.JobDescription) error {
	s.jobs[jd.ID] = jd
	return nil
}

func (s *stubJobs) FindByID(id uuid.UUID) (*models.JobDescription, error) {
	if jd, ok := s.jobs[id]; ok {
		return jd, nil
	}
	return nil, repositories.ErrNotFound
}

func (s *stubJobs) FindAll() ([]models.JobDescription, error) {
	out := make([]models.JobDescription, 0, len(s.jobs))
	for _, jd := range s.jobs {
		out = append(out, *jd)
	}
	return out, nil
}

func (s *stubJobs) Delete(id uuid.UUID) error {
	delete(s.jobs, id)
	return nil
}

func (s *stubJobs) Count() (int64, error) { return int64(len(s.jobs)), nil }

type stubMatches struct {
	rows        []models.MatchResult
	shortlisted map[uuid.UUID]bool
}

func (s *stubMatches) Upsert(*models.MatchResult) error                    { return nil }
func (s *stubMatches) ReplaceForJob(uuid.UUID, []models.MatchResult) error { return nil }

func (s *stubMatches) FindByJob(jobDescriptionID uuid.UUID) ([]models.MatchResult, error) {
	var out []models.MatchResult
	for _, r := range s.rows {
		if r.JobDescriptionID == jobDescriptionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubMatches) FindByPair(jobDescriptionID, resumeID uuid.UUID) (*models.MatchResult, error) {
	for i := range s.rows {
		if s.rows[i].JobDescriptionID == jobDescriptionID && s.rows[i].ResumeID == resumeID {
			return &s.rows[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *stubMatches) SetShortlisted(jobDescriptionID, resumeID uuid.UUID, shortlisted bool) error {
	for i := range s.rows {
		if s.rows[i].JobDescriptionID == jobDescriptionID && s.rows[i].ResumeID == resumeID {
			s.rows[i].IsShortlisted = shortlisted
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *stubMatches) Count() (int64, error) { return int64(len(s.rows)), nil }

func (s *stubMatches) CountShortlisted() (int64, error) {
	var n int64
	for _, r := range s.rows {
		if r.IsShortlisted {
			n++
		}
	}
	return n, nil
}

type stubRuns struct {
	runs map[uuid.UUID]*models.MatchRun
}

func (s *stubRuns) Create(run *models.MatchRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *stubRuns) FindByID(id uuid.UUID) (*models.MatchRun, error) {
	if r, ok := s.runs[id]; ok {
		return r, nil
	}
	return nil, repositories.ErrNotFound
}

func (s *stubRuns) Claim(uuid.UUID) (bool, error)                  { return true, nil }
func (s *stubRuns) Complete(uuid.UUID, *models.RunReport) error    { return nil }
func (s *stubRuns) Fail(uuid.UUID, string) error                   { return nil }
func (s *stubRuns) FindPendingRuns(int) ([]models.MatchRun, error) { return nil, nil }

type stubWorker struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (w *stubWorker) Start(context.Context) {}
func (w *stubWorker) Stop()                 {}

func (w *stubWorker) EnqueueRun(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueued = append(w.enqueued, id)
}

type stubMatcher struct {
	batch    *services.BatchResult
	err      error
	lastOpts services.BatchOptions
	oneCalls int
	allCalls int
}

func (m *stubMatcher) MatchOne(_ context.Context, _, _ uuid.UUID, opts services.BatchOptions) (*services.BatchResult, error) {
	m.oneCalls++
	m.lastOpts = opts
	return m.batch, m.err
}

func (m *stubMatcher) MatchAllForJob(_ context.Context, _ uuid.UUID, opts services.BatchOptions) (*services.BatchResult, error) {
	m.allCalls++
	m.lastOpts = opts
	return m.batch, m.err
}

func (m *stubMatcher) MatchAllPairs(context.Context, services.BatchOptions) (*services.AllPairsResult, error) {
	return &services.AllPairsResult{}, nil
}
