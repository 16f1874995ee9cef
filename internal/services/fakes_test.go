package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type fakeJobRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]models.JobDescription
	order   []uuid.UUID
	findErr error
}

func newFakeJobRepo(jds ...models.JobDescription) *fakeJobRepo {
	r := &fakeJobRepo{items: make(map[uuid.UUID]models.JobDescription)}
	for _, jd := range jds {
		_ = r.Create(&jd)
	}
	return r
}

func (r *fakeJobRepo) Create(jd *models.JobDescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if jd.ID == uuid.Nil {
		jd.ID = uuid.New()
	}
	r.items[jd.ID] = *jd
	r.order = append(r.order, jd.ID)
	return nil
}

func (r *fakeJobRepo) FindByID(id uuid.UUID) (*models.JobDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jd, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("job description %s: %w", id, repositories.ErrNotFound)
	}
	return &jd, nil
}

func (r *fakeJobRepo) FindAll() ([]models.JobDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []models.JobDescription
	for _, id := range r.order {
		if jd, ok := r.items[id]; ok {
			out = append(out, jd)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("job description %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *fakeJobRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeResumeRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Resume
}

func newFakeResumeRepo(resumes ...models.Resume) *fakeResumeRepo {
	r := &fakeResumeRepo{items: make(map[uuid.UUID]models.Resume)}
	for _, res := range resumes {
		_ = r.Create(&res)
	}
	return r
}

func (r *fakeResumeRepo) Create(resume *models.Resume) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	r.items[resume.ID] = *resume
	return nil
}

func (r *fakeResumeRepo) FindByID(id uuid.UUID) (*models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("resume %s: %w", id, repositories.ErrNotFound)
	}
	return &res, nil
}

func (r *fakeResumeRepo) FindAll() ([]models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Resume, 0, len(r.items))
	for _, res := range r.items {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (r *fakeResumeRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("resume %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func (r *fakeResumeRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeMatchRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]map[uuid.UUID]models.MatchResult
	replaceErr error
	replaces   int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{rows: make(map[uuid.UUID]map[uuid.UUID]models.MatchResult)}
}

func (r *fakeMatchRepo) Upsert(result *models.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byJob := r.rows[result.JobDescriptionID]
	if byJob == nil {
		byJob = make(map[uuid.UUID]models.MatchResult)
		r.rows[result.JobDescriptionID] = byJob
	}
	row := *result
	if old, ok := byJob[result.ResumeID]; ok {
		row.IsShortlisted = old.IsShortlisted
	}
	byJob[result.ResumeID] = row
	return nil
}

func (r *fakeMatchRepo) ReplaceForJob(jobDescriptionID uuid.UUID, results []models.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.replaces++
	old := r.rows[jobDescriptionID]
	byJob := make(map[uuid.UUID]models.MatchResult, len(results))
	for i := range results {
		if prev, ok := old[results[i].ResumeID]; ok && prev.IsShortlisted {
			results[i].IsShortlisted = true
		}
		byJob[results[i].ResumeID] = results[i]
	}
	r.rows[jobDescriptionID] = byJob
	return nil
}

func (r *fakeMatchRepo) FindByJob(jobDescriptionID uuid.UUID) ([]models.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MatchResult, 0, len(r.rows[jobDescriptionID]))
	for _, row := range r.rows[jobDescriptionID] {
		out = append(out, row)
	}
	sortResults(out)
	return out, nil
}

func (r *fakeMatchRepo) FindByPair(jobDescriptionID, resumeID uuid.UUID) (*models.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[jobDescriptionID][resumeID]
	if !ok {
		return nil, fmt.Errorf("match: %w", repositories.ErrNotFound)
	}
	return &row, nil
}

func (r *fakeMatchRepo) SetShortlisted(jobDescriptionID, resumeID uuid.UUID, shortlisted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[jobDescriptionID][resumeID]
	if !ok {
		return fmt.Errorf("match: %w", repositories.ErrNotFound)
	}
	row.IsShortlisted = shortlisted
	r.rows[jobDescriptionID][resumeID] = row
	return nil
}

func (r *fakeMatchRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, byJob := range r.rows {
		n += int64(len(byJob))
	}
	return n, nil
}

func (r *fakeMatchRepo) CountShortlisted() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, byJob := range r.rows {
		for _, row := range byJob {
			if row.IsShortlisted {
				n++
			}
		}
	}
	return n, nil
}

// textEmbedder derives a vector from letter frequencies and fails for any
// text containing a marker.
type textEmbedder struct {
	failOn string
	calls  atomic.Int32
}

func (e *textEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, fmt.Errorf("%w: upstream timeout", ErrServiceUnavailable)
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

var errStoreDown = errors.New("connection reset by peer")

var _ matching.Embedder = (*textEmbedder)(nil)
