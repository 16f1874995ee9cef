package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

// BatchOptions are chosen per call; the orchestrator holds no strategy of
// its own.
type BatchOptions struct {
	Strategy      matching.StrategyName
	AllowFallback bool
	// TopK truncates the returned ranking; every result is still stored.
	TopK int
}

// BatchResult is the ranking of resumes for one job description.
type BatchResult struct {
	JobDescriptionID uuid.UUID
	StrategyUsed     matching.StrategyName
	Degraded         bool
	FallbackReason   string
	// Results are ordered by score, best first; ties go to the lower
	// resume id.
	Results      []models.MatchResult
	Total        int
	Skipped      []models.SkippedResume
	PersistError error

	firstErr error
}

// Report flattens the batch for storage in a match run.
func (b *BatchResult) Report() models.JobReport {
	r := models.JobReport{
		JobDescriptionID: b.JobDescriptionID,
		StrategyUsed:     string(b.StrategyUsed),
		Degraded:         b.Degraded,
		FallbackReason:   b.FallbackReason,
		Matched:          b.Total,
		Skipped:          b.Skipped,
	}
	if b.PersistError != nil {
		r.PersistError = b.PersistError.Error()
	}
	return r
}

// Response renders the batch as returned to API and CLI callers.
func (b *BatchResult) Response() models.MatchResponse {
	resp := models.MatchResponse{
		JobDescriptionID: b.JobDescriptionID.String(),
		StrategyUsed:     string(b.StrategyUsed),
		Degraded:         b.Degraded,
		FallbackReason:   b.FallbackReason,
		Total:            b.Total,
		Matches:          make([]models.MatchView, 0, len(b.Results)),
		Skipped:          b.Skipped,
	}
	if b.PersistError != nil {
		resp.PersistError = b.PersistError.Error()
	}
	for i := range b.Results {
		resp.Matches = append(resp.Matches, b.Results[i].View())
	}
	return resp
}

// AllPairsResult collects the batches of a many-to-many run. A job that could
// not be matched at all is listed in Failed.
type AllPairsResult struct {
	Jobs   []*BatchResult
	Failed []models.JobFailure
}

func (a *AllPairsResult) Report() *models.RunReport {
	report := &models.RunReport{
		Jobs:   make([]models.JobReport, 0, len(a.Jobs)),
		Failed: a.Failed,
	}
	for _, b := range a.Jobs {
		report.Jobs = append(report.Jobs, b.Report())
	}
	if report.Failed == nil {
		report.Failed = []models.JobFailure{}
	}
	return report
}

type MatcherService interface {
	MatchOne(ctx context.Context, jobDescriptionID, resumeID uuid.UUID, opts BatchOptions) (*BatchResult, error)
	MatchAllForJob(ctx context.Context, jobDescriptionID uuid.UUID, opts BatchOptions) (*BatchResult, error)
	MatchAllPairs(ctx context.Context, opts BatchOptions) (*AllPairsResult, error)
}

type matcherService struct {
	jdRepo     repositories.JobDescriptionRepository
	resumeRepo repositories.ResumeRepository
	matchRepo  repositories.MatchResultRepository
	extractor  *matching.Extractor
	lexical    matching.Similarity
	semantic   matching.Similarity
	workers    int
	logger     *zap.Logger
}

// NewMatcherService wires the orchestrator. semantic may be nil when no
// embedding service is configured; semantic batches then fail or fall back.
func NewMatcherService(
	jdRepo repositories.JobDescriptionRepository,
	resumeRepo repositories.ResumeRepository,
	matchRepo repositories.MatchResultRepository,
	semantic matching.Similarity,
	workers int,
	logger *zap.Logger,
) MatcherService {
	if workers <= 0 {
		workers = 4
	}
	return &matcherService{
		jdRepo:     jdRepo,
		resumeRepo: resumeRepo,
		matchRepo:  matchRepo,
		extractor:  matching.NewExtractor(nil),
		lexical:    matching.NewLexical(),
		semantic:   semantic,
		workers:    workers,
		logger:     logger,
	}
}

// MatchOne implements MatcherService. The corpus is the job description and
// this one resume. The stored row keeps its shortlist flag; its rank is 0
// because ranks are only assigned by one-to-many batches.
func (m *matcherService) MatchOne(ctx context.Context, jobDescriptionID, resumeID uuid.UUID, opts BatchOptions) (*BatchResult, error) {
	jd, err := m.jdRepo.FindByID(jobDescriptionID)
	if err != nil {
		return nil, err
	}
	resume, err := m.resumeRepo.FindByID(resumeID)
	if err != nil {
		return nil, err
	}
	if resume.Document().IsEmpty() {
		return nil, fmt.Errorf("resume %s has no text: %w", resume.ID, ErrInvalidInput)
	}

	batch, err := m.rank(ctx, jd, []models.Resume{*resume}, opts)
	if err != nil {
		return nil, err
	}
	if len(batch.Results) == 0 {
		return nil, batch.firstErr
	}

	result := batch.Results[0]
	result.Rank = 0
	if err := m.matchRepo.Upsert(&result); err != nil {
		batch.PersistError = err
		batch.Results[0] = result
		return batch, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if stored, err := m.matchRepo.FindByPair(jd.ID, resume.ID); err == nil {
		result.IsShortlisted = stored.IsShortlisted
	}
	batch.Results[0] = result

	return batch, nil
}

// MatchAllForJob implements MatcherService. The JD's stored results are
// replaced atomically. When storing fails the ranking is still returned,
// together with an error wrapping ErrPersistence.
func (m *matcherService) MatchAllForJob(ctx context.Context, jobDescriptionID uuid.UUID, opts BatchOptions) (*BatchResult, error) {
	jd, err := m.jdRepo.FindByID(jobDescriptionID)
	if err != nil {
		return nil, err
	}
	resumes, err := m.resumeRepo.FindAll()
	if err != nil {
		return nil, err
	}
	return m.matchJob(ctx, jd, resumes, opts)
}

// MatchAllPairs implements MatcherService. Every job is ranked against the
// same snapshot of resumes; a failing job does not stop the others.
func (m *matcherService) MatchAllPairs(ctx context.Context, opts BatchOptions) (*AllPairsResult, error) {
	jds, err := m.jdRepo.FindAll()
	if err != nil {
		return nil, err
	}
	resumes, err := m.resumeRepo.FindAll()
	if err != nil {
		return nil, err
	}

	out := &AllPairsResult{}
	for i := range jds {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		batch, err := m.matchJob(ctx, &jds[i], resumes, opts)
		if batch != nil {
			out.Jobs = append(out.Jobs, batch)
		}
		if err != nil && batch == nil {
			m.logger.Warn("job match failed", zap.String("job_description_id", jds[i].ID.String()), zap.Error(err))
			out.Failed = append(out.Failed, models.JobFailure{
				JobDescriptionID: jds[i].ID,
				Error:            err.Error(),
			})
		}
	}

	m.logger.Info("all pairs matched",
		zap.Int("jobs", len(out.Jobs)),
		zap.Int("failed", len(out.Failed)),
		zap.Int("resumes", len(resumes)))
	return out, nil
}

func (m *matcherService) matchJob(ctx context.Context, jd *models.JobDescription, resumes []models.Resume, opts BatchOptions) (*BatchResult, error) {
	batch, err := m.rank(ctx, jd, resumes, opts)
	if err != nil {
		return nil, err
	}

	if err := m.matchRepo.ReplaceForJob(jd.ID, batch.Results); err != nil {
		m.logger.Error("failed to store match results", zap.String("job_description_id", jd.ID.String()), zap.Error(err))
		batch.PersistError = err
		batch.truncate(opts.TopK)
		return batch, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	m.logger.Info("job matched",
		zap.String("job_description_id", jd.ID.String()),
		zap.String("strategy", string(batch.StrategyUsed)),
		zap.Bool("degraded", batch.Degraded),
		zap.Int("matched", batch.Total),
		zap.Int("skipped", len(batch.Skipped)))

	batch.truncate(opts.TopK)
	return batch, nil
}

func (b *BatchResult) truncate(topK int) {
	if topK > 0 && topK < len(b.Results) {
		b.Results = b.Results[:topK]
	}
}

type candidate struct {
	resume models.Resume
	doc    matching.Document
}

type outcome struct {
	result *models.MatchResult
	err    error
}

// rank scores every resume against jd and orders the results. It applies the
// fallback policy but does not store anything.
func (m *matcherService) rank(ctx context.Context, jd *models.JobDescription, resumes []models.Resume, opts BatchOptions) (*BatchResult, error) {
	jdDoc := jd.Document()
	if jdDoc.IsEmpty() {
		return nil, fmt.Errorf("job description %s has no text: %w", jd.ID, ErrInvalidInput)
	}
	jdSkills := matching.MergeSkills(jd.Skills, m.extractor.Skills(jdDoc.Text))

	batch := &BatchResult{JobDescriptionID: jd.ID}
	cands := make([]candidate, 0, len(resumes))
	docs := make([]matching.Document, 0, len(resumes)+1)
	docs = append(docs, jdDoc)
	for _, r := range resumes {
		doc := r.Document()
		if doc.IsEmpty() {
			batch.Skipped = append(batch.Skipped, models.SkippedResume{ResumeID: r.ID, Reason: "resume has no text"})
			if batch.firstErr == nil {
				batch.firstErr = fmt.Errorf("resume %s has no text: %w", r.ID, ErrInvalidInput)
			}
			continue
		}
		cands = append(cands, candidate{resume: r, doc: doc})
		docs = append(docs, doc)
	}
	corpus := matching.NewCorpus(docs...)

	sim, err := m.similarity(opts.Strategy)
	if err != nil {
		if !opts.AllowFallback || !errors.Is(err, matching.ErrSimilarityUnavailable) {
			return nil, err
		}
		batch.degrade(err.Error())
		sim = m.lexical
	}

	outcomes, err := m.score(ctx, sim, jd.ID, jdDoc, jdSkills, cands, corpus)
	if err != nil {
		if !m.canFallBack(sim, err, opts) {
			return nil, err
		}
		batch.degrade(fmt.Sprintf("job description embedding failed: %v", err))
		sim = m.lexical
		if outcomes, err = m.score(ctx, sim, jd.ID, jdDoc, jdSkills, cands, corpus); err != nil {
			return nil, err
		}
	}

	if reason, ok := allUnavailable(outcomes); ok && m.canFallBack(sim, matching.ErrSimilarityUnavailable, opts) {
		batch.degrade("every resume embedding failed: " + reason)
		sim = m.lexical
		if outcomes, err = m.score(ctx, sim, jd.ID, jdDoc, jdSkills, cands, corpus); err != nil {
			return nil, err
		}
	}

	batch.StrategyUsed = sim.Name()
	for i, o := range outcomes {
		if o.err != nil {
			batch.Skipped = append(batch.Skipped, models.SkippedResume{ResumeID: cands[i].resume.ID, Reason: o.err.Error()})
			if batch.firstErr == nil {
				batch.firstErr = o.err
			}
			continue
		}
		batch.Results = append(batch.Results, *o.result)
	}

	sortResults(batch.Results)
	for i := range batch.Results {
		batch.Results[i].Rank = i + 1
	}
	batch.Total = len(batch.Results)
	return batch, nil
}

func (b *BatchResult) degrade(reason string) {
	b.Degraded = true
	if b.FallbackReason == "" {
		b.FallbackReason = reason
	}
}

func (m *matcherService) similarity(name matching.StrategyName) (matching.Similarity, error) {
	switch name {
	case matching.StrategyLexical, "":
		return m.lexical, nil
	case matching.StrategySemantic:
		if m.semantic == nil {
			return nil, fmt.Errorf("semantic strategy is not configured: %w", matching.ErrSimilarityUnavailable)
		}
		return m.semantic, nil
	}
	return nil, fmt.Errorf("unknown strategy %q: %w", name, ErrInvalidInput)
}

func (m *matcherService) canFallBack(sim matching.Similarity, err error, opts BatchOptions) bool {
	return opts.AllowFallback &&
		sim.Name() != matching.StrategyLexical &&
		errors.Is(err, matching.ErrSimilarityUnavailable)
}

// allUnavailable reports whether there was at least one resume and every one
// failed because the similarity service was unavailable.
func allUnavailable(outcomes []outcome) (string, bool) {
	if len(outcomes) == 0 {
		return "", false
	}
	for _, o := range outcomes {
		if o.err == nil || !errors.Is(o.err, matching.ErrSimilarityUnavailable) {
			return "", false
		}
	}
	return outcomes[0].err.Error(), true
}

// score runs extraction and scoring on a bounded pool. Per-resume failures
// are returned in the outcomes; the error is for failures that affect the
// whole batch.
func (m *matcherService) score(
	ctx context.Context,
	sim matching.Similarity,
	jdID uuid.UUID,
	jdDoc matching.Document,
	jdSkills []string,
	cands []candidate,
	corpus *matching.Corpus,
) ([]outcome, error) {
	if p, ok := sim.(matching.Preparer); ok {
		if err := p.Prepare(ctx, jdDoc, corpus); err != nil {
			return nil, err
		}
	}

	outcomes := make([]outcome, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range cands {
		c := cands[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			profile := m.extractor.Extract(c.doc.Text)
			s, err := sim.Score(gctx, jdDoc, c.doc, corpus)
			if err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}

			matched := matching.MatchSkills(jdSkills, profile.Skills)
			if matched == nil {
				matched = []string{}
			}
			outcomes[i] = outcome{result: &models.MatchResult{
				ID:               models.MatchID(jdID, c.resume.ID),
				JobDescriptionID: jdID,
				ResumeID:         c.resume.ID,
				SimilarityScore:  matching.ToPercent(s),
				MatchedSkills:    matched,
				Highlights:       matching.Highlights(profile, matched),
				Strategy:         string(sim.Name()),
				Resume:           c.resume,
			}}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func sortResults(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return bytes.Compare(results[i].ResumeID[:], results[j].ResumeID[:]) < 0
	})
}
