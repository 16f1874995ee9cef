package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/services"
)

var (
	jobID     = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	aliceID   = uuid.MustParse("20000000-0000-0000-0000-000000000001")
	bobID     = uuid.MustParse("20000000-0000-0000-0000-000000000002")
	missingID = uuid.MustParse("90000000-0000-0000-0000-000000000009")
)

type testEnv struct {
	app       *fiber.App
	documents *stubDocuments
	resumes   *stubResumes
	jobs      *stubJobs
	matches   *stubMatches
	runs      *stubRuns
	worker    *stubWorker
	matcher   *stubMatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		documents: &stubDocuments{ingest: func(name string, _ []byte) (*models.Resume, error) {
			return &models.Resume{ID: uuid.New(), FileName: name, CandidateName: "Jane Doe"}, nil
		}},
		resumes: &stubResumes{resumes: map[uuid.UUID]*models.Resume{
			aliceID: {ID: aliceID, FileName: "alice.pdf", CandidateName: "Alice", NormalizedText: "alice text"},
			bobID:   {ID: bobID, FileName: "bob.txt", CandidateName: "Bob"},
		}},
		jobs: &stubJobs{jobs: map[uuid.UUID]*models.JobDescription{
			jobID: {ID: jobID, Title: "Backend Engineer"},
		}},
		matches: &stubMatches{},
		runs:    &stubRuns{runs: map[uuid.UUID]*models.MatchRun{}},
		worker:  &stubWorker{},
		matcher: &stubMatcher{},
	}

	defaults := services.BatchOptions{Strategy: matching.StrategySemantic, AllowFallback: true, TopK: 0}
	h := &Handlers{
		Resumes: NewResumeHandler(env.documents, env.resumes, 1024),
		Jobs:    NewJobDescriptionHandler(env.documents, env.jobs),
		Matches: NewMatchHandler(env.matcher, env.jobs, env.matches, env.runs, env.worker, defaults),
		Stats:   NewStatsHandler(env.resumes, env.jobs, env.matches),
	}

	env.app = fiber.New()
	h.Register(env.app.Group("/api/v1"))
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	}
	return resp, decoded
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func sampleBatch() *services.BatchResult {
	return &services.BatchResult{
		JobDescriptionID: jobID,
		StrategyUsed:     matching.StrategyLexical,
		Degraded:         true,
		FallbackReason:   "semantic similarity unavailable",
		Total:            2,
		Results: []models.MatchResult{
			{
				JobDescriptionID: jobID,
				ResumeID:         aliceID,
				SimilarityScore:  71.46,
				MatchedSkills:    []string{"Python", "SQL"},
				Highlights:       []string{"6 years of experience"},
				Rank:             1,
				Strategy:         "lexical",
				Resume:           models.Resume{ID: aliceID, CandidateName: "Alice", FileName: "alice.pdf"},
			},
			{
				JobDescriptionID: jobID,
				ResumeID:         bobID,
				SimilarityScore:  12.5,
				Rank:             2,
				Strategy:         "lexical",
				Resume:           models.Resume{ID: bobID, CandidateName: "Bob", FileName: "bob.txt"},
			},
		},
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestUploadReportsPerFileFailures(t *testing.T) {
	env := newTestEnv(t)
	env.documents.ingest = func(name string, _ []byte) (*models.Resume, error) {
		if name == "photo.png" {
			return nil, fmt.Errorf("%w: .png", services.ErrUnsupportedFormat)
		}
		return &models.Resume{ID: aliceID, FileName: name, CandidateName: "Alice"}, nil
	}

	resp, body := env.do(t, uploadRequest(t, map[string][]byte{
		"alice.txt": []byte("Alice resume"),
		"photo.png": []byte("not a resume"),
	}))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, body["uploaded"], 1)
	require.Len(t, body["failed"], 1)
	failed := body["failed"].([]any)[0].(map[string]any)
	assert.Equal(t, "photo.png", failed["file_name"])
}

func TestUploadAllFailedUsesErrorStatus(t *testing.T) {
	env := newTestEnv(t)
	env.documents.ingest = func(string, []byte) (*models.Resume, error) {
		return nil, fmt.Errorf("%w: broken xref", services.ErrCorruptFile)
	}

	resp, body := env.do(t, uploadRequest(t, map[string][]byte{"cv.pdf": []byte("%PDF-garbage")}))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "broken xref")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, uploadRequest(t, map[string][]byte{"big.txt": bytes.Repeat([]byte("a"), 2048)}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.documents.ingested)
}

func TestUploadWithoutFiles(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, uploadRequest(t, map[string][]byte{}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetResume(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+aliceID.String(), nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice text", body["normalized_text"])

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/"+missingID.String(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/resumes/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteResume(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/resumes/"+aliceID.String(), nil))

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []uuid.UUID{aliceID}, env.documents.deleted)
}

func TestCreateJobDescription(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/job-descriptions", map[string]string{
		"title":  "Data Engineer",
		"skills": "Python, Spark",
	}))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Data Engineer", body["title"])
	require.NotNil(t, env.documents.jobReq)
	assert.Equal(t, "Python, Spark", env.documents.jobReq.Skills)
}

func TestCreateJobDescriptionInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.documents.jobErr = fmt.Errorf("%w: title is required", services.ErrInvalidInput)

	resp, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/job-descriptions", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchRanksJob(t *testing.T) {
	env := newTestEnv(t)
	env.matcher.batch = sampleBatch()

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match", map[string]any{
		"job_description_id": jobID.String(),
		"top_k":              5,
	}))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.matcher.allCalls)
	assert.Equal(t, matching.StrategySemantic, env.matcher.lastOpts.Strategy)
	assert.Equal(t, 5, env.matcher.lastOpts.TopK)
	assert.True(t, env.matcher.lastOpts.AllowFallback)

	assert.Equal(t, "lexical", body["strategy_used"])
	assert.Equal(t, true, body["degraded"])
	matches := body["matches"].([]any)
	require.Len(t, matches, 2)
	first := matches[0].(map[string]any)
	assert.Equal(t, "Alice", first["candidate_name"])
	assert.Equal(t, 71.46, first["similarity_score"])
	assert.Equal(t, float64(71), first["display_score"])
	assert.Equal(t, float64(1), first["rank"])
}

func TestMatchSinglePair(t *testing.T) {
	env := newTestEnv(t)
	batch := sampleBatch()
	batch.Results = batch.Results[:1]
	batch.Total = 1
	env.matcher.batch = batch

	resp, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match", map[string]any{
		"job_description_id": jobID.String(),
		"resume_id":          aliceID.String(),
	}))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.matcher.oneCalls)
	assert.Zero(t, env.matcher.allCalls)
	assert.Equal(t, matching.StrategySemantic, env.matcher.lastOpts.Strategy)
}

func TestMatchValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"bad job id", map[string]any{"job_description_id": "nope"}},
		{"bad resume id", map[string]any{"job_description_id": jobID.String(), "resume_id": "nope"}},
		{"negative top k", map[string]any{"job_description_id": jobID.String(), "top_k": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match", tt.payload))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Zero(t, env.matcher.oneCalls+env.matcher.allCalls)
		})
	}
}

func TestMatchErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("failed to find job description: %w", services.ErrNotFound), http.StatusNotFound},
		{"semantic down", fmt.Errorf("%w: timeout", services.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.matcher.err = tt.err

			resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match", map[string]any{
				"job_description_id": jobID.String(),
			}))

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, float64(tt.want), body["code"])
		})
	}
}

func TestMatchPersistenceFailureStillReturnsRanking(t *testing.T) {
	env := newTestEnv(t)
	batch := sampleBatch()
	batch.PersistError = fmt.Errorf("%w: connection reset", services.ErrPersistence)
	env.matcher.batch = batch
	env.matcher.err = batch.PersistError

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match", map[string]any{
		"job_description_id": jobID.String(),
	}))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Len(t, body["matches"], 2)
	assert.Contains(t, body["persist_error"], "connection reset")
}

func TestListMatches(t *testing.T) {
	env := newTestEnv(t)
	env.matches.rows = sampleBatch().Results

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/job-descriptions/"+jobID.String()+"/matches", nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, "lexical", body["strategy_used"])

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/job-descriptions/"+missingID.String()+"/matches", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShortlist(t *testing.T) {
	env := newTestEnv(t)
	env.matches.rows = sampleBatch().Results

	target := fmt.Sprintf("/api/v1/matches/%s/%s/shortlist", jobID, bobID)
	resp, body := env.do(t, jsonRequest(http.MethodPut, target, map[string]bool{"shortlisted": true}))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_shortlisted"])
	assert.True(t, env.matches.rows[1].IsShortlisted)

	target = fmt.Sprintf("/api/v1/matches/%s/%s/shortlist", jobID, missingID)
	resp, _ = env.do(t, jsonRequest(http.MethodPut, target, map[string]bool{"shortlisted": true}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchAllQueuesRun(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match-all", map[string]any{"top_k": 3}))

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "queued", body["status"])

	id, err := uuid.Parse(body["id"].(string))
	require.NoError(t, err)
	require.Contains(t, env.runs.runs, id)
	assert.Equal(t, "semantic", env.runs.runs[id].Strategy)
	assert.Equal(t, 3, env.runs.runs[id].TopK)
	assert.Equal(t, []uuid.UUID{id}, env.worker.enqueued)
}

func TestMatchAllWithoutBody(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/match-all", nil))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Len(t, env.worker.enqueued, 1)
}

func TestMatchAllRejectsNegativeTopK(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/match-all", map[string]any{"top_k": -2}))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.runs.runs)
	assert.Empty(t, env.worker.enqueued)
}

func TestGetRun(t *testing.T) {
	env := newTestEnv(t)
	runID := uuid.New()
	env.runs.runs[runID] = &models.MatchRun{
		ID:     runID,
		Status: models.StatusCompleted,
		Report: &models.RunReport{
			Jobs:   []models.JobReport{{JobDescriptionID: jobID, StrategyUsed: "lexical", Matched: 2}},
			Failed: []models.JobFailure{},
		},
	}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/match-runs/"+runID.String(), nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	report := body["report"].(map[string]any)
	assert.Len(t, report["jobs"], 1)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/match-runs/"+missingID.String(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	rows := sampleBatch().Results
	rows[0].IsShortlisted = true
	env.matches.rows = rows

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total_resumes"])
	assert.Equal(t, float64(1), body["total_job_descriptions"])
	assert.Equal(t, float64(2), body["total_matches"])
	assert.Equal(t, float64(1), body["shortlisted"])
}

func TestSkills(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/skills", nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["skills"], "Python")
	assert.Equal(t, float64(len(matching.DefaultVocabulary.Names())), body["total"])
}
