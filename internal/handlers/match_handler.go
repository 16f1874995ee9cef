package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type MatchHandler struct {
	matcher   services.MatcherService
	jdRepo    repositories.JobDescriptionRepository
	matchRepo repositories.MatchResultRepository
	runRepo   repositories.MatchRunRepository
	worker    services.Worker
	defaults  services.BatchOptions
}

func NewMatchHandler(
	matcher services.MatcherService,
	jdRepo repositories.JobDescriptionRepository,
	matchRepo repositories.MatchResultRepository,
	runRepo repositories.MatchRunRepository,
	worker services.Worker,
	defaults services.BatchOptions,
) *MatchHandler {
	return &MatchHandler{
		matcher:   matcher,
		jdRepo:    jdRepo,
		matchRepo: matchRepo,
		runRepo:   runRepo,
		worker:    worker,
		defaults:  defaults,
	}
}

// options applies the request's top-k to the configured defaults. The
// strategy always comes from configuration.
func (h *MatchHandler) options(topK int) (services.BatchOptions, error) {
	opts := h.defaults
	if topK < 0 {
		return opts, errors.New("top_k must not be negative")
	}
	if topK > 0 {
		opts.TopK = topK
	}
	return opts, nil
}

// HandleMatch handles POST /match. With a resume_id one pair is scored;
// without one every resume is ranked for the job description.
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req models.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request payload")
	}

	jdID, err := uuid.Parse(req.JobDescriptionID)
	if err != nil {
		return badRequest(c, "invalid job_description_id format")
	}

	opts, err := h.options(req.TopK)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var batch *services.BatchResult
	if req.ResumeID != "" {
		resumeID, parseErr := uuid.Parse(req.ResumeID)
		if parseErr != nil {
			return badRequest(c, "invalid resume_id format")
		}
		batch, err = h.matcher.MatchOne(c.UserContext(), jdID, resumeID, opts)
	} else {
		batch, err = h.matcher.MatchAllForJob(c.UserContext(), jdID, opts)
	}

	if err != nil {
		// The ranking was computed but not stored.
		if batch != nil && errors.Is(err, services.ErrPersistence) {
			return c.Status(fiber.StatusInternalServerError).JSON(batch.Response())
		}
		return respondError(c, err)
	}

	return c.JSON(batch.Response())
}

// HandleListMatches handles GET /job-descriptions/:id/matches.
func (h *MatchHandler) HandleListMatches(c *fiber.Ctx) error {
	jdID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job description id format")
	}
	if _, err := h.jdRepo.FindByID(jdID); err != nil {
		return respondError(c, err)
	}

	results, err := h.matchRepo.FindByJob(jdID)
	if err != nil {
		return respondError(c, err)
	}

	resp := models.MatchResponse{
		JobDescriptionID: jdID.String(),
		Total:            len(results),
		Matches:          make([]models.MatchView, 0, len(results)),
	}
	if len(results) > 0 {
		resp.StrategyUsed = results[0].Strategy
	}
	for i := range results {
		resp.Matches = append(resp.Matches, results[i].View())
	}
	return c.JSON(resp)
}

// HandleShortlist handles PUT /matches/:jobId/:resumeId/shortlist.
func (h *MatchHandler) HandleShortlist(c *fiber.Ctx) error {
	jdID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return badRequest(c, "invalid job description id format")
	}
	resumeID, err := uuid.Parse(c.Params("resumeId"))
	if err != nil {
		return badRequest(c, "invalid resume id format")
	}

	var req models.ShortlistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request payload")
	}

	if err := h.matchRepo.SetShortlisted(jdID, resumeID, req.Shortlisted); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"job_description_id": jdID.String(),
		"resume_id":          resumeID.String(),
		"is_shortlisted":     req.Shortlisted,
	})
}

// HandleMatchAll handles POST /match-all by queueing a run for the worker.
func (h *MatchHandler) HandleMatchAll(c *fiber.Ctx) error {
	var req models.MatchAllRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request payload")
		}
	}
	if _, err := h.options(req.TopK); err != nil {
		return badRequest(c, err.Error())
	}

	run := &models.MatchRun{
		ID:       uuid.New(),
		Status:   models.StatusQueued,
		Strategy: string(h.defaults.Strategy),
		TopK:     req.TopK,
	}
	if err := h.runRepo.Create(run); err != nil {
		return respondError(c, err)
	}

	h.worker.EnqueueRun(run.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.MatchRunResponse{
		ID:       run.ID.String(),
		Status:   string(run.Status),
		Strategy: run.Strategy,
	})
}

// HandleGetRun handles GET /match-runs/:id.
func (h *MatchHandler) HandleGetRun(c *fiber.Ctx) error {
	runID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid match run id format")
	}

	run, err := h.runRepo.FindByID(runID)
	if err != nil {
		return respondError(c, err)
	}

	resp := models.MatchRunResponse{
		ID:       run.ID.String(),
		Status:   string(run.Status),
		Strategy: run.Strategy,
	}
	if run.Status == models.StatusCompleted {
		resp.Report = run.Report
	}
	if run.Status == models.StatusFailed {
		resp.ErrorMessage = run.ErrorMessage
	}
	return c.JSON(resp)
}
