package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

type StatsHandler struct {
	resumeRepo repositories.ResumeRepository
	jdRepo     repositories.JobDescriptionRepository
	matchRepo  repositories.MatchResultRepository
}

func NewStatsHandler(
	resumeRepo repositories.ResumeRepository,
	jdRepo repositories.JobDescriptionRepository,
	matchRepo repositories.MatchResultRepository,
) *StatsHandler {
	return &StatsHandler{
		resumeRepo: resumeRepo,
		jdRepo:     jdRepo,
		matchRepo:  matchRepo,
	}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(c *fiber.Ctx) error {
	var (
		stats models.StatsResponse
		err   error
	)

	if stats.TotalResumes, err = h.resumeRepo.Count(); err != nil {
		return respondError(c, err)
	}
	if stats.TotalJobDescriptions, err = h.jdRepo.Count(); err != nil {
		return respondError(c, err)
	}
	if stats.TotalMatches, err = h.matchRepo.Count(); err != nil {
		return respondError(c, err)
	}
	if stats.Shortlisted, err = h.matchRepo.CountShortlisted(); err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}
