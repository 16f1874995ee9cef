package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Resumes *ResumeHandler
	Jobs    *JobDescriptionHandler
	Matches *MatchHandler
	Stats   *StatsHandler
}

// Register mounts every endpoint on api.
func (h *Handlers) Register(api fiber.Router) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/resumes", h.Resumes.HandleUpload)
	api.Get("/resumes", h.Resumes.HandleList)
	api.Get("/resumes/:id", h.Resumes.HandleGet)
	api.Delete("/resumes/:id", h.Resumes.HandleDelete)

	api.Post("/job-descriptions", h.Jobs.HandleCreate)
	api.Get("/job-descriptions", h.Jobs.HandleList)
	api.Get("/job-descriptions/:id", h.Jobs.HandleGet)
	api.Delete("/job-descriptions/:id", h.Jobs.HandleDelete)
	api.Get("/job-descriptions/:id/matches", h.Matches.HandleListMatches)

	api.Post("/match", h.Matches.HandleMatch)
	api.Put("/matches/:jobId/:resumeId/shortlist", h.Matches.HandleShortlist)
	api.Post("/match-all", h.Matches.HandleMatchAll)
	api.Get("/match-runs/:id", h.Matches.HandleGetRun)

	api.Get("/stats", h.Stats.HandleStats)
	api.Get("/skills", HandleSkills)
}

// Endpoints lists the routes for the index page.
var Endpoints = []string{
	"POST /api/v1/resumes",
	"GET /api/v1/resumes",
	"GET /api/v1/resumes/:id",
	"DELETE /api/v1/resumes/:id",
	"POST /api/v1/job-descriptions",
	"GET /api/v1/job-descriptions",
	"GET /api/v1/job-descriptions/:id",
	"DELETE /api/v1/job-descriptions/:id",
	"GET /api/v1/job-descriptions/:id/matches",
	"POST /api/v1/match",
	"PUT /api/v1/matches/:jobId/:resumeId/shortlist",
	"POST /api/v1/match-all",
	"GET /api/v1/match-runs/:id",
	"GET /api/v1/stats",
	"GET /api/v1/skills",
	"GET /api/v1/health",
}
