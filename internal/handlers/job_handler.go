package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type JobDescriptionHandler struct {
	documents services.DocumentService
	jdRepo    repositories.JobDescriptionRepository
}

func NewJobDescriptionHandler(documents services.DocumentService, jdRepo repositories.JobDescriptionRepository) *JobDescriptionHandler {
	return &JobDescriptionHandler{
		documents: documents,
		jdRepo:    jdRepo,
	}
}

// HandleCreate handles POST /job-descriptions, as JSON or form fields.
func (h *JobDescriptionHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobDescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request payload")
	}

	jd, err := h.documents.CreateJobDescription(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(jd)
}

// HandleList handles GET /job-descriptions.
func (h *JobDescriptionHandler) HandleList(c *fiber.Ctx) error {
	jds, err := h.jdRepo.FindAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"job_descriptions": jds,
		"total":            len(jds),
	})
}

// HandleGet handles GET /job-descriptions/:id.
func (h *JobDescriptionHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job description id format")
	}

	jd, err := h.jdRepo.FindByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(jd)
}

// HandleDelete handles DELETE /job-descriptions/:id.
func (h *JobDescriptionHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job description id format")
	}

	if err := h.documents.DeleteJobDescription(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
