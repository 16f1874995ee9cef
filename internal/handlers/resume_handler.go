package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

type ResumeHandler struct {
	documents   services.DocumentService
	resumeRepo  repositories.ResumeRepository
	maxFileSize int64
}

func NewResumeHandler(
	documents services.DocumentService,
	resumeRepo repositories.ResumeRepository,
	maxFileSize int64,
) *ResumeHandler {
	return &ResumeHandler{
		documents:   documents,
		resumeRepo:  resumeRepo,
		maxFileSize: maxFileSize,
	}
}

// HandleUpload handles POST /resumes. Every "file" part is ingested on its
// own; files that fail are reported next to the ones that succeed.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "failed to parse multipart form")
	}

	files := append(form.File["file"], form.File["files"]...)
	if len(files) == 0 {
		return badRequest(c, "no files uploaded, send one or more 'file' parts (pdf, docx or txt)")
	}

	var resp models.UploadResumesResponse
	var lastErr error
	for _, fh := range files {
		resume, err := h.ingest(c, fh)
		if err != nil {
			lastErr = err
			resp.Failed = append(resp.Failed, models.UploadError{FileName: fh.Filename, Error: err.Error()})
			continue
		}
		resp.Uploaded = append(resp.Uploaded, models.UploadResponse{
			ID:            resume.ID.String(),
			FileName:      resume.FileName,
			CandidateName: resume.CandidateName,
			Email:         resume.Email,
			Skills:        resume.Skills,
		})
	}

	if len(resp.Uploaded) == 0 {
		return respondError(c, lastErr)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *ResumeHandler) ingest(c *fiber.Ctx, fh *multipart.FileHeader) (*models.Resume, error) {
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		return nil, fmt.Errorf("file too large, max size %d bytes: %w", h.maxFileSize, services.ErrInvalidInput)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return h.documents.IngestResume(c.UserContext(), fh.Filename, data)
}

// HandleList handles GET /resumes.
func (h *ResumeHandler) HandleList(c *fiber.Ctx) error {
	resumes, err := h.resumeRepo.FindAll()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"resumes": resumes,
		"total":   len(resumes),
	})
}

// HandleGet handles GET /resumes/:id.
func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid resume id format")
	}

	resume, err := h.resumeRepo.FindByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"resume":          resume,
		"normalized_text": resume.NormalizedText,
	})
}

// HandleDelete handles DELETE /resumes/:id.
func (h *ResumeHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid resume id format")
	}

	if err := h.documents.DeleteResume(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
