package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/matching"
	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

// EmbeddingEvicter drops cached embeddings of a deleted document.
type EmbeddingEvicter interface {
	DeleteDocument(ctx context.Context, docID string) error
}

// DocumentService turns uploads into stored resumes and job descriptions.
type DocumentService interface {
	IngestResume(ctx context.Context, fileName string, data []byte) (*models.Resume, error)
	CreateJobDescription(ctx context.Context, req models.CreateJobDescriptionRequest) (*models.JobDescription, error)
	DeleteResume(ctx context.Context, id uuid.UUID) error
	DeleteJobDescription(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	resumeRepo repositories.ResumeRepository
	jdRepo     repositories.JobDescriptionRepository
	storage    StorageService
	extractor  TextExtractor
	profiler   *matching.Extractor
	evicter    EmbeddingEvicter
	logger     *zap.Logger
}

// NewDocumentService wires the service. storage and evicter may be nil: the
// uploaded file is then not kept, and no cache is cleaned on delete.
func NewDocumentService(
	resumeRepo repositories.ResumeRepository,
	jdRepo repositories.JobDescriptionRepository,
	storage StorageService,
	extractor TextExtractor,
	evicter EmbeddingEvicter,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		resumeRepo: resumeRepo,
		jdRepo:     jdRepo,
		storage:    storage,
		extractor:  extractor,
		profiler:   matching.NewExtractor(nil),
		evicter:    evicter,
		logger:     logger,
	}
}

// IngestResume implements DocumentService.
func (s *documentService) IngestResume(ctx context.Context, fileName string, data []byte) (*models.Resume, error) {
	format := FormatFromFileName(fileName)
	if format == "" {
		return nil, fmt.Errorf("%s: %w", fileName, ErrUnsupportedFormat)
	}

	raw, err := s.extractor.ExtractText(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}

	raw = storableText(raw)
	normalized := matching.Normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%s contains no text: %w", fileName, ErrInvalidInput)
	}

	resume := &models.Resume{
		ID:             uuid.New(),
		FileName:       fileName,
		FileSize:       int64(len(data)),
		RawText:        raw,
		NormalizedText: normalized,
	}
	resume.ApplyProfile(s.profiler.Extract(normalized))

	if s.storage != nil {
		stored, path, err := s.storage.SaveFile(fileName, data)
		if err != nil {
			return nil, err
		}
		resume.StoredFileName = stored
		resume.FilePath = path
	}

	if err := s.resumeRepo.Create(resume); err != nil {
		if s.storage != nil {
			if rmErr := s.storage.DeleteFile(resume.StoredFileName); rmErr != nil {
				s.logger.Warn("failed to clean up upload", zap.Error(rmErr))
			}
		}
		return nil, err
	}

	s.logger.Info("resume ingested",
		zap.String("resume_id", resume.ID.String()),
		zap.String("file", fileName),
		zap.Int("skills", len(resume.Skills)))
	s.logger.Debug("resume text", zap.String("resume_id", resume.ID.String()), zap.String("preview", logger.Truncate(normalized, 200)))
	return resume, nil
}

// CreateJobDescription implements DocumentService.
func (s *documentService) CreateJobDescription(_ context.Context, req models.CreateJobDescriptionRequest) (*models.JobDescription, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrInvalidInput)
	}

	jd := &models.JobDescription{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Requirements:    req.Requirements,
		Skills:          matching.ParseSkillList(req.Skills),
		ExperienceLevel: req.ExperienceLevel,
		Location:        req.Location,
		SalaryRange:     req.SalaryRange,
	}
	jd.NormalizedText = matching.Normalize(jd.MatchText())
	if jd.Skills == nil {
		jd.Skills = []string{}
	}

	if err := s.jdRepo.Create(jd); err != nil {
		return nil, err
	}

	s.logger.Info("job description created", zap.String("job_description_id", jd.ID.String()))
	return jd, nil
}

// DeleteResume implements DocumentService.
func (s *documentService) DeleteResume(ctx context.Context, id uuid.UUID) error {
	resume, err := s.resumeRepo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.resumeRepo.Delete(id); err != nil {
		return err
	}

	if s.storage != nil {
		if err := s.storage.DeleteFile(resume.StoredFileName); err != nil {
			s.logger.Warn("failed to delete resume file", zap.String("resume_id", id.String()), zap.Error(err))
		}
	}
	s.evict(ctx, id)
	return nil
}

// DeleteJobDescription implements DocumentService.
func (s *documentService) DeleteJobDescription(ctx context.Context, id uuid.UUID) error {
	if err := s.jdRepo.Delete(id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *documentService) evict(ctx context.Context, id uuid.UUID) {
	if s.evicter == nil {
		return
	}
	if err := s.evicter.DeleteDocument(ctx, id.String()); err != nil {
		s.logger.Warn("failed to evict embedding", zap.String("doc_id", id.String()), zap.Error(err))
	}
}

// storableText drops what a Postgres text column rejects: NUL bytes and
// invalid UTF-8.
func storableText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\x00", "")
}
