package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

type ResumeRepository interface {
	Create(resume *models.Resume) error
	FindByID(id uuid.UUID) (*models.Resume, error)
	FindAll() ([]models.Resume, error)
	Delete(id uuid.UUID) error
	Count() (int64, error)
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

// Create implements ResumeRepository.
func (r *resumeRepository) Create(resume *models.Resume) error {
	if err := r.db.Create(resume).Error; err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

// FindByID implements ResumeRepository.
func (r *resumeRepository) FindByID(id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.Where("id = ?", id).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}
	return &resume, nil
}

// FindAll implements ResumeRepository. Resumes come back in id order so a
// batch sees the same corpus order on every run.
func (r *resumeRepository) FindAll() ([]models.Resume, error) {
	var resumes []models.Resume
	if err := r.db.Order("id ASC").Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("failed to find resumes: %w", err)
	}
	return resumes, nil
}

// Delete implements ResumeRepository. Match results of the resume go with it.
func (r *resumeRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", id).Delete(&models.MatchResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete match results: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Resume{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete resume: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("resume %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Count implements ResumeRepository.
func (r *resumeRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.Resume{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count resumes: %w", err)
	}
	return n, nil
}
