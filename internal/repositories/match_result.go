package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/resume-matcher/internal/models"
)

type MatchResultRepository interface {
	Upsert(result *models.MatchResult) error
	ReplaceForJob(jobDescriptionID uuid.UUID, results []models.MatchResult) error
	FindByJob(jobDescriptionID uuid.UUID) ([]models.MatchResult, error)
	FindByPair(jobDescriptionID, resumeID uuid.UUID) (*models.MatchResult, error)
	SetShortlisted(jobDescriptionID, resumeID uuid.UUID, shortlisted bool) error
	Count() (int64, error)
	CountShortlisted() (int64, error)
}

type matchResultRepository struct {
	db *gorm.DB
}

func NewMatchResultRepository(db *gorm.DB) MatchResultRepository {
	return &matchResultRepository{db: db}
}

// Upsert implements MatchResultRepository. An existing row for the pair is
// overwritten except for its shortlist flag.
func (r *matchResultRepository) Upsert(result *models.MatchResult) error {
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_description_id"}, {Name: "resume_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"similarity_score", "matched_skills", "highlights", "rank", "strategy", "updated_at",
		}),
	}).Create(result).Error
	if err != nil {
		return fmt.Errorf("failed to upsert match result: %w", err)
	}
	return nil
}

// ReplaceForJob implements MatchResultRepository. The old rows of the job are
// deleted and the new ones inserted in one transaction; pairs that were
// shortlisted stay shortlisted.
func (r *matchResultRepository) ReplaceForJob(jobDescriptionID uuid.UUID, results []models.MatchResult) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var shortlisted []uuid.UUID
		if err := tx.Model(&models.MatchResult{}).
			Where("job_description_id = ? AND is_shortlisted = ?", jobDescriptionID, true).
			Pluck("resume_id", &shortlisted).Error; err != nil {
			return fmt.Errorf("failed to read shortlist: %w", err)
		}

		if err := tx.Where("job_description_id = ?", jobDescriptionID).
			Delete(&models.MatchResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete match results: %w", err)
		}

		if len(results) == 0 {
			return nil
		}

		keep := make(map[uuid.UUID]bool, len(shortlisted))
		for _, id := range shortlisted {
			keep[id] = true
		}
		for i := range results {
			results[i].JobDescriptionID = jobDescriptionID
			if keep[results[i].ResumeID] {
				results[i].IsShortlisted = true
			}
		}

		if err := tx.Omit(clause.Associations).CreateInBatches(results, 100).Error; err != nil {
			return fmt.Errorf("failed to insert match results: %w", err)
		}
		return nil
	})
}

// FindByJob implements MatchResultRepository. Rows come back in ranking order
// with their resumes loaded.
func (r *matchResultRepository) FindByJob(jobDescriptionID uuid.UUID) ([]models.MatchResult, error) {
	var results []models.MatchResult
	err := r.db.Preload("Resume").
		Where("job_description_id = ?", jobDescriptionID).
		Order("similarity_score DESC, resume_id ASC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find match results: %w", err)
	}
	return results, nil
}

// FindByPair implements MatchResultRepository.
func (r *matchResultRepository) FindByPair(jobDescriptionID, resumeID uuid.UUID) (*models.MatchResult, error) {
	var result models.MatchResult
	err := r.db.Where("job_description_id = ? AND resume_id = ?", jobDescriptionID, resumeID).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("match %s/%s: %w", jobDescriptionID, resumeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find match result: %w", err)
	}
	return &result, nil
}

// SetShortlisted implements MatchResultRepository.
func (r *matchResultRepository) SetShortlisted(jobDescriptionID, resumeID uuid.UUID, shortlisted bool) error {
	result := r.db.Model(&models.MatchResult{}).
		Where("job_description_id = ? AND resume_id = ?", jobDescriptionID, resumeID).
		Updates(map[string]interface{}{
			"is_shortlisted": shortlisted,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update shortlist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match %s/%s: %w", jobDescriptionID, resumeID, ErrNotFound)
	}
	return nil
}

// Count implements MatchResultRepository.
func (r *matchResultRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.MatchResult{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count match results: %w", err)
	}
	return n, nil
}

// CountShortlisted implements MatchResultRepository.
func (r *matchResultRepository) CountShortlisted() (int64, error) {
	var n int64
	if err := r.db.Model(&models.MatchResult{}).Where("is_shortlisted = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count shortlisted matches: %w", err)
	}
	return n, nil
}
