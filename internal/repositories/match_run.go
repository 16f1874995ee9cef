package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-matcher/internal/models"
)

type MatchRunRepository interface {
	Create(run *models.MatchRun) error
	FindByID(id uuid.UUID) (*models.MatchRun, error)
	Claim(id uuid.UUID) (bool, error)
	Complete(id uuid.UUID, report *models.RunReport) error
	Fail(id uuid.UUID, errorMsg string) error
	FindPendingRuns(limit int) ([]models.MatchRun, error)
}

type matchRunRepository struct {
	db *gorm.DB
}

func NewMatchRunRepository(db *gorm.DB) MatchRunRepository {
	return &matchRunRepository{db: db}
}

func (r *matchRunRepository) Create(run *models.MatchRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create match run: %w", err)
	}
	return nil
}

func (r *matchRunRepository) FindByID(id uuid.UUID) (*models.MatchRun, error) {
	var run models.MatchRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("match run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find match run: %w", err)
	}
	return &run, nil
}

// Claim moves a queued run to processing. It reports false when the run is
// no longer queued, so each run is processed once.
func (r *matchRunRepository) Claim(id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.Model(&models.MatchRun{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(&models.MatchRun{
			Status:    models.StatusProcessing,
			StartedAt: &now,
			UpdatedAt: now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim match run: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *matchRunRepository) Complete(id uuid.UUID, report *models.RunReport) error {
	now := time.Now()
	return r.update(id, &models.MatchRun{
		Status:      models.StatusCompleted,
		Report:      report,
		CompletedAt: &now,
		UpdatedAt:   now,
	})
}

func (r *matchRunRepository) Fail(id uuid.UUID, errorMsg string) error {
	now := time.Now()
	return r.update(id, &models.MatchRun{
		Status:       models.StatusFailed,
		ErrorMessage: &errorMsg,
		CompletedAt:  &now,
		UpdatedAt:    now,
	})
}

// update writes the non-zero fields of fields; a struct is used instead of a
// map so the report goes through its JSON serializer.
func (r *matchRunRepository) update(id uuid.UUID, fields *models.MatchRun) error {
	result := r.db.Model(&models.MatchRun{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update match run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match run %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *matchRunRepository) FindPendingRuns(limit int) ([]models.MatchRun, error) {
	var runs []models.MatchRun
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending runs: %w", err)
	}
	return runs, nil
}
