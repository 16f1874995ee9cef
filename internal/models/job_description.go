package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/matching"
)

type JobDescription struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title           string    `gorm:"type:text;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Requirements    string    `gorm:"type:text" json:"requirements"`
	Skills          []string  `gorm:"type:jsonb;serializer:json" json:"skills"`
	ExperienceLevel string    `gorm:"type:text" json:"experience_level"`
	Location        string    `gorm:"type:text" json:"location"`
	SalaryRange     string    `gorm:"type:text" json:"salary_range"`
	NormalizedText  string    `gorm:"type:text" json:"-"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (JobDescription) TableName() string {
	return "job_descriptions"
}

// MatchText joins the fields a JD is matched on, in display order.
func (j *JobDescription) MatchText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{j.Title, j.Description, j.Requirements, strings.Join(j.Skills, ", ")} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Document returns the JD as an engine document keyed by its id.
func (j *JobDescription) Document() matching.Document {
	return matching.NewDocument(j.ID.String(), j.MatchText())
}
