package models

import (
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/matching"
)

type Resume struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FileName        string    `gorm:"type:text" json:"file_name"`
	StoredFileName  string    `gorm:"type:text" json:"-"`
	FilePath        string    `gorm:"type:text" json:"-"`
	FileSize        int64     `json:"file_size"`
	RawText         string    `gorm:"type:text;not null" json:"-"`
	NormalizedText  string    `gorm:"type:text" json:"-"`
	CandidateName   string    `gorm:"type:text" json:"candidate_name"`
	Email           string    `gorm:"type:text" json:"email"`
	Phone           string    `gorm:"type:text" json:"phone"`
	ExperienceYears *int      `json:"experience_years"`
	Skills          []string  `gorm:"type:jsonb;serializer:json" json:"skills"`
	Education       string    `gorm:"type:text" json:"education"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Resume) TableName() string {
	return "resumes"
}

// Document returns the resume as an engine document keyed by its id.
func (r *Resume) Document() matching.Document {
	return matching.NewDocument(r.ID.String(), r.RawText)
}

// ApplyProfile copies extracted attributes onto the record.
func (r *Resume) ApplyProfile(p matching.Profile) {
	r.CandidateName = p.CandidateName
	r.Email = p.Email
	r.Phone = p.Phone
	r.ExperienceYears = p.ExperienceYears
	r.Skills = p.Skills
	r.Education = p.Education
}
