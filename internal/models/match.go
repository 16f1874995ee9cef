package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// matchNamespace derives stable match ids from the (job, resume) pair.
var matchNamespace = uuid.MustParse("6f1c2a4e-0d55-4b8e-9a43-2b7f5f0e9c11")

// MatchID returns the id of the result for a pair. It is the same on every
// run, so recomputing a ranking yields identical rows.
func MatchID(jobDescriptionID, resumeID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(matchNamespace, []byte(jobDescriptionID.String()+":"+resumeID.String()))
}

type MatchResult struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	JobDescriptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_pair" json:"job_description_id"`
	ResumeID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_pair;index" json:"resume_id"`
	SimilarityScore  float64   `gorm:"type:decimal(5,2);not null" json:"similarity_score"`
	MatchedSkills    []string  `gorm:"type:jsonb;serializer:json" json:"matched_skills"`
	Highlights       []string  `gorm:"type:jsonb;serializer:json" json:"highlights"`
	Rank             int       `gorm:"not null" json:"rank"`
	Strategy         string    `gorm:"type:text;not null" json:"strategy"`
	IsShortlisted    bool      `gorm:"not null;default:false" json:"is_shortlisted"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	JobDescription JobDescription `gorm:"foreignKey:JobDescriptionID;constraint:OnDelete:CASCADE" json:"-"`
	Resume         Resume         `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

// DisplayScore is the score rounded to a whole percent.
func (m *MatchResult) DisplayScore() int {
	return int(math.Round(m.SimilarityScore))
}

// View joins the result with its loaded Resume.
func (m *MatchResult) View() MatchView {
	return MatchView{
		ResumeID:        m.ResumeID.String(),
		CandidateName:   m.Resume.CandidateName,
		Email:           m.Resume.Email,
		FileName:        m.Resume.FileName,
		SimilarityScore: m.SimilarityScore,
		DisplayScore:    m.DisplayScore(),
		MatchedSkills:   m.MatchedSkills,
		Highlights:      m.Highlights,
		Rank:            m.Rank,
		Strategy:        m.Strategy,
		IsShortlisted:   m.IsShortlisted,
	}
}

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// MatchRun tracks an asynchronous match of every job against every resume.
type MatchRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Status       RunStatus  `gorm:"not null;default:'queued'" json:"status"`
	Strategy     string     `gorm:"type:text" json:"strategy"`
	TopK         int        `json:"top_k"`
	Report       *RunReport `gorm:"type:jsonb;serializer:json" json:"report,omitempty"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MatchRun) TableName() string {
	return "match_runs"
}

// RunReport summarises a many-to-many run per job description.
type RunReport struct {
	Jobs   []JobReport  `json:"jobs"`
	Failed []JobFailure `json:"failed"`
}

type JobReport struct {
	JobDescriptionID uuid.UUID       `json:"job_description_id"`
	StrategyUsed     string          `json:"strategy_used"`
	Degraded         bool            `json:"degraded"`
	FallbackReason   string          `json:"fallback_reason,omitempty"`
	Matched          int             `json:"matched"`
	Skipped          []SkippedResume `json:"skipped,omitempty"`
	PersistError     string          `json:"persist_error,omitempty"`
}

type JobFailure struct {
	JobDescriptionID uuid.UUID `json:"job_description_id"`
	Error            string    `json:"error"`
}

// SkippedResume is a resume left out of a batch and why.
type SkippedResume struct {
	ResumeID uuid.UUID `json:"resume_id"`
	Reason   string    `json:"reason"`
}
