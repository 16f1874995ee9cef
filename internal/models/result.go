package models

type UploadResponse struct {
	ID            string   `json:"id"`
	FileName      string   `json:"file_name"`
	CandidateName string   `json:"candidate_name"`
	Email         string   `json:"email"`
	Skills        []string `json:"skills"`
}

type UploadError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

type UploadResumesResponse struct {
	Uploaded []UploadResponse `json:"uploaded"`
	Failed   []UploadError    `json:"failed,omitempty"`
}

type CreateJobDescriptionRequest struct {
	Title           string `json:"title" form:"title" validate:"required"`
	Description     string `json:"description" form:"description"`
	Requirements    string `json:"requirements" form:"requirements"`
	Skills          string `json:"skills" form:"skills"`
	ExperienceLevel string `json:"experience_level" form:"experience_level"`
	Location        string `json:"location" form:"location"`
	SalaryRange     string `json:"salary_range" form:"salary_range"`
}

type MatchRequest struct {
	JobDescriptionID string `json:"job_description_id" validate:"required,uuid"`
	ResumeID         string `json:"resume_id,omitempty" validate:"omitempty,uuid"`
	TopK             int    `json:"top_k,omitempty"`
}

// MatchView is a match result joined with the candidate it refers to.
type MatchView struct {
	ResumeID        string   `json:"resume_id"`
	CandidateName   string   `json:"candidate_name"`
	Email           string   `json:"email"`
	FileName        string   `json:"file_name"`
	SimilarityScore float64  `json:"similarity_score"`
	DisplayScore    int      `json:"display_score"`
	MatchedSkills   []string `json:"matched_skills"`
	Highlights      []string `json:"highlights"`
	Rank            int      `json:"rank"`
	Strategy        string   `json:"strategy"`
	IsShortlisted   bool     `json:"is_shortlisted"`
}

type MatchResponse struct {
	JobDescriptionID string          `json:"job_description_id"`
	StrategyUsed     string          `json:"strategy_used"`
	Degraded         bool            `json:"degraded"`
	FallbackReason   string          `json:"fallback_reason,omitempty"`
	Total            int             `json:"total"`
	Matches          []MatchView     `json:"matches"`
	Skipped          []SkippedResume `json:"skipped,omitempty"`
	PersistError     string          `json:"persist_error,omitempty"`
}

type ShortlistRequest struct {
	Shortlisted bool `json:"shortlisted"`
}

type MatchAllRequest struct {
	TopK int `json:"top_k,omitempty"`
}

type MatchRunResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Strategy     string     `json:"strategy,omitempty"`
	Report       *RunReport `json:"report,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

type StatsResponse struct {
	TotalResumes         int64 `json:"total_resumes"`
	TotalJobDescriptions int64 `json:"total_job_descriptions"`
	TotalMatches         int64 `json:"total_matches"`
	Shortlisted          int64 `json:"shortlisted"`
}
