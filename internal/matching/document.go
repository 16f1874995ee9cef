package matching

import (
	"crypto/sha256"
	"encoding/hex"
)

// Unknown marks a profile field the extractor could not find.
const Unknown = "unknown"

// Document is the text view of a job description or a resume that the
// similarity strategies work on.
type Document struct {
	ID   string
	Text string
}

// NewDocument normalizes raw text into a Document.
func NewDocument(id, raw string) Document {
	return Document{ID: id, Text: Normalize(raw)}
}

// IsEmpty reports whether the document has no text left after normalization.
func (d Document) IsEmpty() bool {
	return d.Text == ""
}

// ContentHash identifies the document content for embedding caches.
func (d Document) ContentHash() string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:])
}

// Profile holds the attributes extracted from a resume.
type Profile struct {
	CandidateName   string   `json:"candidate_name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	ExperienceYears *int     `json:"experience_years"`
	Skills          []string `json:"skills"`
	Education       string   `json:"education"`
}

// Years returns the extracted experience, or 0 when it is unknown.
func (p Profile) Years() int {
	if p.ExperienceYears == nil {
		return 0
	}
	return *p.ExperienceYears
}
