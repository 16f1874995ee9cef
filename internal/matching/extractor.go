package matching

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 60

var (
	reExperience = regexp.MustCompile(`(?i)\b(\d{1,2})\s{0,3}\+?[\s-]{0,3}(?:years?|yrs?)\b`)
	reHasURL     = regexp.MustCompile(`(?i)https?://|www\.|\b[a-z0-9-]+\.(?:com|org|net|io|dev)\b`)
	reHasDigits  = regexp.MustCompile(`\d{3,}`)

	nameHeadings = map[string]bool{
		"resume":           true,
		"résumé":           true,
		"cv":               true,
		"curriculum vitae": true,
	}
)

type educationLevel struct {
	label   string
	pattern *regexp.Regexp
}

var educationLevels = []educationLevel{
	{"PhD", compileLevel(`ph\.?\s?d\.?|doctorate|doctor of philosophy`)},
	{"Master's", compileLevel(`master's|masters?|m\.?sc|m\.s\.?|mba|m\.?eng|m\.?tech`)},
	{"Bachelor's", compileLevel(`bachelor's|bachelors?|b\.?sc|b\.s\.?|b\.a\.?|b\.?eng|b\.?tech`)},
	{"Associate's", compileLevel(`associate(?:'s)? degree|associate of (?:arts|science)`)},
	{"High School", compileLevel(`high school|secondary school`)},
}

func compileLevel(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + alternatives + `)(?:[^\p{L}\p{N}]|$)`)
}

// Extractor derives a Profile from normalized resume text. It never fails:
// every field falls back to Unknown (or nil/empty) on its own.
type Extractor struct {
	vocabulary *Vocabulary
}

// NewExtractor returns an extractor scanning skills with vocab, or with the
// default vocabulary when vocab is nil.
func NewExtractor(vocab *Vocabulary) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	return &Extractor{vocabulary: vocab}
}

// Extract builds the profile of a normalized text.
func (e *Extractor) Extract(text string) Profile {
	return Profile{
		CandidateName:   extractName(text),
		Email:           extractEmail(text),
		Phone:           extractPhone(text),
		ExperienceYears: extractExperience(text),
		Skills:          e.Skills(text),
		Education:       extractEducation(text),
	}
}

// Skills returns the vocabulary skills found in text.
func (e *Extractor) Skills(text string) []string {
	return e.vocabulary.Find(text)
}

func extractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) >= maxNameLength {
			continue
		}
		if reEmail.MatchString(line) || reHasURL.MatchString(line) || reHasDigits.MatchString(line) {
			continue
		}
		name := strings.TrimRight(line, ".,;:|-– ")
		if name == "" || nameHeadings[strings.ToLower(name)] {
			continue
		}
		return name
	}
	return Unknown
}

func extractEmail(text string) string {
	if m := reEmail.FindString(text); m != "" {
		return m
	}
	return Unknown
}

func extractPhone(text string) string {
	for _, loc := range rePhone.FindAllStringIndex(text, -1) {
		candidate := strings.TrimSpace(text[loc[0]:loc[1]])
		if isPhoneCandidate(candidate) {
			return candidate
		}
	}
	return Unknown
}

// extractExperience returns nil when no "N years" token exists; zero is a
// legitimate value.
func extractExperience(text string) *int {
	m := reExperience.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &years
}

func extractEducation(text string) string {
	best, bestPos := Unknown, -1
	for _, level := range educationLevels {
		loc := level.pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if bestPos < 0 || loc[2] < bestPos {
			best, bestPos = level.label, loc[2]
		}
	}
	return best
}
