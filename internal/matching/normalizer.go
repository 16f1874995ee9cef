package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	reURL        = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"]+`)
	reBareDomain = regexp.MustCompile(`\b(?:[a-z0-9][a-z0-9-]*\.)+(?:com|org|net|io|dev|co|ai|app|me|edu|gov|info|biz|us|uk|id)\b(?:/[^\s<>"]*)?`)
	reEmail      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	rePhone      = regexp.MustCompile(`\+?\(?\d[\d \-()]{5,}\d`)
	reDate       = regexp.MustCompile(`\b\d{1,4}[/.-]\d{1,2}(?:[/.-]\d{1,4})?\b`)
	reYearsToken = regexp.MustCompile(`(?i)\b\d{1,2}\s{0,3}\+?[\s-]{0,3}(?:years?|yrs?)\b`)
	reYear       = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	reDigits     = regexp.MustCompile(`\b\d+\b`)
	reSpaces     = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	reYearRange  = regexp.MustCompile(`(?:19|20)\d{2}\s*[-–]\s*(?:19|20)\d{2}`)
)

type span struct {
	start, end int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

func (s span) contains(o span) bool {
	return s.start <= o.start && o.end <= s.end
}

// maxNormalizePasses bounds the fixed-point loop in Normalize. Removing a
// URL glued to a domain exposes at most one new match per pass.
const maxNormalizePasses = 16

// Normalize cleans raw extracted text. Line breaks are kept because the name
// heuristic works on lines; everything else collapses to single spaces.
// Normalizing an already normalized text returns it unchanged.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripControl(text)

	// Each pass only removes text, so the loop settles; the settled text is
	// what a second Normalize would produce.
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizePass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func normalizePass(text string) string {
	text = stripURLs(text)
	text = stripStrayDigits(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}

// Fold returns the lower-cased variant of normalized text used for matching.
func Fold(text string) string {
	return strings.ToLower(text)
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case r == unicode.ReplacementChar:
			return -1
		case unicode.IsControl(r):
			return -1
		case unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, text)
}

func stripURLs(text string) string {
	emails := findSpans(reEmail, text)

	drop := findSpans(reURL, text)
	for _, s := range findSpans(reBareDomain, text) {
		if overlapsAny(s, emails) || overlapsAny(s, drop) {
			continue
		}
		// "socket.io" and "asp.net" are skills, not links.
		if m := text[s.start:s.end]; !strings.Contains(m, "/") && DefaultVocabulary.IsTerm(m) {
			continue
		}
		drop = append(drop, s)
	}

	return removeSpans(text, drop)
}

// stripStrayDigits drops digit runs that carry no meaning for extraction:
// anything outside a phone number, a date, a year or an "N years" token.
func stripStrayDigits(text string) string {
	var keep []span
	keep = append(keep, findSpans(reEmail, text)...)
	for _, s := range findSpans(rePhone, text) {
		if isPhoneCandidate(text[s.start:s.end]) {
			keep = append(keep, s)
		}
	}
	keep = append(keep, findSpans(reDate, text)...)
	keep = append(keep, findSpans(reYearsToken, text)...)
	keep = append(keep, findSpans(reYear, text)...)

	var drop []span
	for _, s := range findSpans(reDigits, text) {
		if !containedInAny(s, keep) {
			drop = append(drop, s)
		}
	}

	return removeSpans(text, drop)
}

func isPhoneCandidate(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if reYearRange.MatchString(candidate) {
		return false
	}
	n := countDigits(candidate)
	return n >= 7 && n <= 15
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func findSpans(re *regexp.Regexp, text string) []span {
	idx := re.FindAllStringIndex(text, -1)
	spans := make([]span, 0, len(idx))
	for _, loc := range idx {
		spans = append(spans, span{start: loc[0], end: loc[1]})
	}
	return spans
}

func overlapsAny(s span, set []span) bool {
	for _, o := range set {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}

func containedInAny(s span, set []span) bool {
	for _, o := range set {
		if o.contains(s) {
			return true
		}
	}
	return false
}

// removeSpans replaces every span with a single space. Spans may overlap.
func removeSpans(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range spans {
		if s.end <= pos {
			continue
		}
		if s.start > pos {
			b.WriteString(text[pos:s.start])
		}
		b.WriteByte(' ')
		pos = s.end
	}
	b.WriteString(text[pos:])
	return b.String()
}
