package matching

import "fmt"

// EducationNotSpecified is shown when no degree level was extracted.
const EducationNotSpecified = "Education not specified"

// Highlights summarizes why a resume matches, always in this order:
// experience, skill overlap, education. Unknown experience renders as 0.
// Exported reports rely on these three entries.
func Highlights(profile Profile, matchedSkills []string) []string {
	education := profile.Education
	if education == "" || education == Unknown {
		education = EducationNotSpecified
	}

	return []string{
		fmt.Sprintf("%d years of experience", profile.Years()),
		fmt.Sprintf("%d matching skills", len(matchedSkills)),
		education,
	}
}
