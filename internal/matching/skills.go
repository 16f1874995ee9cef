package matching

import "strings"

// MatchSkills returns the resume skills that contain, or are contained in, any
// job skill, compared case-insensitively. "React" on a resume matches
// "ReactJS" on a job description and the other way round. The result follows
// resume order and holds each skill once.
func MatchSkills(jobSkills, resumeSkills []string) []string {
	job := make([]string, 0, len(jobSkills))
	for _, s := range jobSkills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			job = append(job, s)
		}
	}

	seen := make(map[string]bool, len(resumeSkills))
	var matched []string
	for _, skill := range resumeSkills {
		key := strings.ToLower(strings.TrimSpace(skill))
		if key == "" || seen[key] {
			continue
		}
		for _, j := range job {
			if strings.Contains(j, key) || strings.Contains(key, j) {
				seen[key] = true
				matched = append(matched, skill)
				break
			}
		}
	}
	return matched
}

// MergeSkills concatenates skill lists, dropping blanks and case-insensitive
// duplicates while keeping the first spelling.
func MergeSkills(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, s)
		}
	}
	return merged
}

// ParseSkillList splits a comma separated skill list as entered on a job form.
func ParseSkillList(raw string) []string {
	return MergeSkills(strings.Split(raw, ","))
}
