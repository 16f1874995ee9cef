package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Skill is one entry of the reference vocabulary. Name carries the canonical
// casing reported in profiles. CaseSensitive entries are common English words
// ("Go", "Spring", "Excel") and only match with their canonical casing;
// aliases always match case-insensitively.
type Skill struct {
	Name          string
	Aliases       []string
	CaseSensitive bool
}

var defaultSkills = []Skill{
	// languages
	{Name: "Python"},
	{Name: "Java"},
	{Name: "JavaScript", Aliases: []string{"ECMAScript"}},
	{Name: "TypeScript"},
	{Name: "Go", Aliases: []string{"Golang"}, CaseSensitive: true},
	{Name: "Rust"},
	{Name: "C++", Aliases: []string{"CPP"}},
	{Name: "C#", Aliases: []string{"CSharp"}},
	{Name: "PHP"},
	{Name: "Ruby"},
	{Name: "Swift", CaseSensitive: true},
	{Name: "Kotlin"},
	{Name: "Scala"},
	{Name: "Perl"},
	{Name: "Dart"},
	{Name: "Elixir"},
	{Name: "Haskell"},
	{Name: "MATLAB"},
	{Name: "Objective-C"},
	{Name: "Bash"},
	{Name: "HTML", Aliases: []string{"HTML5"}},
	{Name: "CSS", Aliases: []string{"CSS3"}},
	{Name: "SASS", Aliases: []string{"SCSS"}},
	{Name: "LESS", CaseSensitive: true},
	{Name: "SQL"},
	{Name: "NoSQL"},
	{Name: "GraphQL"},

	// frameworks and libraries
	{Name: "React", Aliases: []string{"ReactJS", "React.js"}},
	{Name: "React Native"},
	{Name: "Angular", Aliases: []string{"AngularJS"}},
	{Name: "Vue", Aliases: []string{"Vue.js", "VueJS"}},
	{Name: "Svelte"},
	{Name: "Next.js", Aliases: []string{"NextJS"}},
	{Name: "Socket.IO", Aliases: []string{"SocketIO"}},
	{Name: "Node.js", Aliases: []string{"NodeJS"}},
	{Name: "Express", Aliases: []string{"Express.js", "ExpressJS"}, CaseSensitive: true},
	{Name: "Django"},
	{Name: "Flask"},
	{Name: "FastAPI"},
	{Name: "Spring", CaseSensitive: true},
	{Name: "Spring Boot"},
	{Name: "Ruby on Rails", Aliases: []string{"Rails"}},
	{Name: "Laravel"},
	{Name: ".NET", Aliases: []string{"dotnet"}, CaseSensitive: true},
	{Name: "ASP.NET", Aliases: []string{"ASPNET"}},
	{Name: "Bootstrap"},
	{Name: "Tailwind", Aliases: []string{"Tailwind CSS", "TailwindCSS"}},
	{Name: "jQuery"},
	{Name: "Redux"},
	{Name: "Flutter"},
	{Name: "TensorFlow"},
	{Name: "PyTorch"},
	{Name: "Keras"},
	{Name: "Scikit-learn", Aliases: []string{"sklearn"}},
	{Name: "Pandas"},
	{Name: "NumPy"},
	{Name: "Spark", Aliases: []string{"Apache Spark", "PySpark"}, CaseSensitive: true},
	{Name: "Hadoop"},
	{Name: "Kafka"},
	{Name: "RabbitMQ"},
	{Name: "gRPC"},
	{Name: "REST", Aliases: []string{"RESTful"}, CaseSensitive: true},
	{Name: "Microservices"},

	// databases
	{Name: "MySQL"},
	{Name: "PostgreSQL", Aliases: []string{"Postgres"}},
	{Name: "MongoDB", Aliases: []string{"Mongo"}},
	{Name: "Redis"},
	{Name: "Oracle", CaseSensitive: true},
	{Name: "SQLite"},
	{Name: "MariaDB"},
	{Name: "Elasticsearch"},
	{Name: "Cassandra"},
	{Name: "DynamoDB"},

	// cloud and tooling
	{Name: "AWS", Aliases: []string{"Amazon Web Services"}},
	{Name: "Azure"},
	{Name: "GCP", Aliases: []string{"Google Cloud"}},
	{Name: "Docker"},
	{Name: "Kubernetes", Aliases: []string{"K8s"}},
	{Name: "Terraform"},
	{Name: "Ansible"},
	{Name: "Jenkins"},
	{Name: "CI/CD"},
	{Name: "Git"},
	{Name: "GitHub"},
	{Name: "GitLab"},
	{Name: "Linux"},
	{Name: "Nginx"},
	{Name: "Helm", CaseSensitive: true},
	{Name: "Prometheus"},
	{Name: "Grafana"},

	// data and ML
	{Name: "Machine Learning", Aliases: []string{"ML"}},
	{Name: "Deep Learning"},
	{Name: "NLP", Aliases: []string{"Natural Language Processing"}},
	{Name: "Computer Vision"},
	{Name: "AI", CaseSensitive: true},
	{Name: "LLM", Aliases: []string{"LLMs"}},
	{Name: "Tableau"},
	{Name: "Power BI"},

	// process and office
	{Name: "Agile"},
	{Name: "Scrum"},
	{Name: "Kanban"},
	{Name: "JIRA"},
	{Name: "Confluence"},
	{Name: "Slack", CaseSensitive: true},
	{Name: "Microsoft Office", Aliases: []string{"MS Office"}},
	{Name: "Excel", CaseSensitive: true},
	{Name: "PowerPoint"},
	{Name: "Figma"},
}

// Vocabulary scans text for known skills.
type Vocabulary struct {
	entries []vocabEntry
}

type vocabEntry struct {
	name     string
	patterns []*regexp.Regexp
}

// DefaultVocabulary is built once from the built-in skill list.
var DefaultVocabulary = NewVocabulary(defaultSkills)

// NewVocabulary compiles the match patterns for every skill.
func NewVocabulary(skills []Skill) *Vocabulary {
	v := &Vocabulary{entries: make([]vocabEntry, 0, len(skills))}
	for _, s := range skills {
		entry := vocabEntry{name: s.Name}
		entry.patterns = append(entry.patterns, compileTerm(s.Name, s.CaseSensitive))
		for _, alias := range s.Aliases {
			entry.patterns = append(entry.patterns, compileTerm(alias, false))
		}
		v.entries = append(v.entries, entry)
	}
	return v
}

// Names lists the canonical skill names in vocabulary order.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		names = append(names, e.name)
	}
	return names
}

// IsTerm reports whether s as a whole spells one of the skills.
func (v *Vocabulary) IsTerm(s string) bool {
	for _, e := range v.entries {
		for _, re := range e.patterns {
			if loc := re.FindStringSubmatchIndex(s); loc != nil && loc[2] == 0 && loc[3] == len(s) {
				return true
			}
		}
	}
	return false
}

// Find returns the canonical names of all skills present in text, ordered by
// first occurrence. Each skill appears once.
func (v *Vocabulary) Find(text string) []string {
	type hit struct {
		name  string
		pos   int
		order int
	}

	var hits []hit
	for i, e := range v.entries {
		first := -1
		for _, re := range e.patterns {
			loc := re.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			if pos := loc[2]; first < 0 || pos < first {
				first = pos
			}
		}
		if first >= 0 {
			hits = append(hits, hit{name: e.name, pos: first, order: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].order < hits[j].order
	})

	skills := make([]string, 0, len(hits))
	for _, h := range hits {
		skills = append(skills, h.name)
	}
	return skills
}

const termBoundary = `[^\p{L}\p{N}_+#]`

// compileTerm builds a whole-token pattern where '.', '-' and spaces inside
// the term are optional separators, so "Node.js" also matches "nodejs".
func compileTerm(term string, caseSensitive bool) *regexp.Regexp {
	var core strings.Builder
	for _, r := range term {
		switch {
		case r == '.' || r == '-' || unicode.IsSpace(r):
			core.WriteString(`[\s.\-]?`)
		default:
			core.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	flags := "(?i)"
	if caseSensitive {
		flags = ""
	}
	return regexp.MustCompile(flags + `(?:^|` + termBoundary + `)(` + core.String() + `)(?:` + termBoundary + `|$)`)
}
