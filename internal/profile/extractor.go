package profile

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// skillVocabulary is the fixed set of skill tokens recognized in resumes and
// postings. Matching is case-insensitive and word-bounded, so "java" inside
// "javascript" does not count.
var skillVocabulary = []string{
	"python", "java", "javascript", "typescript", "go", "rust", "c++", "c#",
	"react", "angular", "vue", "node", "django", "flask", "fastapi", "spring",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "ansible",
	"sql", "postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"git", "ci/cd", "jenkins", "github", "gitlab", "bitbucket",
	"agile", "scrum", "devops", "microservices", "rest", "graphql",
	"machine learning", "ai", "data science", "tensorflow", "pytorch",
	"html", "css", "sass", "webpack", "vite", "nextjs", "express",
	"nginx", "apache", "linux", "windows", "macos", "bash", "powershell",
}

var levelKeywords = map[ExperienceLevel][]string{
	LevelEntry:     {"entry", "junior", "graduate", "early career", "associate"},
	LevelMid:       {"mid-level", "intermediate", "mid level"},
	LevelSenior:    {"senior", "lead", "experienced", "sr."},
	LevelStaff:     {"staff", "principal", "architect"},
	LevelExecutive: {"director", "vp", "head of", "chief", "executive"},
}

// keyword checks run in seniority order so "senior staff engineer" lands on
// the stronger signal.
var levelOrder = []ExperienceLevel{LevelExecutive, LevelStaff, LevelSenior, LevelMid, LevelEntry}

var roleStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "for": {}, "in": {}, "of": {},
	"or": {}, "the": {}, "to": {}, "with": {}, "remote": {}, "hybrid": {},
	"onsite": {}, "fulltime": {}, "full-time": {}, "contract": {},
}

var (
	yearsPlusRe  = regexp.MustCompile(`(\d{1,2})\s*\+\s*years?`)
	yearsRangeRe = regexp.MustCompile(`(\d{1,2})\s*[-–]\s*(\d{1,2})\s*years?`)
	yearsExpRe   = regexp.MustCompile(`(\d{1,2})\+?\s+years?\s+(?:of\s+)?(?:professional\s+|work\s+)?experience`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	nameLineRe   = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+$`)
	tokenSplitRe = regexp.MustCompile(`[^a-z0-9+#]+`)
)

// Extractor derives structured profiles and requirements from free text. It
// is a pure function of its input: absence of a signal yields an empty or nil
// field, never an error.
type Extractor struct {
	patterns map[string]*regexp.Regexp
}

func NewExtractor() *Extractor {
	patterns := make(map[string]*regexp.Regexp, len(skillVocabulary))
	for _, skill := range skillVocabulary {
		patterns[skill] = compileSkillPattern(skill)
	}
	return &Extractor{patterns: patterns}
}

// compileSkillPattern builds a word-bounded case-insensitive pattern. Tokens
// ending in +, # or / need manual boundaries since \b does not apply there.
func compileSkillPattern(skill string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(skill)
	if regexp.MustCompile(`^[a-z0-9 ]+$`).MatchString(skill) {
		return regexp.MustCompile(`(?i)\b` + quoted + `\b`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9+#])` + quoted + `(?:$|[^a-z0-9+#])`)
}

// Skills returns the sorted set of vocabulary skills present in the text.
func (e *Extractor) Skills(text string) []string {
	var found []string
	for skill, re := range e.patterns {
		if re.MatchString(text) {
			found = append(found, skill)
		}
	}
	sort.Strings(found)
	return found
}

// SkillMentions counts every occurrence of the given skills anywhere in the
// text. Used for keyword-density scoring.
func (e *Extractor) SkillMentions(text string, skills []string) int {
	total := 0
	for _, skill := range skills {
		re, ok := e.patterns[strings.ToLower(skill)]
		if !ok {
			re = compileSkillPattern(strings.ToLower(skill))
		}
		total += len(re.FindAllStringIndex(text, -1))
	}
	return total
}

// ExperienceYears extracts an explicit numeric years-of-experience statement.
// Ranges are checked first so "5-7 years of experience" yields the range
// minimum, not the upper bound. Returns nil when no signal exists.
func (e *Extractor) ExperienceYears(text string) *int {
	lower := strings.ToLower(text)

	if m := yearsRangeRe.FindStringSubmatch(lower); m != nil {
		return parseYears(m[1])
	}
	if m := yearsExpRe.FindStringSubmatch(lower); m != nil {
		return parseYears(m[1])
	}
	if m := yearsPlusRe.FindStringSubmatch(lower); m != nil {
		return parseYears(m[1])
	}
	return nil
}

func parseYears(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ExperienceLevelOf buckets posting text into a seniority level, preferring
// numeric year expressions over keywords. Returns LevelNone with no signal.
func (e *Extractor) ExperienceLevelOf(text string) ExperienceLevel {
	lower := strings.ToLower(text)

	if m := yearsRangeRe.FindStringSubmatch(lower); m != nil {
		if y := parseYears(m[1]); y != nil {
			return levelForYears(*y)
		}
	}
	if m := yearsPlusRe.FindStringSubmatch(lower); m != nil {
		if y := parseYears(m[1]); y != nil {
			return levelForYears(*y)
		}
	}
	for _, level := range levelOrder {
		for _, kw := range levelKeywords[level] {
			if strings.Contains(lower, kw) {
				return level
			}
		}
	}
	return LevelNone
}

func levelForYears(min int) ExperienceLevel {
	switch {
	case min < 2:
		return LevelEntry
	case min < 5:
		return LevelMid
	case min < 8:
		return LevelSenior
	default:
		return LevelStaff
	}
}

// RoleTokens tokenizes title-like text, dropping stop words.
func (e *Extractor) RoleTokens(title string) []string {
	var tokens []string
	for _, tok := range tokenSplitRe.Split(strings.ToLower(title), -1) {
		if tok == "" {
			continue
		}
		if _, stop := roleStopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Education returns the highest education signal in the text.
func (e *Extractor) Education(text string) EducationLevel {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "ph.d", "phd", "doctorate", "doctor of philosophy"):
		return EducationPhD
	case containsAny(lower, "master's", "masters", "m.s.", "msc", "mba"):
		return EducationMaster
	case containsAny(lower, "bachelor's", "bachelors", "b.s.", "bsc", "b.a."):
		return EducationBachelor
	case containsAny(lower, "associate degree", "a.s.", "a.a."):
		return EducationAssociate
	default:
		return EducationUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ContactInfo extracts a name and email from resume text. The name is taken
// from the first short capitalized line without an email in it.
func (e *Extractor) ContactInfo(text string) (name, email string) {
	email = emailRe.FindString(text)

	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= 50 || strings.Contains(line, "@") {
			continue
		}
		if nameLineRe.MatchString(line) {
			name = line
			break
		}
	}
	return name, email
}

// CandidateProfile builds a full profile from resume text.
func (e *Extractor) CandidateProfile(resumeText string) CandidateProfile {
	name, email := e.ContactInfo(resumeText)
	return CandidateProfile{
		Skills:          e.Skills(resumeText),
		ExperienceYears: e.ExperienceYears(resumeText),
		DesiredRoles:    nil,
		Education:       e.Education(resumeText),
		FullName:        name,
		Email:           email,
	}
}

// Requirement builds a structured requirement from a posting. Title text
// participates in skill and level extraction since postings often carry the
// strongest signals there.
func (e *Extractor) Requirement(p Posting) Requirement {
	combined := p.Description + " " + p.Title

	req := Requirement{
		Skills:  e.Skills(combined),
		Level:   e.ExperienceLevelOf(combined),
		Posting: p,
	}

	if years := e.ExperienceYears(combined); years != nil {
		req.MinYears = *years
		req.MaxYears = *years + 5
		req.ExplicitYears = true
		if req.Level == LevelNone {
			req.Level = levelForYears(*years)
		}
		return req
	}

	req.MinYears, req.MaxYears = req.Level.YearsRange()
	return req
}
