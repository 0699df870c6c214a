package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Smith
jane.smith@example.com

Senior backend engineer with 7 years of experience building services in
Python and Go. Shipped FastAPI services on Docker and Kubernetes.
B.S. in Computer Science.`

func TestSkillsWordBoundaries(t *testing.T) {
	e := NewExtractor()

	skills := e.Skills("We use JavaScript and TypeScript here.")
	assert.Contains(t, skills, "javascript")
	assert.Contains(t, skills, "typescript")
	// "java" must not match inside "javascript"
	assert.NotContains(t, skills, "java")
}

func TestSkillsSpecialCharacters(t *testing.T) {
	e := NewExtractor()

	skills := e.Skills("Strong C++ and C# background, some CI/CD work.")
	assert.Contains(t, skills, "c++")
	assert.Contains(t, skills, "c#")
	assert.Contains(t, skills, "ci/cd")
}

func TestSkillsSortedAndDeduplicated(t *testing.T) {
	e := NewExtractor()

	skills := e.Skills("python PYTHON Python docker")
	assert.Equal(t, []string{"docker", "python"}, skills)
}

func TestSkillMentionsCountsEveryOccurrence(t *testing.T) {
	e := NewExtractor()

	n := e.SkillMentions("python is great. We love python. Also docker.", []string{"python", "docker"})
	assert.Equal(t, 3, n)
}

func TestExperienceYears(t *testing.T) {
	e := NewExtractor()

	cases := []struct {
		text string
		want int
	}{
		{"7 years of experience in backend work", 7},
		{"5+ years building distributed systems", 5},
		{"3-5 years in a similar role", 3},
		{"5-7 years of experience with distributed systems", 5},
		{"10+ years of professional experience", 10},
	}
	for _, c := range cases {
		got := e.ExperienceYears(c.text)
		require.NotNil(t, got, c.text)
		assert.Equal(t, c.want, *got, c.text)
	}

	assert.Nil(t, e.ExperienceYears("experienced team player"))
}

func TestExperienceLevelOfPrefersYearsOverKeywords(t *testing.T) {
	e := NewExtractor()

	// "junior" keyword present, but the explicit 6+ years wins.
	assert.Equal(t, LevelSenior, e.ExperienceLevelOf("junior mindset, 6+ years required"))
	assert.Equal(t, LevelEntry, e.ExperienceLevelOf("junior developer wanted"))
	assert.Equal(t, LevelStaff, e.ExperienceLevelOf("principal engineer role"))
	assert.Equal(t, LevelExecutive, e.ExperienceLevelOf("head of engineering"))
	assert.Equal(t, LevelNone, e.ExperienceLevelOf("software developer"))
}

func TestRoleTokens(t *testing.T) {
	e := NewExtractor()

	tokens := e.RoleTokens("Senior Backend Engineer (Remote) at Acme")
	assert.Equal(t, []string{"senior", "backend", "engineer", "acme"}, tokens)
}

func TestEducation(t *testing.T) {
	e := NewExtractor()

	assert.Equal(t, EducationPhD, e.Education("PhD in Machine Learning"))
	assert.Equal(t, EducationMaster, e.Education("M.S. in CS"))
	assert.Equal(t, EducationBachelor, e.Education("Bachelor's degree required"))
	assert.Equal(t, EducationUnknown, e.Education("self-taught"))
}

func TestContactInfo(t *testing.T) {
	e := NewExtractor()

	name, email := e.ContactInfo(sampleResume)
	assert.Equal(t, "Jane Smith", name)
	assert.Equal(t, "jane.smith@example.com", email)
}

func TestCandidateProfile(t *testing.T) {
	e := NewExtractor()

	p := e.CandidateProfile(sampleResume)
	assert.Equal(t, "Jane Smith", p.FullName)
	require.NotNil(t, p.ExperienceYears)
	assert.Equal(t, 7, *p.ExperienceYears)
	assert.Contains(t, p.Skills, "python")
	assert.Contains(t, p.Skills, "go")
	assert.Contains(t, p.Skills, "fastapi")
	assert.Contains(t, p.Skills, "docker")
	assert.Contains(t, p.Skills, "kubernetes")
	assert.Equal(t, EducationBachelor, p.Education)
}

func TestRequirementExplicitYears(t *testing.T) {
	e := NewExtractor()

	req := e.Requirement(Posting{
		Title:       "Backend Engineer",
		Description: "Looking for 5+ years with Python, FastAPI, Docker and Kubernetes.",
	})
	assert.True(t, req.ExplicitYears)
	assert.Equal(t, 5, req.MinYears)
	assert.Equal(t, 10, req.MaxYears)
	assert.Equal(t, LevelSenior, req.Level)
	assert.ElementsMatch(t, []string{"python", "fastapi", "docker", "kubernetes"}, req.Skills)
}

func TestRequirementYearsRangeUsesMinimum(t *testing.T) {
	e := NewExtractor()

	req := e.Requirement(Posting{
		Title:       "Backend Engineer",
		Description: "5-7 years of experience with Go required.",
	})
	assert.True(t, req.ExplicitYears)
	assert.Equal(t, 5, req.MinYears)
	assert.Equal(t, 10, req.MaxYears)
}

func TestRequirementLevelFallback(t *testing.T) {
	e := NewExtractor()

	req := e.Requirement(Posting{
		Title:       "Junior Java Developer",
		Description: "Entry level position working with Java and Spring.",
	})
	assert.False(t, req.ExplicitYears)
	assert.Equal(t, LevelEntry, req.Level)
	assert.Equal(t, 0, req.MinYears)
	assert.Equal(t, 2, req.MaxYears)
}
