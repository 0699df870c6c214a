package profile

import "time"

// EducationLevel is the highest education signal found in a text.
type EducationLevel string

const (
	EducationUnknown   EducationLevel = "unknown"
	EducationAssociate EducationLevel = "associate"
	EducationBachelor  EducationLevel = "bachelor"
	EducationMaster    EducationLevel = "master"
	EducationPhD       EducationLevel = "phd"
)

// ExperienceLevel is a seniority bucket derived from posting text.
type ExperienceLevel string

const (
	LevelNone      ExperienceLevel = ""
	LevelEntry     ExperienceLevel = "entry"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelStaff     ExperienceLevel = "staff"
	LevelExecutive ExperienceLevel = "executive"
)

// levelYears maps a seniority bucket to its canonical year range.
var levelYears = map[ExperienceLevel][2]int{
	LevelEntry:     {0, 2},
	LevelMid:       {2, 5},
	LevelSenior:    {5, 10},
	LevelStaff:     {10, 15},
	LevelExecutive: {15, 100},
}

// YearsRange returns the canonical (min, max) years for a level. Unknown
// levels accept anything.
func (l ExperienceLevel) YearsRange() (int, int) {
	if r, ok := levelYears[l]; ok {
		return r[0], r[1]
	}
	return 0, 100
}

// CandidateProfile is the structured view of a resume. Immutable once
// extracted; re-derive it when the source text changes.
type CandidateProfile struct {
	Skills          []string
	ExperienceYears *int
	DesiredRoles    []string
	Education       EducationLevel
	FullName        string
	Email           string
}

// Posting is the raw identity of a job posting as returned by a board.
type Posting struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	ExternalID  string    `json:"external_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	PostedAt    time.Time `json:"posted_at,omitempty"`
}

// Requirement is the structured view of a posting: the same shape as a
// candidate profile plus the posting identity it was derived from.
type Requirement struct {
	Skills []string
	// MinYears/MaxYears come from an explicit numeric expression when the
	// posting has one, otherwise from the level's canonical range.
	MinYears      int
	MaxYears      int
	Level         ExperienceLevel
	ExplicitYears bool
	Posting       Posting
}
