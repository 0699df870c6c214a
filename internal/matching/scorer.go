package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/jobforge/jobforge/internal/profile"
)

// Weights distributes the overall score across the four factors. The sum
// must be exactly 1.0.
type Weights struct {
	Skills     float64 `mapstructure:"skills"`
	Experience float64 `mapstructure:"experience"`
	Role       float64 `mapstructure:"role"`
	Keywords   float64 `mapstructure:"keywords"`
}

func DefaultWeights() Weights {
	return Weights{Skills: 0.40, Experience: 0.25, Role: 0.20, Keywords: 0.15}
}

func (w Weights) Validate() error {
	sum := w.Skills + w.Experience + w.Role + w.Keywords
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("match weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// Tuning holds the scoring constants that are not weights. Zero value is not
// usable; start from DefaultTuning.
type Tuning struct {
	// Neutral sub-scores applied when a side of the comparison has no signal.
	NeutralSkills     float64 `mapstructure:"neutral_skills"`
	NeutralRole       float64 `mapstructure:"neutral_role"`
	NeutralExperience float64 `mapstructure:"neutral_experience"`
	// Mentions of candidate skills at which keyword density saturates at 100.
	KeywordSaturation int `mapstructure:"keyword_saturation"`
	// Overqualification falloff. Entry-level postings penalize a surplus
	// harder and bottom out lower.
	OverqualFloor               float64 `mapstructure:"overqual_floor"`
	OverqualPenaltyPerYear      float64 `mapstructure:"overqual_penalty_per_year"`
	EntryOverqualFloor          float64 `mapstructure:"entry_overqual_floor"`
	EntryOverqualPenaltyPerYear float64 `mapstructure:"entry_overqual_penalty_per_year"`
}

func DefaultTuning() Tuning {
	return Tuning{
		NeutralSkills:               50,
		NeutralRole:                 100,
		NeutralExperience:           50,
		KeywordSaturation:           20,
		OverqualFloor:               70,
		OverqualPenaltyPerYear:      5,
		EntryOverqualFloor:          30,
		EntryOverqualPenaltyPerYear: 10,
	}
}

// MatchResult is the full scoring breakdown for one posting. All scores are
// in [0, 100], rounded to one decimal.
type MatchResult struct {
	Overall         float64                 `json:"overall"`
	SkillsScore     float64                 `json:"skills_score"`
	ExperienceScore float64                 `json:"experience_score"`
	RoleScore       float64                 `json:"role_score"`
	KeywordScore    float64                 `json:"keyword_score"`
	MatchedSkills   []string                `json:"matched_skills,omitempty"`
	MissingSkills   []string                `json:"missing_skills,omitempty"`
	Level           profile.ExperienceLevel `json:"level,omitempty"`
	Recommendations []string                `json:"recommendations,omitempty"`
}

// Scorer computes deterministic match scores. It performs no I/O and no AI
// calls; the same inputs always produce the same result.
type Scorer struct {
	weights   Weights
	tuning    Tuning
	extractor *profile.Extractor
}

func NewScorer(w Weights, t Tuning, e *profile.Extractor) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w, tuning: t, extractor: e}, nil
}

// Score compares a candidate against a posting requirement.
func (s *Scorer) Score(c profile.CandidateProfile, req profile.Requirement) MatchResult {
	res := MatchResult{Level: req.Level}

	res.SkillsScore, res.MatchedSkills, res.MissingSkills = s.scoreSkills(c, req)
	res.ExperienceScore = s.scoreExperience(c, req)
	res.RoleScore = s.scoreRole(c, req)
	res.KeywordScore = s.scoreKeywords(c, req)

	overall := res.SkillsScore*s.weights.Skills +
		res.ExperienceScore*s.weights.Experience +
		res.RoleScore*s.weights.Role +
		res.KeywordScore*s.weights.Keywords
	res.Overall = round1(clamp(overall))

	res.SkillsScore = round1(res.SkillsScore)
	res.ExperienceScore = round1(res.ExperienceScore)
	res.RoleScore = round1(res.RoleScore)
	res.KeywordScore = round1(res.KeywordScore)

	res.Recommendations = s.recommend(c, req, res)
	return res
}

// scoreSkills is the matched/required ratio. A posting with no extractable
// skills scores neutral rather than perfect: the absence of a signal is not
// evidence of a fit.
func (s *Scorer) scoreSkills(c profile.CandidateProfile, req profile.Requirement) (float64, []string, []string) {
	if len(req.Skills) == 0 {
		return s.tuning.NeutralSkills, nil, nil
	}

	have := make(map[string]bool, len(c.Skills))
	for _, skill := range c.Skills {
		have[strings.ToLower(skill)] = true
	}

	var matched, missing []string
	for _, skill := range req.Skills {
		if have[strings.ToLower(skill)] {
			matched = append(matched, skill)
		} else {
			missing = append(missing, skill)
		}
	}
	return float64(len(matched)) / float64(len(req.Skills)) * 100, matched, missing
}

// scoreExperience rates range fit. Under-qualification falls off linearly
// and reaches 0 when the candidate has less than half the required minimum.
// Over-qualification decays per surplus year down to a floor.
func (s *Scorer) scoreExperience(c profile.CandidateProfile, req profile.Requirement) float64 {
	if c.ExperienceYears == nil {
		return s.tuning.NeutralExperience
	}
	years := float64(*c.ExperienceYears)
	min, max := float64(req.MinYears), float64(req.MaxYears)

	switch {
	case years >= min && years <= max:
		return 100
	case years < min:
		// 100 at the minimum, 0 at half of it.
		halfShort := min / 2
		if years <= halfShort {
			return 0
		}
		return (years - halfShort) / (min - halfShort) * 100
	default:
		over := years - max
		floor, perYear := s.tuning.OverqualFloor, s.tuning.OverqualPenaltyPerYear
		if req.Level == profile.LevelEntry {
			floor, perYear = s.tuning.EntryOverqualFloor, s.tuning.EntryOverqualPenaltyPerYear
		}
		return math.Max(floor, 100-over*perYear)
	}
}

// scoreRole measures token overlap between the posting title and the
// candidate's desired roles, taking the best-matching role. An empty desired
// list is neutral at 100: an incomplete profile must not depress the score.
func (s *Scorer) scoreRole(c profile.CandidateProfile, req profile.Requirement) float64 {
	if len(c.DesiredRoles) == 0 {
		return s.tuning.NeutralRole
	}

	titleTokens := make(map[string]bool)
	for _, tok := range s.extractor.RoleTokens(req.Posting.Title) {
		titleTokens[tok] = true
	}

	best := 0.0
	for _, role := range c.DesiredRoles {
		tokens := s.extractor.RoleTokens(role)
		if len(tokens) == 0 {
			continue
		}
		hits := 0
		for _, tok := range tokens {
			if titleTokens[tok] {
				hits++
			}
		}
		if score := float64(hits) / float64(len(tokens)) * 100; score > best {
			best = score
		}
	}
	return best
}

// scoreKeywords is the density of candidate-skill mentions in the posting
// description, saturating at the configured mention count.
func (s *Scorer) scoreKeywords(c profile.CandidateProfile, req profile.Requirement) float64 {
	if len(c.Skills) == 0 || s.tuning.KeywordSaturation <= 0 {
		return 0
	}
	mentions := s.extractor.SkillMentions(strings.ToLower(req.Posting.Description), c.Skills)
	return math.Min(100, float64(mentions)/float64(s.tuning.KeywordSaturation)*100)
}

func (s *Scorer) recommend(c profile.CandidateProfile, req profile.Requirement, res MatchResult) []string {
	var recs []string
	if len(res.MissingSkills) > 0 {
		recs = append(recs, "Address missing skills: "+strings.Join(res.MissingSkills, ", "))
	}
	if c.ExperienceYears != nil && *c.ExperienceYears < req.MinYears {
		recs = append(recs, fmt.Sprintf("Posting asks for %d+ years; emphasize depth of the %d you have", req.MinYears, *c.ExperienceYears))
	}
	if c.ExperienceYears != nil && *c.ExperienceYears > req.MaxYears {
		recs = append(recs, "You exceed the posting's experience range; frame seniority as mentorship and ownership")
	}
	if res.KeywordScore < 30 {
		recs = append(recs, "Mirror more of the posting's terminology in your materials")
	}
	if len(recs) == 0 {
		recs = append(recs, "Strong alignment; apply with confidence")
	}
	return recs
}

// Summary renders a short human-readable report for one result.
func (res MatchResult) Summary(p profile.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s: %.1f/100\n", p.Title, p.Company, res.Overall)
	fmt.Fprintf(&b, "  skills %.1f | experience %.1f | role %.1f | keywords %.1f\n",
		res.SkillsScore, res.ExperienceScore, res.RoleScore, res.KeywordScore)
	if len(res.MatchedSkills) > 0 {
		fmt.Fprintf(&b, "  matched: %s\n", strings.Join(res.MatchedSkills, ", "))
	}
	if len(res.MissingSkills) > 0 {
		fmt.Fprintf(&b, "  missing: %s\n", strings.Join(res.MissingSkills, ", "))
	}
	for _, rec := range res.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	return b.String()
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
