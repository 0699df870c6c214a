package workflow

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument(t *testing.T) *Document {
	t.Helper()
	doc := map[string]any{
		"resume": map[string]any{
			"summary": "Backend engineer with seven years of experience shipping services.",
			"skills":  []string{"python", "fastapi", "docker"},
			"experience": []map[string]string{
				{"title": "Senior Engineer", "description": "Built the payments platform."},
			},
		},
		"cover_letter": map[string]any{
			"greeting": "Dear Hiring Manager,",
			"body":     strings.Repeat("I am a strong fit for this role. ", 10),
			"closing":  "Sincerely, Jane",
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return &Document{Raw: string(raw)}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(validDocument(t)))
}

func TestValidateRejectsNonJSON(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate(&Document{Raw: "I could not produce the document, sorry."})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems[0], "not valid JSON")
}

func TestValidateRejectsEmptyDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.Error(t, v.Validate(nil))
	assert.Error(t, v.Validate(&Document{Raw: "   "}))
}

func TestValidateReportsAllProblems(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate(&Document{Raw: `{
		"resume": {"summary": "too short", "skills": ["python"], "experience": []},
		"cover_letter": {"greeting": "Hi", "body": "short", "closing": "Bye"}
	}`})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// Short summary, too few skills, empty experience, short body.
	assert.GreaterOrEqual(t, len(verr.Problems), 4)
}

func TestValidateRejectsMissingSections(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate(&Document{Raw: `{"resume": {"summary": "a perfectly reasonable professional summary line", "skills": ["a", "b", "c"], "experience": [{"title": "x", "description": "y"}]}}`})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "cover_letter")
}

func TestExtractJSONStripsFences(t *testing.T) {
	fenced := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, extractJSON(fenced))

	chatty := "Here is the document:\n{\"a\": 1}\nHope that helps."
	assert.Equal(t, `{"a": 1}`, extractJSON(chatty))

	assert.Equal(t, `{"a": 1}`, extractJSON(`{"a": 1}`))
}
