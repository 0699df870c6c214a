package workflow

import (
	"encoding/json"
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed document_schema.json
var documentSchema string

// ValidationError lists everything wrong with a generated document. The
// problems are phrased for feeding back into the next generation attempt.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "document validation failed: " + strings.Join(e.Problems, "; ")
}

// Validator checks generated documents against the application document
// schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate returns a *ValidationError describing every structural problem,
// or nil when the document is acceptable.
func (v *Validator) Validate(doc *Document) error {
	if doc == nil || strings.TrimSpace(doc.Raw) == "" {
		return &ValidationError{Problems: []string{"document is empty"}}
	}

	if !json.Valid([]byte(doc.Raw)) {
		return &ValidationError{Problems: []string{"document is not valid JSON"}}
	}

	result, err := v.schema.Validate(gojsonschema.NewStringLoader(doc.Raw))
	if err != nil {
		return &ValidationError{Problems: []string{fmt.Sprintf("document could not be validated: %v", err)}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &ValidationError{Problems: problems}
}
