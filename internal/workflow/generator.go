package workflow

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/council"
	"github.com/jobforge/jobforge/internal/logger"
)

//go:embed generation_prompt.md
var generationPromptTemplate string

// CouncilGenerator produces application documents through a full council
// deliberation per attempt.
type CouncilGenerator struct {
	engine    *council.Engine
	logger    *zap.Logger
	maxLogLen int
}

func NewCouncilGenerator(engine *council.Engine, log *zap.Logger) *CouncilGenerator {
	return &CouncilGenerator{engine: engine, logger: log, maxLogLen: 200}
}

func (g *CouncilGenerator) Generate(ctx context.Context, req GenerationRequest) (*Document, error) {
	prompt, err := buildGenerationPrompt(req)
	if err != nil {
		return nil, err
	}

	synthesis, err := g.engine.Deliberate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("deliberate application document: %w", err)
	}

	g.logger.Debug("council produced application document",
		zap.String("title", req.Posting.Title),
		zap.Bool("degraded", synthesis.Degraded),
		zap.String("document_preview", logger.TruncateForLog(synthesis.FinalAnswer, g.maxLogLen)),
	)

	// Keep whatever came back, valid or not; the validator decides and its
	// problems drive the next attempt.
	return &Document{Raw: extractJSON(synthesis.FinalAnswer)}, nil
}

func buildGenerationPrompt(req GenerationRequest) (string, error) {
	candidateJSON, err := json.MarshalIndent(req.Candidate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate: %w", err)
	}
	postingJSON, err := json.MarshalIndent(req.Posting, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal posting: %w", err)
	}

	feedback := ""
	if len(req.Feedback) > 0 {
		var b strings.Builder
		b.WriteString("\nYOUR PREVIOUS ATTEMPT WAS REJECTED. Fix these problems:\n")
		for _, problem := range req.Feedback {
			fmt.Fprintf(&b, "- %s\n", problem)
		}
		feedback = b.String()
	}

	prompt := strings.ReplaceAll(generationPromptTemplate, "{{CANDIDATE}}", string(candidateJSON))
	prompt = strings.ReplaceAll(prompt, "{{POSTING}}", string(postingJSON))
	prompt = strings.ReplaceAll(prompt, "{{MATCH}}", req.Match.Summary(req.Posting))
	return strings.ReplaceAll(prompt, "{{FEEDBACK}}", feedback), nil
}

// extractJSON strips markdown fences and leading chatter around the JSON
// object a model returned.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}
