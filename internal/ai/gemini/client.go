// Package gemini implements ai.Completer on the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jobforge/jobforge/internal/ai"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI client behind the ai.Completer interface.
// The model is chosen per call; DefaultModel applies when a call passes an
// empty model name.
type Client struct {
	client       *genai.Client
	defaultModel string

	// generate is swapped in tests; production always goes through genai.
	generate func(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error)
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	c := &Client{client: client, defaultModel: model}
	c.generate = func(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error) {
		return c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	}
	return c, nil
}

// DefaultModel returns the model used when a call does not name one.
func (c *Client) DefaultModel() string {
	if c == nil {
		return ""
	}
	return c.defaultModel
}

// Complete sends the prompt to the named model and returns the collected
// textual response with usage metadata and wall-clock latency.
func (c *Client) Complete(ctx context.Context, model, prompt string) (*ai.Completion, error) {
	if c == nil || c.generate == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = c.defaultModel
	}

	start := time.Now()
	resp, err := c.generate(ctx, model, prompt)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, errors.New("gemini api returned empty response")
	}

	completion := &ai.Completion{Text: output, LatencyMS: latency}
	if resp.UsageMetadata != nil {
		completion.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}
