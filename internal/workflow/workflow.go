// Package workflow gates document generation behind the match threshold and
// drives the bounded self-healing retry loop for each posting.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/matching"
	"github.com/jobforge/jobforge/internal/metrics"
	"github.com/jobforge/jobforge/internal/profile"
)

// State is an application record's position in the pipeline.
type State string

const (
	StateScored     State = "scored"
	StateSkipped    State = "skipped"
	StateGenerating State = "generating"
	StateValidating State = "validating"
	StateGenerated  State = "generated"
	StateFailed     State = "failed"
)

// Document is a generated application package as raw JSON. Raw is kept even
// when validation rejects it so the failure can be inspected.
type Document struct {
	Raw string
}

// ApplicationRecord tracks one posting through the pipeline.
type ApplicationRecord struct {
	ID          uuid.UUID
	Posting     profile.Posting
	State       State
	Score       matching.MatchResult
	Attempts    int
	LastError   string
	Document    *Document
	GeneratedAt time.Time
}

// GenerationRequest is everything a generator needs for one attempt.
// Feedback carries the validation problems of earlier attempts, oldest
// first, so the generator can correct them.
type GenerationRequest struct {
	Candidate profile.CandidateProfile
	Posting   profile.Posting
	Match     matching.MatchResult
	Feedback  []string
}

// Generator produces an application document for one posting.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Document, error)
}

// Config bounds the generation workflow.
type Config struct {
	// Threshold is the minimum overall match score that triggers generation.
	Threshold float64 `mapstructure:"threshold"`
	// MaxAttempts bounds the per-posting retry loop.
	MaxAttempts int `mapstructure:"max_attempts"`
	// Concurrency is the batch worker pool size.
	Concurrency int `mapstructure:"concurrency"`
}

const (
	defaultThreshold   = 70
	defaultMaxAttempts = 3
	defaultConcurrency = 2
)

// ScoredPosting pairs a requirement with its match result for batching.
type ScoredPosting struct {
	Requirement profile.Requirement
	Match       matching.MatchResult
}

// Processor runs the threshold gate and retry loop.
type Processor struct {
	generator Generator
	validator *Validator
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func NewProcessor(generator Generator, validator *Validator, cfg Config, logger *zap.Logger) *Processor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Processor{
		generator: generator,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Process takes one scored posting through the pipeline. Postings below the
// threshold are skipped without any generation call. Each validation failure
// feeds its problems into the next attempt; when attempts run out the record
// fails with the last error retained.
func (p *Processor) Process(ctx context.Context, candidate profile.CandidateProfile, sp ScoredPosting) *ApplicationRecord {
	rec := &ApplicationRecord{
		ID:      uuid.New(),
		Posting: sp.Requirement.Posting,
		State:   StateScored,
		Score:   sp.Match,
	}

	if sp.Match.Overall < p.cfg.Threshold {
		rec.State = StateSkipped
		p.logger.Debug("posting below threshold, skipping",
			zap.String("title", rec.Posting.Title),
			zap.Float64("score", sp.Match.Overall),
			zap.Float64("threshold", p.cfg.Threshold),
		)
		return rec
	}

	var feedback []string
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			rec.State = StateFailed
			rec.LastError = ctx.Err().Error()
			return rec
		}

		rec.State = StateGenerating
		rec.Attempts = attempt
		metrics.GenerationAttempts.Inc()

		doc, err := p.generator.Generate(ctx, GenerationRequest{
			Candidate: candidate,
			Posting:   sp.Requirement.Posting,
			Match:     sp.Match,
			Feedback:  feedback,
		})
		if err != nil {
			rec.LastError = err.Error()
			p.logger.Warn("generation attempt failed",
				zap.String("title", rec.Posting.Title),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		rec.State = StateValidating
		rec.Document = doc
		if err := p.validator.Validate(doc); err != nil {
			metrics.ValidationFailures.Inc()
			rec.LastError = err.Error()
			if verr, ok := err.(*ValidationError); ok {
				feedback = append(feedback, verr.Problems...)
			} else {
				feedback = append(feedback, err.Error())
			}
			p.logger.Warn("generated document rejected",
				zap.String("title", rec.Posting.Title),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		rec.State = StateGenerated
		rec.GeneratedAt = p.now()
		rec.LastError = ""
		return rec
	}

	rec.State = StateFailed
	return rec
}

// ProcessBatch runs Process over the postings with a fixed-size worker
// pool. The result order matches the input order.
func (p *Processor) ProcessBatch(ctx context.Context, candidate profile.CandidateProfile, postings []ScoredPosting) []*ApplicationRecord {
	records := make([]*ApplicationRecord, len(postings))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records[i] = p.Process(ctx, candidate, postings[i])
			}
		}()
	}

	for i := range postings {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return records
}
