// Package council runs a three-stage multi-model deliberation: concurrent
// first drafts, anonymized peer review, and a chairman synthesis.
package council

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/ai"
	"github.com/jobforge/jobforge/internal/logger"
	"github.com/jobforge/jobforge/internal/metrics"
)

//go:embed review_prompt.md
var reviewPromptTemplate string

//go:embed synthesis_prompt.md
var synthesisPromptTemplate string

const (
	defaultQuorum      = 2
	defaultCallTimeout = 2 * time.Minute
	defaultMaxLogLen   = 200
)

// Participant is one council seat: a display name and the model answering
// for it.
type Participant struct {
	Name  string `mapstructure:"name"`
	Model string `mapstructure:"model"`
}

func (p Participant) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Model
}

// QuorumError reports that too few participants produced a first-stage
// response for the deliberation to continue.
type QuorumError struct {
	Responded int
	Quorum    int
}

func (e *QuorumError) Error() string {
	return fmt.Sprintf("council quorum not met: %d of %d required responses", e.Responded, e.Quorum)
}

// RankedResponse is one participant's stage-1 answer with its aggregate
// peer-review standing. Position 1 is best; MeanPosition is +Inf for a
// response no review ranked.
type RankedResponse struct {
	Participant  string
	Text         string
	TokenCount   int
	LatencyMS    int64
	MeanPosition float64
}

// Synthesis is the deliberation outcome. Degraded marks a synthesis that
// fell back to the top-ranked stage-1 answer because the chairman failed.
type Synthesis struct {
	FinalAnswer string
	Ranking     []RankedResponse
	Chairman    string
	Degraded    bool
}

// Engine orchestrates deliberations over a shared Completer.
type Engine struct {
	completer    ai.Completer
	participants []Participant
	chairman     Participant
	quorum       int
	callTimeout  time.Duration
	logger       *zap.Logger
	maxLogLen    int
}

// Config carries the council composition. Zero Quorum and CallTimeout take
// defaults.
type Config struct {
	Participants []Participant `mapstructure:"participants"`
	Chairman     Participant   `mapstructure:"chairman"`
	Quorum       int           `mapstructure:"quorum"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
}

func NewEngine(completer ai.Completer, cfg Config, log *zap.Logger) (*Engine, error) {
	if completer == nil {
		return nil, fmt.Errorf("council completer is required")
	}
	if len(cfg.Participants) == 0 {
		return nil, fmt.Errorf("council needs at least one participant")
	}
	if cfg.Chairman.Model == "" {
		return nil, fmt.Errorf("council chairman model is required")
	}
	if len(cfg.Participants) > maxLabels {
		return nil, fmt.Errorf("council supports at most %d participants, got %d", maxLabels, len(cfg.Participants))
	}

	quorum := cfg.Quorum
	if quorum <= 0 {
		quorum = defaultQuorum
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Engine{
		completer:    completer,
		participants: cfg.Participants,
		chairman:     cfg.Chairman,
		quorum:       quorum,
		callTimeout:  timeout,
		logger:       log,
		maxLogLen:    defaultMaxLogLen,
	}, nil
}

type stageOneResponse struct {
	participant Participant
	completion  *ai.Completion
}

// Deliberate runs the full three-stage protocol for one query.
func (e *Engine) Deliberate(ctx context.Context, query string) (*Synthesis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("deliberation query must not be empty")
	}

	responses := e.stageOne(ctx, query)
	// Cancellation fails every participant call; report it as such rather
	// than as quorum loss.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(responses) < e.quorum {
		return nil, &QuorumError{Responded: len(responses), Quorum: e.quorum}
	}

	rankings := e.stageTwo(ctx, query, responses)
	ranked := aggregateRankings(responses, rankings)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return e.stageThree(ctx, query, ranked)
}

// stageOne fans the query out to every participant concurrently. Failed or
// timed-out participants are dropped; survivors keep participant order.
func (e *Engine) stageOne(ctx context.Context, query string) []stageOneResponse {
	results := make([]*ai.Completion, len(e.participants))

	done := make(chan int, len(e.participants))
	for i, p := range e.participants {
		go func(i int, p Participant) {
			defer func() { done <- i }()

			callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
			defer cancel()

			completion, err := e.completer.Complete(callCtx, p.Model, query)
			if err != nil {
				e.logger.Warn("council participant failed",
					zap.String("participant", p.displayName()),
					zap.String("model", p.Model),
					zap.Error(err),
				)
				return
			}
			metrics.CouncilCompletions.Inc()
			e.logger.Debug("council participant responded",
				zap.String("participant", p.displayName()),
				zap.Int64("latency_ms", completion.LatencyMS),
				zap.Int("response_length", utf8.RuneCountInString(completion.Text)),
				zap.String("response_preview", logger.TruncateForLog(completion.Text, e.maxLogLen)),
			)
			results[i] = completion
		}(i, p)
	}
	for range e.participants {
		<-done
	}

	var responses []stageOneResponse
	for i, completion := range results {
		if completion != nil {
			responses = append(responses, stageOneResponse{participant: e.participants[i], completion: completion})
		}
	}
	return responses
}

// stageTwo has each surviving participant rank the OTHER responses under a
// fresh anonymous label mapping. A reviewer never sees its own answer, so it
// cannot rank itself. Review failures are tolerated.
func (e *Engine) stageTwo(ctx context.Context, query string, responses []stageOneResponse) [][]int {
	rankings := make([][]int, len(responses))

	done := make(chan int, len(responses))
	for reviewer := range responses {
		go func(reviewer int) {
			defer func() { done <- reviewer }()

			prompt := buildReviewPrompt(query, responses, reviewer)

			callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
			defer cancel()

			completion, err := e.completer.Complete(callCtx, responses[reviewer].participant.Model, prompt)
			if err != nil {
				e.logger.Warn("council review failed",
					zap.String("reviewer", responses[reviewer].participant.displayName()),
					zap.Error(err),
				)
				return
			}

			metrics.CouncilCompletions.Inc()
			ranking := parseRanking(completion.Text, len(responses), reviewer)
			if len(ranking) == 0 {
				e.logger.Warn("council review produced no usable ranking",
					zap.String("reviewer", responses[reviewer].participant.displayName()),
					zap.String("response_preview", logger.TruncateForLog(completion.Text, e.maxLogLen)),
				)
				return
			}
			rankings[reviewer] = ranking
		}(reviewer)
	}
	for range responses {
		<-done
	}
	return rankings
}

// stageThree asks the chairman for the final synthesis with true identities
// revealed. Chairman failure is not retried; the engine degrades to the
// top-ranked stage-1 answer.
func (e *Engine) stageThree(ctx context.Context, query string, ranked []RankedResponse) (*Synthesis, error) {
	prompt := buildSynthesisPrompt(query, ranked)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	completion, err := e.completer.Complete(callCtx, e.chairman.Model, prompt)
	if err != nil {
		e.logger.Warn("council chairman failed, degrading to top-ranked response",
			zap.String("chairman", e.chairman.displayName()),
			zap.Error(err),
		)
		return &Synthesis{
			FinalAnswer: ranked[0].Text,
			Ranking:     ranked,
			Chairman:    e.chairman.displayName(),
			Degraded:    true,
		}, nil
	}

	metrics.CouncilCompletions.Inc()
	return &Synthesis{
		FinalAnswer: completion.Text,
		Ranking:     ranked,
		Chairman:    e.chairman.displayName(),
	}, nil
}
