package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/metrics"
	"github.com/jobforge/jobforge/internal/profile"
)

// Source is one page of board results per call. Implemented by
// jobboard.Client and by scripted sources in tests.
type Source interface {
	Search(ctx context.Context, query string, page, pageSize int) ([]profile.Posting, error)
}

// Config bounds one search run and the budget across runs.
type Config struct {
	// ResultCap stops the run once this many unique postings are collected.
	ResultCap int `mapstructure:"result_cap"`
	// PageSize is requested from the source on every call.
	PageSize int `mapstructure:"page_size"`
	// Cooldown is the minimum gap between runs. A run is refused while the
	// elapsed time since the last run is strictly below it.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// PeriodCallCap refuses new runs once CallsUsed reaches it. Zero
	// disables the cap.
	PeriodCallCap int `mapstructure:"period_call_cap"`
	// QueryPause is slept between queries to pace the board API.
	QueryPause time.Duration `mapstructure:"query_pause"`
}

const (
	defaultResultCap = 50
	defaultPageSize  = 20
)

// CooldownActiveError refuses a run started before the cooldown elapsed.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("search cooldown active: %s remaining", e.Remaining)
}

// BudgetExceededError refuses a run once the periodic call budget is spent.
type BudgetExceededError struct {
	Used int
	Cap  int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("search call budget exceeded: %d of %d calls used", e.Used, e.Cap)
}

// Result is the outcome of one search run.
type Result struct {
	Postings     []profile.Posting
	Calls        int
	Deduplicated int
}

// Orchestrator runs sequential budget-limited searches. The mutex makes the
// cooldown check, the run, and the ledger write one critical section: two
// concurrent Run calls can never both pass the cooldown gate.
type Orchestrator struct {
	source Source
	store  Store
	cfg    Config
	logger *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewOrchestrator(source Source, store Store, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = defaultResultCap
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Orchestrator{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes the queries in order, deduplicating inline and stopping at
// the result cap. A failed query contributes zero results; the run goes on.
// The ledger is updated exactly once, at the end. Cancellation after the
// first call still records the calls made, and the partial result is
// returned alongside the context error.
func (o *Orchestrator) Run(ctx context.Context, queries []string) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ledger, err := o.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	if o.cfg.Cooldown > 0 && !ledger.LastRun.IsZero() {
		if elapsed := o.now().Sub(ledger.LastRun); elapsed < o.cfg.Cooldown {
			return nil, &CooldownActiveError{Remaining: o.cfg.Cooldown - elapsed}
		}
	}
	if o.cfg.PeriodCallCap > 0 && ledger.CallsUsed >= o.cfg.PeriodCallCap {
		return nil, &BudgetExceededError{Used: ledger.CallsUsed, Cap: o.cfg.PeriodCallCap}
	}

	result := &Result{}
	seen := make(map[string]bool)

	var runErr error
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if len(result.Postings) >= o.cfg.ResultCap {
			break
		}
		if i > 0 {
			if err := o.pause(ctx); err != nil {
				runErr = err
				break
			}
		}

		o.runQuery(ctx, query, ledger.CallsUsed, seen, result)
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	// A run cancelled before its first call left no trace to record.
	if runErr != nil && result.Calls == 0 {
		return nil, runErr
	}

	ledger.LastRun = o.now()
	ledger.CallsUsed += result.Calls
	ledger.Runs = append(ledger.Runs, RunRecord{
		Timestamp: ledger.LastRun,
		Calls:     result.Calls,
		Found:     len(result.Postings),
	})
	// The write uses a detached context so calls already made against the
	// budget land in the ledger even when the run was cancelled.
	if err := o.store.Write(context.WithoutCancel(ctx), ledger); err != nil {
		return nil, fmt.Errorf("record search run: %w", err)
	}

	o.logger.Info("search run complete",
		zap.Int("queries", len(queries)),
		zap.Int("calls", result.Calls),
		zap.Int("postings", len(result.Postings)),
		zap.Int("deduplicated", result.Deduplicated),
	)
	return result, runErr
}

// runQuery pages through one query until the cap is reached, the query is
// exhausted, or the source fails.
func (o *Orchestrator) runQuery(ctx context.Context, query string, usedCalls int, seen map[string]bool, result *Result) {
	for page := 1; len(result.Postings) < o.cfg.ResultCap; page++ {
		if ctx.Err() != nil {
			return
		}
		if o.cfg.PeriodCallCap > 0 && usedCalls+result.Calls >= o.cfg.PeriodCallCap {
			return
		}

		postings, err := o.source.Search(ctx, query, page, o.cfg.PageSize)
		result.Calls++
		metrics.SearchCalls.Inc()
		if err != nil {
			o.logger.Warn("query failed, continuing with zero results",
				zap.String("query", query),
				zap.Int("page", page),
				zap.Error(err),
			)
			return
		}

		for _, p := range postings {
			key := identityKey(p)
			if seen[key] {
				result.Deduplicated++
				metrics.PostingsDeduplicated.Inc()
				continue
			}
			seen[key] = true
			result.Postings = append(result.Postings, p)
			if len(result.Postings) >= o.cfg.ResultCap {
				break
			}
		}

		// A short page means the query is exhausted.
		if len(postings) < o.cfg.PageSize {
			return
		}
	}
}

// RecordMatches annotates the most recent run with the number of postings
// that cleared the match threshold. Scoring happens after the run, so the
// count arrives separately.
func (o *Orchestrator) RecordMatches(ctx context.Context, matched int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	ledger, err := o.store.Read(ctx)
	if err != nil {
		return err
	}
	if len(ledger.Runs) == 0 {
		return fmt.Errorf("no search run to annotate")
	}
	ledger.Runs[len(ledger.Runs)-1].Matched = matched
	return o.store.Write(ctx, ledger)
}

func (o *Orchestrator) pause(ctx context.Context) error {
	if o.cfg.QueryPause <= 0 {
		return nil
	}
	timer := time.NewTimer(o.cfg.QueryPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// identityKey prefers the board's external id and falls back to normalized
// title, company and location.
func identityKey(p profile.Posting) string {
	if p.ExternalID != "" {
		return "id:" + p.ExternalID
	}
	normalize := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return normalize(p.Title) + "|" + normalize(p.Company) + "|" + normalize(p.Location)
}
