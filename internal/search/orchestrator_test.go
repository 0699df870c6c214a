package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/profile"
)

// memStore is an in-memory ledger store for orchestrator tests.
type memStore struct {
	ledger Ledger
	writes int
}

func (s *memStore) Read(context.Context) (*Ledger, error) {
	copied := s.ledger
	copied.Runs = append([]RunRecord(nil), s.ledger.Runs...)
	return &copied, nil
}

func (s *memStore) Write(_ context.Context, ledger *Ledger) error {
	s.ledger = *ledger
	s.writes++
	return nil
}

// scriptedSource serves canned pages per query. Unscripted pages are empty.
type scriptedSource struct {
	pages map[string][][]profile.Posting
	errs  map[string]error
	calls int
}

func (s *scriptedSource) Search(_ context.Context, query string, page, _ int) ([]profile.Posting, error) {
	s.calls++
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	pages := s.pages[query]
	if page-1 >= len(pages) {
		return nil, nil
	}
	return pages[page-1], nil
}

func posting(id int) profile.Posting {
	return profile.Posting{
		Title:      fmt.Sprintf("Engineer %d", id),
		Company:    "Acme",
		ExternalID: fmt.Sprintf("job-%d", id),
	}
}

func postingRange(from, to int) []profile.Posting {
	var out []profile.Posting
	for i := from; i < to; i++ {
		out = append(out, posting(i))
	}
	return out
}

func newTestOrchestrator(source Source, store Store, cfg Config) *Orchestrator {
	return NewOrchestrator(source, store, cfg, zap.NewNop())
}

func TestRunStopsAtCapAndMinimizesCalls(t *testing.T) {
	// Query 1 yields 40 unique postings over two full pages and an empty
	// third. Query 2 overlaps by 10 and fills the rest of the cap. Query 3
	// must never be called.
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {postingRange(0, 20), postingRange(20, 40), nil},
		"q2": {
			append(postingRange(30, 40), postingRange(40, 50)...),
			postingRange(50, 70),
		},
		"q3": {postingRange(100, 120)},
	}}
	store := &memStore{}

	result, err := newTestOrchestrator(source, store, Config{ResultCap: 60, PageSize: 20}).
		Run(context.Background(), []string{"q1", "q2", "q3"})
	require.NoError(t, err)

	assert.Len(t, result.Postings, 60)
	assert.Equal(t, 5, result.Calls)
	assert.Equal(t, 5, source.calls)
	assert.Equal(t, 10, result.Deduplicated)
}

func TestRunDeduplicatesByExternalID(t *testing.T) {
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {postingRange(0, 5)},
		"q2": {postingRange(0, 5)},
	}}

	result, err := newTestOrchestrator(source, &memStore{}, Config{ResultCap: 50, PageSize: 20}).
		Run(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)

	assert.Len(t, result.Postings, 5)
	assert.Equal(t, 5, result.Deduplicated)
}

func TestRunDeduplicatesByNormalizedIdentity(t *testing.T) {
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {{
			{Title: "Backend Engineer", Company: "Acme", Location: "Berlin"},
			{Title: "  backend   ENGINEER ", Company: "acme", Location: "BERLIN"},
			{Title: "Backend Engineer", Company: "Other", Location: "Berlin"},
		}},
	}}

	result, err := newTestOrchestrator(source, &memStore{}, Config{ResultCap: 50, PageSize: 20}).
		Run(context.Background(), []string{"q1"})
	require.NoError(t, err)

	assert.Len(t, result.Postings, 2)
	assert.Equal(t, 1, result.Deduplicated)
}

func TestRunCooldownBoundary(t *testing.T) {
	t0 := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store := &memStore{ledger: Ledger{LastRun: t0}}
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {postingRange(0, 3)},
	}}

	o := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20, Cooldown: time.Hour})

	// Strictly inside the cooldown window: refused.
	o.now = func() time.Time { return t0.Add(59 * time.Minute) }
	_, err := o.Run(context.Background(), []string{"q1"})
	var cooldownErr *CooldownActiveError
	require.ErrorAs(t, err, &cooldownErr)
	assert.Equal(t, time.Minute, cooldownErr.Remaining)
	assert.Zero(t, source.calls)

	// Exactly at the boundary: permitted.
	o.now = func() time.Time { return t0.Add(time.Hour) }
	result, err := o.Run(context.Background(), []string{"q1"})
	require.NoError(t, err)
	assert.Len(t, result.Postings, 3)
}

func TestRunBudgetExceeded(t *testing.T) {
	store := &memStore{ledger: Ledger{CallsUsed: 250}}
	source := &scriptedSource{}

	_, err := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20, PeriodCallCap: 250}).
		Run(context.Background(), []string{"q1"})

	var budgetErr *BudgetExceededError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, 250, budgetErr.Used)
	assert.Equal(t, 250, budgetErr.Cap)
	assert.Zero(t, source.calls)
}

func TestRunLedgerIsMonotonic(t *testing.T) {
	store := &memStore{}
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {postingRange(0, 3)},
	}}
	o := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20})

	_, err := o.Run(context.Background(), []string{"q1"})
	require.NoError(t, err)
	first := store.ledger.CallsUsed

	_, err = o.Run(context.Background(), []string{"q1"})
	require.NoError(t, err)

	assert.Greater(t, store.ledger.CallsUsed, first)
	assert.Len(t, store.ledger.Runs, 2)
	assert.Equal(t, 1, store.ledger.Runs[0].Calls)
	assert.Equal(t, 3, store.ledger.Runs[0].Found)
}

func TestRunQueryFailureContributesZeroResults(t *testing.T) {
	source := &scriptedSource{
		pages: map[string][][]profile.Posting{
			"good": {postingRange(0, 4)},
		},
		errs: map[string]error{"bad": errors.New("board unavailable")},
	}
	store := &memStore{}

	result, err := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20}).
		Run(context.Background(), []string{"bad", "good"})
	require.NoError(t, err)

	assert.Len(t, result.Postings, 4)
	// The failed call still counts against the budget.
	assert.Equal(t, 2, result.Calls)
	assert.Equal(t, 2, store.ledger.CallsUsed)
}

// cancellingSource cancels the run context while serving its first page.
type cancellingSource struct {
	scriptedSource
	cancel context.CancelFunc
}

func (s *cancellingSource) Search(ctx context.Context, query string, page, size int) ([]profile.Posting, error) {
	s.cancel()
	return s.scriptedSource.Search(ctx, query, page, size)
}

func TestRunCancelledMidRunRecordsPartialProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{}
	source := &cancellingSource{
		scriptedSource: scriptedSource{pages: map[string][][]profile.Posting{
			"q1": {postingRange(0, 3)},
			"q2": {postingRange(10, 13)},
		}},
		cancel: cancel,
	}

	result, err := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20}).
		Run(ctx, []string{"q1", "q2"})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Len(t, result.Postings, 3)
	assert.Equal(t, 1, result.Calls)
	// q2 never runs, but the call already made lands in the ledger.
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, 1, store.ledger.CallsUsed)
	require.Len(t, store.ledger.Runs, 1)
	assert.Equal(t, 3, store.ledger.Runs[0].Found)
}

func TestRunCancelledContext(t *testing.T) {
	store := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOrchestrator(&scriptedSource{}, store, Config{ResultCap: 50, PageSize: 20}).
		Run(ctx, []string{"q1"})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.writes)
}

func TestRecordMatches(t *testing.T) {
	store := &memStore{}
	source := &scriptedSource{pages: map[string][][]profile.Posting{
		"q1": {postingRange(0, 5)},
	}}
	o := newTestOrchestrator(source, store, Config{ResultCap: 50, PageSize: 20})

	_, err := o.Run(context.Background(), []string{"q1"})
	require.NoError(t, err)

	require.NoError(t, o.RecordMatches(context.Background(), 2))
	assert.Equal(t, 2, store.ledger.Runs[0].Matched)

	empty := &memStore{}
	assert.Error(t, NewOrchestrator(source, empty, Config{}, zap.NewNop()).RecordMatches(context.Background(), 1))
}
