// Package search runs budget-limited posting searches and keeps the call
// ledger that enforces cooldowns across runs.
package search

import (
	"context"
	"time"
)

// RunRecord is one completed search run in the ledger history.
type RunRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Calls     int       `json:"calls"`
	Found     int       `json:"found"`
	Matched   int       `json:"matched"`
}

// Ledger is the persistent call-budget state. CallsUsed only ever grows
// within a budget period.
type Ledger struct {
	LastRun   time.Time   `json:"last_run"`
	CallsUsed int         `json:"total_api_calls"`
	Runs      []RunRecord `json:"runs"`
}

// Store persists the ledger. Write must be atomic: a reader never observes a
// partially written ledger.
type Store interface {
	// Read returns the current ledger, or an empty one when none exists yet.
	Read(ctx context.Context) (*Ledger, error)
	Write(ctx context.Context, ledger *Ledger) error
}
