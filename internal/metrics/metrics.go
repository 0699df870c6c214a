// Package metrics holds the process-wide Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchCalls counts external job board API calls.
	SearchCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobforge_search_calls_total",
		Help: "External job board API calls made.",
	})

	// PostingsDeduplicated counts postings dropped as duplicates during a run.
	PostingsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobforge_postings_deduplicated_total",
		Help: "Postings dropped by within-run deduplication.",
	})

	// CouncilCompletions counts individual model calls made by deliberations.
	CouncilCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobforge_council_completions_total",
		Help: "Model completions requested by council deliberations.",
	})

	// GenerationAttempts counts document generation attempts, retries included.
	GenerationAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobforge_generation_attempts_total",
		Help: "Application document generation attempts.",
	})

	// ValidationFailures counts generated documents rejected by validation.
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobforge_validation_failures_total",
		Help: "Generated documents that failed structural validation.",
	})
)
