package runner

import (
	"github.com/lotusdb/lotus/binder"
	"github.com/lotusdb/lotus/cache"
)

// Query is one request to run through the full C1-C9 pipeline.
type Query struct {
	// Backend selects a configured repo by name; empty uses the configured
	// default backend.
	Backend string
	// SQL is the `{{var}}`-templated statement supplied by the caller.
	SQL string
	// Vars declares every variable SQL may reference, per spec.md §3.
	Vars []binder.VariableSpec
	// Values supplies runtime-provided raw values by variable name.
	Values map[string]string
	// SearchPath is folded into the cache key and, where the dialect supports it,
	// scopes unqualified table resolution (PostgreSQL search_path).
	SearchPath string
	// TableHint names the primary table this statement selects from, letting C4's
	// type-inference step (spec.md §4.4) consult C3's schema cache before the
	// statement has been preflight-checked (preflight is the only stage that
	// actually discovers touched relations, but it runs after binding). Leaving
	// this empty simply disables inference for this call; binding still succeeds
	// using each variable's declared or default type.
	TableHint string
	// CacheMode selects how this call interacts with the result cache.
	CacheMode cache.Mode
	// CacheProfile names a configured cache.Profile for TTL/tag defaults; empty
	// uses the cache's configured default profile.
	CacheProfile string
	// AllowWrite explicitly enables write mode for this one call, bypassing C5's
	// deny-list validation per spec.md §4.7 step 3 ("unless write mode is
	// explicitly enabled"). Setting config.Config.ReadOnly to false disables C5
	// process-wide; AllowWrite is the per-call equivalent for an otherwise read-only
	// config.
	AllowWrite bool
	// Offset and Limit request a page of rows, per spec.md §3/§2's C9 "paging/
	// window" responsibility. A Limit of 0 with a positive Offset means "use
	// config.DefaultPageSize"; when both are 0 no paging is applied.
	Offset int
	Limit  int
}

// Window describes the page actually returned when offset/limit paging applied.
// TotalEstimate is Offset plus the number of rows returned in this page: a lower
// bound, not a total count.
type Window struct {
	Offset        int
	Limit         int
	TotalEstimate int64
}

// Result is what Run returns: the post-processed rows, execution metadata, and
// whether they were served from cache.
type Result struct {
	Columns []string
	Rows    [][]any
	// NumRows is len(Rows); no affected-row count is reported for write statements
	// executed under AllowWrite.
	NumRows int
	// DurationMS is wall-clock time spent in execute(): session open through
	// post-processing, excluding cache lookup/store overhead.
	DurationMS int64
	// Command is the statement's leading SQL keyword (SELECT, INSERT, ...), per
	// spec.md §3's result metadata.
	Command string
	// Meta carries additional execution metadata; Run sets "query_id", the
	// correlation ID also written to the audit log line.
	Meta map[string]any
	// Window is set only when the query requested offset/limit paging.
	Window   *Window
	CacheHit bool
}
