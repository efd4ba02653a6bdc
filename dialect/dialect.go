// Package dialect implements C1 from spec.md: one adapter per supported engine that
// knows its placeholder syntax, how to enter/leave a scoped read-only session, and how
// to format driver-native errors into the stable taxonomy.
package dialect

import (
	"context"
	"time"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
)

// Feature names passed to Dialect.Supports.
const (
	FeatureIntervalLiteral = "interval_literal" // `interval '1 day'` rewriting (PG only)
	FeatureWildcardEscape  = "wildcard_escape"  // reported by Supports only; Stage A does no LIKE escaping and no stage checks this flag
	FeaturePreparedPlan    = "prepared_plan"    // reported by Supports only; preflight selects its PREPARE path by dialect name
)

// Session is a single checked-out, read-only-scoped connection handed to the runner
// for the lifetime of one query. Query runs inside it; Close rolls the transaction
// back, undoes any session-level setting Begin made outside it (MySQL's
// max_execution_time), and returns the connection to the pool. Close must be safe to call more than once and must run
// on every exit path — callers use defer, mirroring the RAII-style guarantee spec.md §9
// requires for session snapshot/restore.
type Session interface {
	// Query runs a single read-only SELECT/WITH/VALUES/EXPLAIN/SHOW statement and
	// returns rows as column names plus row-major values.
	Query(ctx context.Context, sql string, args []any) (columns []string, rows [][]any, err error)
	// Close restores session-local state and releases the underlying connection.
	Close(ctx context.Context) error
}

// Dialect adapts one SQL engine family to the uniform pipeline in C1–C9.
type Dialect interface {
	// Name identifies the dialect for logging and rule-set lookups ("postgres", "mysql", "sqlite").
	Name() config.Dialect

	// Placeholder returns the positional placeholder text for argument index i (0-based),
	// optionally wrapped in a dialect-native cast for varType (a binder.VarType string
	// value such as "integer", "date", "uuid"; empty or unrecognized means no cast). Per
	// spec.md §6's `placeholder(index, name, type)`: PostgreSQL emits `$N` optionally
	// suffixed with `::integer|::numeric|::date|::timestamp|::time|::boolean|::jsonb|
	// ::uuid`; MySQL emits `CAST(? AS SIGNED|DECIMAL|DATE|DATETIME|TIME|UNSIGNED|JSON)`
	// or bare `?`; SQLite always emits bare `?`. name is accepted for parity with the
	// spec's signature and dialects that need it for named placeholders; none do today.
	Placeholder(i int, name, varType string) string

	// Supports reports whether a named pipeline feature applies to this dialect.
	Supports(feature string) bool

	// Begin opens a connection from backend's pool and switches it into a scoped read-only
	// transaction (BEGIN READ ONLY / equivalent) with the given statement timeout and, when
	// non-empty, searchPath (PostgreSQL only; other dialects ignore it, per spec.md
	// §4.1/§3's "search_path: ... PostgreSQL only"). No snapshot of prior session state is
	// taken: PostgreSQL uses SET LOCAL, which ends with the transaction; MySQL sets
	// max_execution_time per session and Close resets it to the server default; SQLite
	// ignores the statement timeout and relies on the read-only transaction alone (it
	// does not set PRAGMA query_only). Callers must defer Close immediately after a
	// successful Begin.
	Begin(ctx context.Context, backend config.Backend, statementTimeout time.Duration, searchPath string) (Session, error)

	// FormatError turns a driver-native error into the BackendError message contract from
	// spec.md §6, without leaking driver-internal detail the caller didn't ask for.
	FormatError(err error) *lotuserr.Error
}
