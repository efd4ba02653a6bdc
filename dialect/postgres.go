package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
)

// PostgreSQL error codes. FormatError maps query_canceled to Timeout and gives
// syntax errors a "SQL syntax error:" prefix; the others are listed for reference
// and get the generic "SQL error:" prefix.
const (
	pgErrQueryCanceled  = "57014"
	pgErrUndefinedTable = "42P01"
	pgErrUndefinedCol   = "42703"
	pgErrSyntaxError    = "42601"
)

// Postgres adapts the uniform Dialect interface to jackc/pgx/v5, grounded on the
// teacher's internal/database.Connection (pool setup, BeforeAcquire health check,
// AfterConnect type registration) but scoped to a single read-only statement per
// session instead of a long-lived RLS-aware connection.
type Postgres struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool // keyed by backend name
}

// NewPostgres returns a Postgres dialect adapter with an empty pool cache; pools are
// created lazily per backend on first Begin.
func NewPostgres() *Postgres {
	return &Postgres{pools: map[string]*pgxpool.Pool{}}
}

func (p *Postgres) Name() config.Dialect { return config.DialectPostgres }

func (p *Postgres) Placeholder(i int, name, varType string) string {
	base := fmt.Sprintf("$%d", i+1)
	if cast := pgCast(varType); cast != "" {
		return base + cast
	}
	return base
}

// pgCast maps a binder.VarType string to the PostgreSQL type-annotation suffix
// spec.md §6 lists for `placeholder(index, name, type)`; unrecognized or untyped
// values get no cast (the plain positional placeholder).
func pgCast(varType string) string {
	switch varType {
	case "integer":
		return "::integer"
	case "number":
		return "::numeric"
	case "date":
		return "::date"
	case "datetime":
		return "::timestamp"
	case "time":
		return "::time"
	case "boolean":
		return "::boolean"
	case "json":
		return "::jsonb"
	case "uuid":
		return "::uuid"
	default:
		return ""
	}
}

func (p *Postgres) Supports(feature string) bool {
	switch feature {
	case FeatureIntervalLiteral, FeatureWildcardEscape, FeaturePreparedPlan:
		return true
	default:
		return false
	}
}

func (p *Postgres) pool(ctx context.Context, backend config.Backend) (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok := p.pools[backend.Name]; ok {
		return pool, nil
	}

	poolConfig, err := pgxpool.ParseConfig(backend.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string for backend %q: %w", backend.Name, err)
	}

	// BeforeAcquire discards connections that died while idle in the pool, the same
	// defense the teacher's connection.go applies against stale-connection errors.
	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := conn.Ping(pingCtx); err != nil {
			log.Debug().Err(err).Str("backend", backend.Name).Msg("discarding unhealthy connection from pool")
			return false
		}
		return true
	}

	// Lotus only ever reads, so QueryExecModeDescribeExec avoids prepared-statement
	// cache invalidation surprises the same way the teacher's pool config does.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		conn.TypeMap().RegisterType(&pgtype.Type{Name: "tsvector", OID: 3614, Codec: pgtype.TextCodec{}})
		conn.TypeMap().RegisterType(&pgtype.Type{Name: "tsquery", OID: 3615, Codec: pgtype.TextCodec{}})
		conn.TypeMap().RegisterType(&pgtype.Type{Name: "regclass", OID: 2205, Codec: pgtype.TextCodec{}})
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool for backend %q: %w", backend.Name, err)
	}
	p.pools[backend.Name] = pool
	return pool, nil
}

func (p *Postgres) Begin(ctx context.Context, backend config.Backend, statementTimeout time.Duration, searchPath string) (Session, error) {
	pool, err := p.pool(ctx, backend)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, p.FormatError(err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, p.FormatError(err)
	}

	if _, err := tx.Exec(ctx, "SET LOCAL transaction_read_only = on"); err != nil {
		_ = tx.Rollback(ctx)
		conn.Release()
		return nil, p.FormatError(err)
	}
	if statementTimeout > 0 {
		ms := statementTimeout.Milliseconds()
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms)); err != nil {
			_ = tx.Rollback(ctx)
			conn.Release()
			return nil, p.FormatError(err)
		}
	}
	if searchPath != "" {
		// search_path elements are not validated before reaching here; quoteSearchPath
		// double-quotes each element and doubles any embedded quote, which is what
		// keeps the SET LOCAL text safe without a parameterized SET statement, which
		// PostgreSQL does not support.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path = %s", quoteSearchPath(searchPath))); err != nil {
			_ = tx.Rollback(ctx)
			conn.Release()
			return nil, p.FormatError(err)
		}
	}

	return &pgSession{dialect: p, conn: conn, tx: tx}, nil
}

// quoteSearchPath double-quotes each comma-separated schema identifier in path so
// SET LOCAL search_path accepts mixed-case or reserved-word schema names safely.
func quoteSearchPath(path string) string {
	parts := strings.Split(path, ",")
	for i, part := range parts {
		parts[i] = `"` + strings.ReplaceAll(strings.TrimSpace(part), `"`, `""`) + `"`
	}
	return strings.Join(parts, ", ")
}

func (p *Postgres) FormatError(err error) *lotuserr.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgErrQueryCanceled {
			return lotuserr.Timeout()
		}
		if pgErr.Code == pgErrSyntaxError {
			return lotuserr.BackendError(fmt.Sprintf("SQL syntax error: %s", pgErr.Message), err)
		}
		return lotuserr.BackendError(fmt.Sprintf("SQL error: %s", pgErr.Message), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return lotuserr.Timeout()
	}
	return lotuserr.BackendError(fmt.Sprintf("SQL error: %s", err.Error()), err)
}

// pgSession is a single checked-out read-only transaction. Close always rolls back
// (the transaction never wrote anything, so there is nothing to commit) and releases
// the connection back to the pool; it is idempotent so a caller's defer Close after an
// earlier explicit Close is harmless.
type pgSession struct {
	dialect *Postgres
	conn    *pgxpool.Conn
	tx      pgx.Tx
	closed  bool
}

func (s *pgSession) Query(ctx context.Context, sql string, args []any) ([]string, [][]any, error) {
	rows, err := s.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, s.dialect.FormatError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, s.dialect.FormatError(err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, s.dialect.FormatError(err)
	}
	return columns, out, nil
}

func (s *pgSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.tx.Rollback(ctx)
	s.conn.Release()
	return nil
}
