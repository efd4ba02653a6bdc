package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, registered as "sqlite"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
)

// SQLite adapts the Dialect interface to database/sql + modernc.org/sqlite. No repo in
// the retrieval pack vendors a SQLite driver, so this one is named rather than
// grounded on a specific example file (see DESIGN.md); the sql.Open/PingContext shape
// still follows the same idiom as MySQL's Connect.
type SQLite struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewSQLite() *SQLite {
	return &SQLite{dbs: map[string]*sql.DB{}}
}

func (s *SQLite) Name() config.Dialect { return config.DialectSQLite }

func (s *SQLite) Placeholder(_ int, _, _ string) string { return "?" }

func (s *SQLite) Supports(feature string) bool {
	switch feature {
	case FeatureWildcardEscape:
		return true
	default:
		return false
	}
}

func (s *SQLite) db(ctx context.Context, backend config.Backend) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[backend.Name]; ok {
		return db, nil
	}

	db, err := sql.Open("sqlite", backend.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection for backend %q: %w", backend.Name, err)
	}
	// A single writer lock guards the whole file; Lotus never writes, but SQLite still
	// serializes concurrent readers poorly without this.
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping backend %q: %w", backend.Name, err)
	}
	s.dbs[backend.Name] = db
	return db, nil
}

// Begin ignores searchPath: SQLite has no schema-search concept (spec.md §3 marks
// search_path PostgreSQL-only). It also ignores statementTimeout, and it does not set
// PRAGMA query_only; the read-only transaction is the only write guard.
func (s *SQLite) Begin(ctx context.Context, backend config.Backend, statementTimeout time.Duration, searchPath string) (Session, error) {
	db, err := s.db(ctx, backend)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, s.FormatError(err)
	}

	return &sqliteSession{dialect: s, tx: tx}, nil
}

func (s *SQLite) FormatError(err error) *lotuserr.Error {
	if err == context.DeadlineExceeded {
		return lotuserr.Timeout()
	}
	return lotuserr.BackendError(fmt.Sprintf("SQL error: %s", err.Error()), err)
}

type sqliteSession struct {
	dialect *SQLite
	tx      *sql.Tx
	closed  bool
}

func (sess *sqliteSession) Query(ctx context.Context, query string, args []any) ([]string, [][]any, error) {
	rows, err := sess.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, sess.dialect.FormatError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, sess.dialect.FormatError(err)
	}

	var out [][]any
	for rows.Next() {
		scanTargets := make([]any, len(columns))
		values := make([]any, len(columns))
		for i := range scanTargets {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, sess.dialect.FormatError(err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, sess.dialect.FormatError(err)
	}
	return columns, out, nil
}

func (sess *sqliteSession) Close(context.Context) error {
	if sess.closed {
		return nil
	}
	sess.closed = true
	return sess.tx.Rollback()
}
