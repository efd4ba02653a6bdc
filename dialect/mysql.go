package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
)

const mysqlErrQueryInterrupted uint16 = 1317

// MySQL adapts the Dialect interface to database/sql + go-sql-driver/mysql, grounded
// on smf's internal/apply.Applier.Connect (sql.Open + PingContext) and
// internal/introspect/mysql for the information_schema shape C3 reuses.
type MySQL struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewMySQL() *MySQL {
	return &MySQL{dbs: map[string]*sql.DB{}}
}

func (m *MySQL) Name() config.Dialect { return config.DialectMySQL }

func (m *MySQL) Placeholder(_ int, _, varType string) string {
	switch varType {
	case "integer":
		return "CAST(? AS SIGNED)"
	case "number":
		return "CAST(? AS DECIMAL)"
	case "date":
		return "CAST(? AS DATE)"
	case "datetime":
		return "CAST(? AS DATETIME)"
	case "time":
		return "CAST(? AS TIME)"
	case "boolean":
		return "CAST(? AS UNSIGNED)"
	case "json":
		return "CAST(? AS JSON)"
	default:
		return "?"
	}
}

func (m *MySQL) Supports(feature string) bool {
	switch feature {
	case FeatureWildcardEscape:
		return true
	default:
		return false
	}
}

func (m *MySQL) db(ctx context.Context, backend config.Backend) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok := m.dbs[backend.Name]; ok {
		return db, nil
	}

	db, err := sql.Open("mysql", backend.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection for backend %q: %w", backend.Name, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping backend %q: %w", backend.Name, err)
	}
	m.dbs[backend.Name] = db
	return db, nil
}

// Begin ignores searchPath: MySQL has no search_path concept (spec.md §3 marks
// search_path PostgreSQL-only); schema selection is the DSN's database name.
func (m *MySQL) Begin(ctx context.Context, backend config.Backend, statementTimeout time.Duration, searchPath string) (Session, error) {
	db, err := m.db(ctx, backend)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, m.FormatError(err)
	}

	if statementTimeout > 0 {
		ms := statementTimeout.Milliseconds()
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION max_execution_time = %d", ms)); err != nil {
			_ = tx.Rollback()
			return nil, m.FormatError(err)
		}
	}

	return &mysqlSession{dialect: m, tx: tx}, nil
}

func (m *MySQL) FormatError(err error) *lotuserr.Error {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlErrQueryInterrupted {
			return lotuserr.Timeout()
		}
		return lotuserr.BackendError(fmt.Sprintf("SQL error: %s", myErr.Message), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return lotuserr.Timeout()
	}
	return lotuserr.BackendError(fmt.Sprintf("SQL error: %s", err.Error()), err)
}

type mysqlSession struct {
	dialect *MySQL
	tx      *sql.Tx
	closed  bool
}

func (s *mysqlSession) Query(ctx context.Context, query string, args []any) ([]string, [][]any, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, s.dialect.FormatError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, s.dialect.FormatError(err)
	}

	var out [][]any
	for rows.Next() {
		scanTargets := make([]any, len(columns))
		values := make([]any, len(columns))
		for i := range scanTargets {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, s.dialect.FormatError(err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, s.dialect.FormatError(err)
	}
	return columns, out, nil
}

func (s *mysqlSession) Close(context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	// max_execution_time was set with SET SESSION, which outlives the transaction;
	// put it back to the server default before the connection returns to the pool.
	_, _ = s.tx.ExecContext(context.Background(), "SET SESSION max_execution_time = DEFAULT")
	return s.tx.Rollback()
}
