// Package preflight implements C6: authorization by asking the engine which relations
// a statement touches, never by parsing SQL. spec.md §1 rejects parser-based
// authorization outright — the teacher's internal/rpc/validator.go uses
// pganalyze/pg_query_go for exactly this purpose, but that path is Postgres-only and
// exactly the approach this component must NOT take (see DESIGN.md). Each dialect
// asks its own engine instead: PREPARE + EXPLAIN (FORMAT JSON) EXECUTE on Postgres,
// EXPLAIN FORMAT=JSON on MySQL, EXPLAIN QUERY PLAN on SQLite.
package preflight

import (
	"context"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/visibility"
)

// Relation is one (schema, table) pair the engine reported as touched by a statement.
// Schema is empty where the dialect has no schema concept (SQLite) or the engine
// could not qualify it (MySQL uses the current database in that case).
type Relation struct {
	Schema string
	Table  string
}

// String renders "schema.table" or bare "table" when Schema is empty.
func (r Relation) String() string {
	if r.Schema == "" {
		return r.Table
	}
	return r.Schema + "." + r.Table
}

// Authorizer enumerates the relations a bound statement touches, per dialect.
type Authorizer interface {
	Relations(ctx context.Context, sess dialect.Session, sql string, paramTypes []string) ([]Relation, error)
}

// Registry resolves a dialect name to its Authorizer.
type Registry struct {
	authorizers map[config.Dialect]Authorizer
}

// NewRegistry builds a Registry wired to the three built-in authorizers.
func NewRegistry() *Registry {
	return &Registry{authorizers: map[config.Dialect]Authorizer{
		config.DialectPostgres: postgresAuthorizer{},
		config.DialectMySQL:    mysqlAuthorizer{},
		config.DialectSQLite:   sqliteAuthorizer{},
	}}
}

// Check runs the dialect's Authorizer and evaluates every discovered relation against
// engine. It returns the full relation list (for C9's scoped context) and, separately,
// the subset that is denied (for the BlockedTable error). A non-empty denied slice
// means the caller must abort before executing.
func (r *Registry) Check(ctx context.Context, dialectName config.Dialect, sess dialect.Session, engine *visibility.Engine, sql string, paramTypes []string) (touched []Relation, denied []Relation, err error) {
	auth, ok := r.authorizers[dialectName]
	if !ok {
		return nil, nil, unsupportedDialectError(dialectName)
	}
	touched, err = auth.Relations(ctx, sess, sql, paramTypes)
	if err != nil {
		return nil, nil, err
	}
	for _, rel := range touched {
		if !engine.TableAllowed(rel.Schema, rel.Table) {
			denied = append(denied, rel)
		}
	}
	return touched, denied, nil
}

type unsupportedDialectErr struct{ name config.Dialect }

func (e unsupportedDialectErr) Error() string {
	return "no preflight authorizer registered for dialect " + string(e.name)
}

func unsupportedDialectError(name config.Dialect) error { return unsupportedDialectErr{name} }
