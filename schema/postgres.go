package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/lotusdb/lotus/dialect"
)

type postgresInspector struct{}

func (postgresInspector) Columns(ctx context.Context, sess dialect.Session, schemaName, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable, column_default,
		       COALESCE((SELECT true FROM information_schema.table_constraints tc
		                 JOIN information_schema.key_column_usage kcu
		                   ON kcu.constraint_name = tc.constraint_name
		                  AND kcu.table_schema = tc.table_schema
		                 WHERE tc.constraint_type = 'PRIMARY KEY'
		                   AND tc.table_schema = c.table_schema
		                   AND tc.table_name = c.table_name
		                   AND kcu.column_name = c.column_name), false) AS is_primary_key
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	_, rows, err := sess.Query(ctx, q, []any{schemaName, table})
	if err != nil {
		return nil, fmt.Errorf("introspecting %s.%s: %w", schemaName, table, err)
	}

	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		col := Column{
			Name: fmt.Sprint(row[0]),
			Type: fmt.Sprint(row[1]),
		}
		if s, ok := row[2].(string); ok {
			col.Nullable = s == "YES"
		}
		if row[3] != nil {
			s := fmt.Sprint(row[3])
			col.Default = &s
		}
		if pk, ok := row[4].(bool); ok {
			col.PrimaryKey = pk
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (postgresInspector) Schemas(ctx context.Context, sess dialect.Session) ([]string, error) {
	const q = `SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`
	_, rows, err := sess.Query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, fmt.Sprint(row[0]))
	}
	return names, nil
}

func (postgresInspector) Tables(ctx context.Context, sess dialect.Session, schemaName string) ([]TableRef, error) {
	const q = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name
	`
	_, rows, err := sess.Query(ctx, q, []any{schemaName})
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", schemaName, err)
	}
	refs := make([]TableRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, TableRef{
			Schema: schemaName,
			Table:  fmt.Sprint(row[0]),
			IsView: fmt.Sprint(row[1]) == "VIEW",
		})
	}
	return refs, nil
}

func (postgresInspector) RowCount(ctx context.Context, sess dialect.Session, schemaName, table string) (int64, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", pgQuoteIdent(schemaName), pgQuoteIdent(table))
	_, rows, err := sess.Query(ctx, q, nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s.%s: %w", schemaName, table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := toInt64(rows[0][0])
	return n, nil
}

// pgQuoteIdent double-quotes an identifier for positions Postgres can't parameterize
// (schema/table names in FROM). Names here can come straight from callers of
// Runner.GetTableStats, so embedded double quotes are doubled.
func pgQuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
