package schema

import (
	"context"
	"fmt"

	"github.com/lotusdb/lotus/dialect"
)

type mysqlInspector struct{}

// Columns mirrors smf's internal/introspect/mysql.introspectColumns query shape,
// narrowed to the columns C4's type inference needs.
func (mysqlInspector) Columns(ctx context.Context, sess dialect.Session, schemaName, table string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
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
		if s, ok := row[4].(string); ok {
			col.PrimaryKey = s == "PRI"
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (mysqlInspector) Schemas(ctx context.Context, sess dialect.Session) ([]string, error) {
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

func (mysqlInspector) Tables(ctx context.Context, sess dialect.Session, schemaName string) ([]TableRef, error) {
	const q = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ?
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

func (mysqlInspector) RowCount(ctx context.Context, sess dialect.Session, schemaName, table string) (int64, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM `%s`.`%s`", schemaName, table)
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
