package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/lotusdb/lotus/dialect"
)

type sqliteInspector struct{}

// Columns uses PRAGMA table_info, the shape spec.md §4.3 calls out explicitly for
// SQLite. SQLite has no schema concept beyond the attached database name, so
// schemaName is accepted for interface symmetry but ignored.
func (sqliteInspector) Columns(ctx context.Context, sess dialect.Session, _, table string) ([]Column, error) {
	q := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))
	_, rows, err := sess.Query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("introspecting %s: %w", table, err)
	}

	// PRAGMA table_info columns: cid, name, type, notnull, dflt_value, pk
	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		col := Column{
			Name: fmt.Sprint(row[1]),
			Type: fmt.Sprint(row[2]),
		}
		if notNull, ok := toInt64(row[3]); ok {
			col.Nullable = notNull == 0
		}
		if row[4] != nil {
			s := fmt.Sprint(row[4])
			col.Default = &s
		}
		if pk, ok := toInt64(row[5]); ok {
			col.PrimaryKey = pk != 0
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Schemas lists attached databases via PRAGMA database_list ("main" plus anything the
// DSN attached). SQLite has no schema concept beyond this, per spec.md §4.3's note
// that list_schemas degrades to the attached-database list on this dialect.
func (sqliteInspector) Schemas(ctx context.Context, sess dialect.Session) ([]string, error) {
	_, rows, err := sess.Query(ctx, "PRAGMA database_list", nil)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		names = append(names, fmt.Sprint(row[1]))
	}
	return names, nil
}

func (sqliteInspector) Tables(ctx context.Context, sess dialect.Session, schemaName string) ([]TableRef, error) {
	if schemaName == "" {
		schemaName = "main"
	}
	q := fmt.Sprintf("SELECT name, type FROM %s.sqlite_master WHERE type IN ('table', 'view') ORDER BY name", quoteIdent(schemaName))
	_, rows, err := sess.Query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", schemaName, err)
	}
	refs := make([]TableRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, TableRef{
			Schema: schemaName,
			Table:  fmt.Sprint(row[0]),
			IsView: fmt.Sprint(row[1]) == "view",
		})
	}
	return refs, nil
}

func (sqliteInspector) RowCount(ctx context.Context, sess dialect.Session, _, table string) (int64, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))
	_, rows, err := sess.Query(ctx, q, nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := toInt64(rows[0][0])
	return n, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case []byte:
		var out int64
		if _, err := fmt.Sscanf(string(n), "%d", &out); err != nil {
			return 0, false
		}
		return out, true
	default:
		return 0, false
	}
}

// quoteIdent wraps an identifier for PRAGMA's non-parameterizable table name slot.
// Table names can come straight from callers of Runner.GetTableSchema and
// GetTableStats, so embedded double quotes are doubled.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
