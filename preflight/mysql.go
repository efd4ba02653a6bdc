package preflight

import (
	"context"

	"github.com/lotusdb/lotus/dialect"
)

type mysqlAuthorizer struct{}

// Relations runs EXPLAIN FORMAT=JSON on the bound statement and walks the resulting
// plan tree for "table_name" entries, per spec.md §4.6. MySQL's plan JSON doesn't
// qualify table names with a schema when the query runs against the session's current
// database, so Schema is left empty and the visibility engine's bare-table matching
// (config.BareTable) is expected to carry those entries.
func (mysqlAuthorizer) Relations(ctx context.Context, sess dialect.Session, sql string, paramTypes []string) ([]Relation, error) {
	args := make([]any, len(paramTypes))
	_, rows, err := sess.Query(ctx, "EXPLAIN FORMAT=JSON "+sql, args)
	if err != nil {
		return nil, err
	}

	var relations []Relation
	seen := map[string]bool{}
	for _, row := range rows {
		for _, cell := range row {
			walkMySQLPlan(cell, &relations, seen)
		}
	}
	return relations, nil
}

func walkMySQLPlan(node any, out *[]Relation, seen map[string]bool) {
	switch v := node.(type) {
	case []any:
		for _, elem := range v {
			walkMySQLPlan(elem, out, seen)
		}
	case map[string]any:
		if table, ok := v["table_name"].(string); ok {
			if !seen[table] {
				seen[table] = true
				*out = append(*out, Relation{Table: table})
			}
		}
		for _, child := range v {
			walkMySQLPlan(child, out, seen)
		}
	case string:
		// The mysql driver often returns the EXPLAIN JSON as a raw string column
		// rather than a decoded tree; parse it the same way as the native JSON path.
		if parsed, ok := parseJSONString(v); ok {
			walkMySQLPlan(parsed, out, seen)
		}
	case []byte:
		// database/sql hands text columns scanned into an `any` back as []byte.
		walkMySQLPlan(string(v), out, seen)
	}
}
