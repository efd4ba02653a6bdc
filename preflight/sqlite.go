package preflight

import (
	"context"
	"strings"

	"github.com/lotusdb/lotus/dialect"
)

type sqliteAuthorizer struct{}

// Relations runs EXPLAIN QUERY PLAN on the statement and reads table names from the
// "detail" text of each plan row. It does not inspect the bytecode EXPLAIN's OpenRead
// opcodes, which would need a page-to-name lookup through sqlite_master; the plan
// detail names the table directly, and this is still a request to the engine rather
// than a parse of FROM/JOIN clauses.
func (sqliteAuthorizer) Relations(ctx context.Context, sess dialect.Session, sql string, paramTypes []string) ([]Relation, error) {
	args := make([]any, len(paramTypes))
	columns, rows, err := sess.Query(ctx, "EXPLAIN QUERY PLAN "+sql, args)
	if err != nil {
		return nil, err
	}

	detailIdx := -1
	for i, c := range columns {
		if strings.EqualFold(c, "detail") {
			detailIdx = i
			break
		}
	}
	if detailIdx < 0 {
		return nil, nil
	}

	var relations []Relation
	seen := map[string]bool{}
	for _, row := range rows {
		if detailIdx >= len(row) {
			continue
		}
		detail, _ := row[detailIdx].(string)
		if table, ok := extractTableFromDetail(detail); ok && !seen[table] {
			seen[table] = true
			relations = append(relations, Relation{Table: table})
		}
	}
	return relations, nil
}

// extractTableFromDetail pulls the table name out of query-plan detail text such as
// "SCAN users" or "SEARCH users USING INDEX idx_users_id (id=?)".
func extractTableFromDetail(detail string) (string, bool) {
	fields := strings.Fields(detail)
	for i, f := range fields {
		if (f == "SCAN" || f == "SEARCH") && i+1 < len(fields) {
			return fields[i+1], true
		}
	}
	return "", false
}
