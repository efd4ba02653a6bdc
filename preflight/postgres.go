package preflight

import (
	"context"
	"fmt"

	"github.com/lotusdb/lotus/dialect"
)

type postgresAuthorizer struct{}

// Relations asks the Postgres planner which tables a statement touches instead of
// parsing the SQL itself. It first PREPAREs the statement — a syntax error here is
// surfaced to the caller unchanged, per spec.md §4.6 ("saves the user from separate
// validation") — then runs EXPLAIN (FORMAT JSON) and walks the plan tree collecting
// every "Relation Name"/"Schema" pair the planner reports.
func (postgresAuthorizer) Relations(ctx context.Context, sess dialect.Session, sql string, paramTypes []string) ([]Relation, error) {
	prepareSQL := fmt.Sprintf("PREPARE _lotus_pf(%s) AS %s", joinTypes(paramTypes), sql)
	if _, _, err := sess.Query(ctx, prepareSQL, nil); err != nil {
		return nil, err
	}
	defer func() { _, _, _ = sess.Query(ctx, "DEALLOCATE _lotus_pf", nil) }()

	execArgs := make([]string, len(paramTypes))
	for i := range execArgs {
		execArgs[i] = fmt.Sprintf("$%d", i+1)
	}
	explainSQL := fmt.Sprintf("EXPLAIN (FORMAT JSON) EXECUTE _lotus_pf(%s)", joinArgs(execArgs))

	args := make([]any, len(paramTypes))
	_, rows, err := sess.Query(ctx, explainSQL, args)
	if err != nil {
		return nil, err
	}

	var relations []Relation
	seen := map[string]bool{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		walkPlan(row[0], &relations, seen)
	}
	return relations, nil
}

func walkPlan(node any, out *[]Relation, seen map[string]bool) {
	switch v := node.(type) {
	case []any:
		for _, elem := range v {
			walkPlan(elem, out, seen)
		}
	case map[string]any:
		if rel, ok := v["Relation Name"].(string); ok {
			schema, _ := v["Schema"].(string)
			key := schema + "." + rel
			if !seen[key] {
				seen[key] = true
				*out = append(*out, Relation{Schema: schema, Table: rel})
			}
		}
		for k, child := range v {
			if k == "Relation Name" || k == "Schema" {
				continue
			}
			walkPlan(child, out, seen)
		}
	}
}

func joinTypes(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		if t == "" {
			t = "text"
		}
		out += t
	}
	return out
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
