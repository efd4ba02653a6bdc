package runner

import "time"

// sqlTypesOf returns a best-effort SQL type name for each bound parameter, used only
// to declare PREPARE's parameter list on PostgreSQL's preflight path (spec.md §4.6).
// A wrong guess never affects authorization correctness — EXPLAIN still reports the
// real relations touched — it can at worst make PREPARE itself fail, in which case
// the preflight check returns that error and the query fails; there is no retry with
// other parameter types.
func sqlTypesOf(params []any) []string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = sqlTypeOf(p)
	}
	return types
}

func sqlTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "unknown"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "bigint"
	case float32, float64:
		return "double precision"
	case time.Time:
		return "timestamptz"
	case string:
		return "text"
	default:
		return "unknown"
	}
}
