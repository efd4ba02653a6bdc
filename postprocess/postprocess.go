// Package postprocess implements C9: column policy application (allow/omit/mask/
// error) over a raw result set, using the relations C6 stashed during preflight to
// resolve each column's real (schema, table) for policy lookup.
package postprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/lotuserr"
	"github.com/lotusdb/lotus/preflight"
	"github.com/lotusdb/lotus/visibility"
)

// Result is the post-processed, policy-applied query result returned to the caller.
type Result struct {
	Columns []string
	Rows    [][]any
}

// ColumnOrigin maps a result column's position to the (schema, table) it was
// selected from, when known. Lotus does not parse SELECT lists, so origin is best
// effort: populated only when there is exactly one touched relation (the overwhelming
// common case for single-table queries); ambiguous multi-join origins fall back to
// applying column rules scoped to bare column name only (Scope{Column: name}).
type ColumnOrigin struct {
	Schema string
	Table  string
	Known  bool
}

// Apply walks columns left to right, resolves each column's effective policy via
// engine, and applies it: allow passes through, omit drops the column entirely,
// mask(...) transforms every row's value, and error aborts before any row is
// returned. origins must have the same length as columns.
func Apply(engine *visibility.Engine, columns []string, rows [][]any, origins []ColumnOrigin) (*Result, *lotuserr.Error) {
	type plan struct {
		keep   bool
		policy config.ColumnPolicy
	}

	plans := make([]plan, len(columns))
	for i, col := range columns {
		origin := origins[i]
		policy := engine.ColumnPolicy(origin.Schema, origin.Table, col)
		if policy.Action == config.ActionError {
			return nil, lotuserr.BlockedColumn(col)
		}
		plans[i] = plan{keep: policy.Action != config.ActionOmit, policy: policy}
	}

	outColumns := make([]string, 0, len(columns))
	for i, col := range columns {
		if plans[i].keep {
			outColumns = append(outColumns, col)
		}
	}

	outRows := make([][]any, len(rows))
	for r, row := range rows {
		outRow := make([]any, 0, len(outColumns))
		for i, v := range row {
			if !plans[i].keep {
				continue
			}
			if plans[i].policy.Action == config.ActionMask {
				v = mask(v, plans[i].policy.Mask)
			}
			outRow = append(outRow, Normalize(v))
		}
		outRows[r] = outRow
	}

	return &Result{Columns: outColumns, Rows: outRows}, nil
}

// mask applies one masking strategy to a single value, per spec.md §4.9.
func mask(v any, strategy config.MaskStrategy) any {
	if v == nil {
		return nil
	}
	switch strategy.Kind {
	case config.MaskNull:
		return nil
	case config.MaskFixed:
		return strategy.FixedValue
	case config.MaskSHA256:
		sum := sha256.Sum256([]byte(stringify(v)))
		return hex.EncodeToString(sum[:])
	case config.MaskPartial:
		return maskPartial(stringify(v), strategy)
	default:
		return v
	}
}

func maskPartial(s string, strategy config.MaskStrategy) string {
	replacement := strategy.Replacement
	if replacement == "" {
		replacement = "*"
	}
	keepFirst := strategy.KeepFirst
	keepLast := strategy.KeepLast
	if keepFirst+keepLast >= len(s) {
		return s
	}
	middle := len(s) - keepFirst - keepLast
	return s[:keepFirst] + strings.Repeat(replacement, middle) + s[len(s)-keepLast:]
}

func stringify(v any) string {
	normalized := Normalize(v)
	if s, ok := normalized.(string); ok {
		return s
	}
	return fmt.Sprint(normalized)
}

// ResolveOrigins builds the ColumnOrigin slice for a result set given the relations
// preflight discovered. When exactly one relation was touched, every column is
// attributed to it; otherwise origin is left unknown and column rules only match on
// bare column name.
func ResolveOrigins(columns []string, touched []preflight.Relation) []ColumnOrigin {
	origins := make([]ColumnOrigin, len(columns))
	if len(touched) == 1 {
		for i := range origins {
			origins[i] = ColumnOrigin{Schema: touched[0].Schema, Table: touched[0].Table, Known: true}
		}
	}
	return origins
}
