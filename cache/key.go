package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// lotusVersion is folded into every cache key so upgrading the transform/planner
// logic invalidates previously cached results without an explicit flush.
const lotusVersion = "1"

// Key derives the content-addressed cache key from spec.md §4.8:
// sha256(backend || \x01 || searchPath || \x01 || lotusVersion || \x01 || sql || \x01 || canonical(params)),
// rendered as "result:<backend>:<hex>".
func Key(backend, searchPath, sql string, params any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x01%s\x01%s\x01%s\x01%s", backend, searchPath, lotusVersion, sql, Canonical(params))
	return "result:" + backend + ":" + hex.EncodeToString(h.Sum(nil))
}

// Canonical renders params into a stable string so equivalent calls hash identically.
// A list and a map with the same values intentionally hash differently (spec.md §4.8
// is explicit about this) — a list is order-sensitive positional params, a map is
// named params, and conflating them would let callers accidentally collide
// unrelated queries.
func Canonical(params any) string {
	switch v := params.(type) {
	case nil:
		return "null"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]canonicalPair, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, canonicalPair{Key: k, Value: v[k]})
		}
		b, _ := json.Marshal(ordered)
		return "map:" + string(b)
	default:
		b, _ := json.Marshal(v)
		return "list:" + string(b)
	}
}

type canonicalPair struct {
	Key   string `json:"k"`
	Value any    `json:"v"`
}
