package preflight

import "encoding/json"

// parseJSONString decodes s into a generic any (map/slice/scalar tree), used when a
// driver returns EXPLAIN's JSON output as a plain string column instead of a decoded
// value.
func parseJSONString(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
