package binder

import (
	"regexp"
	"strings"

	"github.com/lotusdb/lotus/lotuserr"
)

// reQuotedPlaceholder matches a `{{v}}` token still wrapped in single quotes after
// Stage A/B have run; Stage C strips the quotes so it binds as a parameter. An
// optional trailing `::type` cast annotation (PostgreSQL) is left untouched because
// it sits outside the matched span.
var reQuotedPlaceholder = regexp.MustCompile(`'(\{\{[A-Za-z_][A-Za-z0-9_]*\}\})'`)

// reColumnComparison is the best-effort scan from spec.md §4.4's type-inference step:
// `col = {{v}}`, `col IN ({{v}})`, `col > {{v}}`, etc. It is heuristic by design —
// spec.md marks inference failure non-fatal, so a missed or wrong match only costs a
// fallback to the declared/default type, never a security decision.
var reColumnComparison = regexp.MustCompile(`(?i)([A-Za-z_][A-Za-z0-9_.]*)\s*(=|!=|<>|<=|>=|<|>|IN)\s*\(?\s*\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Bind runs the full C4 pipeline: Stage A (wildcard rewriting), Stage B (PostgreSQL
// interval rewriting), Stage C (safe quote stripping), Stage D (placeholder
// substitution), with type inference and casting folded into Stage D's value
// resolution. values supplies runtime-provided raw values by variable name; a
// variable missing from values falls back to its VariableSpec.Default, and if that is
// also nil, binding fails with MissingVariable.
func Bind(d dialectFeatures, sql string, vars []VariableSpec, values map[string]string, resolveType TypeResolver) (Bound, *lotuserr.Error) {
	specByName := make(map[string]VariableSpec, len(vars))
	for _, v := range vars {
		specByName[v.Name] = v
	}

	inferred := inferColumnTypes(sql, resolveType)

	transformed := rewriteWildcards(sql, d.Name())
	if d.Supports("interval_literal") {
		transformed = rewriteIntervals(transformed)
	}
	transformed = reQuotedPlaceholder.ReplaceAllString(transformed, "$1")

	var params []any
	index := map[string]int{}       // var name -> 0-based positional slot, for reuse
	varTypes := map[string]VarType{} // var name -> resolved type, so repeated refs cast consistently
	var firstErr *lotuserr.Error

	out := placeholderRe.ReplaceAllStringFunc(transformed, func(token string) string {
		if firstErr != nil {
			return token
		}
		name := placeholderRe.FindStringSubmatch(token)[1]

		if slot, ok := index[name]; ok {
			return d.Placeholder(slot, name, string(varTypes[name]))
		}

		spec, declared := specByName[name]
		raw, ok := values[name]
		if !ok {
			if spec.Default == nil {
				firstErr = lotuserr.MissingVariable(name)
				return token
			}
			raw = *spec.Default
		}

		varType := TypeText
		if declared {
			varType = spec.Type
		}
		if inferredType, ok := inferred[name]; ok {
			varType = mapInferredType(inferredType, varType)
		}

		value, castErr := Cast(varType, raw, d.Name(), spec.ElementType)
		if castErr != nil {
			castErr.Name = name
			firstErr = castErr
			return token
		}

		slot := len(params)
		params = append(params, value)
		index[name] = slot
		varTypes[name] = varType
		return d.Placeholder(slot, name, string(varType))
	})

	if firstErr != nil {
		return Bound{}, firstErr
	}

	return Bound{SQL: out, Params: params}, nil
}

// inferColumnTypes scans sql for `col <op> {{v}}`-shaped comparisons and asks
// resolveType for each candidate column, returning a var-name -> dialect-type map for
// every successful lookup.
func inferColumnTypes(sql string, resolveType TypeResolver) map[string]string {
	result := map[string]string{}
	if resolveType == nil {
		return result
	}
	for _, m := range reColumnComparison.FindAllStringSubmatch(sql, -1) {
		column, varName := m[1], m[3]
		if idx := strings.LastIndexByte(column, '.'); idx >= 0 {
			column = column[idx+1:]
		}
		if t, ok := resolveType(column); ok {
			result[varName] = t
		}
	}
	return result
}

// mapInferredType translates a schema-cache-reported dialect type name (e.g.
// "timestamp", "integer", "boolean") to the nearest VarType, falling back to
// fallback when the dialect type isn't recognized.
func mapInferredType(dialectType string, fallback VarType) VarType {
	switch strings.ToLower(dialectType) {
	case "uuid":
		return TypeUUID
	case "integer", "bigint", "smallint", "int", "int4", "int8":
		return TypeInteger
	case "numeric", "decimal", "real", "double precision", "float", "double":
		return TypeNumber
	case "boolean", "bool", "tinyint(1)":
		return TypeBoolean
	case "date":
		return TypeDate
	case "time", "time without time zone":
		return TypeTime
	case "timestamp", "timestamp without time zone", "timestamptz", "datetime":
		return TypeDateTime
	case "json", "jsonb":
		return TypeJSON
	default:
		return fallback
	}
}
