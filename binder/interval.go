package binder

import "regexp"

var intervalUnits = map[string]bool{
	"days": true, "hours": true, "minutes": true, "seconds": true,
	"months": true, "years": true, "weeks": true,
}

var (
	// INTERVAL '{{v}} days' — value + fixed, known unit keyword.
	reIntervalKnownUnit = regexp.MustCompile(`(?i)INTERVAL\s+'(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})\s+([A-Za-z]+)'`)
	// INTERVAL 'N {{unit}}' — fixed number, variable unit.
	reIntervalFixedNumber = regexp.MustCompile(`(?i)INTERVAL\s+'(\d+)\s+(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})'`)
	// INTERVAL '{{a}} {{b}}' — both value and unit are variables.
	reIntervalBothVars = regexp.MustCompile(`(?i)INTERVAL\s+'(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})\s+(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})'`)
	// INTERVAL {{v}} — bare, unquoted.
	reIntervalBare = regexp.MustCompile(`(?i)INTERVAL\s+(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})`)
)

// rewriteIntervals implements Stage B from spec.md §4.4, PostgreSQL-only. Applied in
// an order where more specific patterns run first so a generic bare-variable match
// never steals text a more specific quoted form should have consumed.
func rewriteIntervals(sql string) string {
	sql = reIntervalKnownUnit.ReplaceAllStringFunc(sql, func(m string) string {
		groups := reIntervalKnownUnit.FindStringSubmatch(m)
		value, unit := groups[1], groups[2]
		if !intervalUnits[toLowerASCII(unit)] {
			return m // not a recognized unit keyword; leave the text unchanged
		}
		return "make_interval(" + toLowerASCII(unit) + " => (" + value + ")::integer)"
	})

	sql = reIntervalFixedNumber.ReplaceAllStringFunc(sql, func(m string) string {
		groups := reIntervalFixedNumber.FindStringSubmatch(m)
		number, unit := groups[1], groups[2]
		return "(('" + number + " ' || " + unit + ")::interval)"
	})

	sql = reIntervalBothVars.ReplaceAllStringFunc(sql, func(m string) string {
		groups := reIntervalBothVars.FindStringSubmatch(m)
		a, b := groups[1], groups[2]
		return "((CAST(" + a + " AS text) || ' ' || " + b + ")::interval)"
	})

	sql = reIntervalBare.ReplaceAllStringFunc(sql, func(m string) string {
		groups := reIntervalBare.FindStringSubmatch(m)
		value := groups[1]
		return "(" + value + "::text)::interval"
	})

	return sql
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
