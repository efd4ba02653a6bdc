package binder

import (
	"regexp"

	"github.com/lotusdb/lotus/config"
)

var (
	reWildcardBoth   = regexp.MustCompile(`'%(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})%'`)
	reWildcardPrefix = regexp.MustCompile(`'%(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})'`) // '%{{v}}' (suffix match)
	reWildcardSuffix = regexp.MustCompile(`'(\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\})%'`) // '{{v}}%' (prefix match)
)

// rewriteWildcards implements Stage A from spec.md §4.4: literal `'%{{v}}%'`,
// `'%{{v}}'`, and `'{{v}}%'` tokens become dialect-appropriate string concatenation so
// the variable can still bind as a parameter while LIKE's wildcard characters stay
// outside user-controlled input. Matching is regex-bounded to the exact quoted token,
// so a placeholder inside any other literal is left untouched.
func rewriteWildcards(sql string, dialectName config.Dialect) string {
	sql = reWildcardBoth.ReplaceAllStringFunc(sql, func(m string) string {
		name := reWildcardBoth.FindStringSubmatch(m)[1]
		return concatBoth(dialectName, name)
	})
	sql = reWildcardPrefix.ReplaceAllStringFunc(sql, func(m string) string {
		name := reWildcardPrefix.FindStringSubmatch(m)[1]
		return concatPrefix(dialectName, name)
	})
	sql = reWildcardSuffix.ReplaceAllStringFunc(sql, func(m string) string {
		name := reWildcardSuffix.FindStringSubmatch(m)[1]
		return concatSuffix(dialectName, name)
	})
	return sql
}

func concatBoth(d config.Dialect, placeholder string) string {
	if d == config.DialectMySQL {
		return "CONCAT('%', " + placeholder + ", '%')"
	}
	return "'%' || " + placeholder + " || '%'"
}

func concatPrefix(d config.Dialect, placeholder string) string {
	if d == config.DialectMySQL {
		return "CONCAT('%', " + placeholder + ")"
	}
	return "'%' || " + placeholder
}

func concatSuffix(d config.Dialect, placeholder string) string {
	if d == config.DialectMySQL {
		return "CONCAT(" + placeholder + ", '%')"
	}
	return placeholder + " || '%'"
}
