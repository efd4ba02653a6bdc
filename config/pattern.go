package config

import (
	"fmt"
	"regexp"
)

// Pattern matches a schema or table identifier. It is the `Pattern` sum type from
// spec.md §9: "Exact(string) | Regex(compiled) | All", compiled once at config load
// so that matching at query time is never allowed to fail or allocate a compiler.
type Pattern struct {
	kind  patternKind
	exact string
	re    *regexp.Regexp
}

type patternKind int

const (
	patternExact patternKind = iota
	patternRegex
	patternAll
)

// All matches any identifier; it is used to mean "no schema gate" per spec.md §4.2.
func All() Pattern {
	return Pattern{kind: patternAll}
}

// Exact matches an identifier by case-sensitive equality.
func Exact(s string) Pattern {
	return Pattern{kind: patternExact, exact: s}
}

// Regex compiles expr and returns a Pattern that matches by regexp.MatchString.
// Invalid expressions are rejected at config load, never at match time.
func Regex(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{kind: patternRegex, re: re}, nil
}

// MustRegex is Regex but panics on an invalid expression; intended for tests and
// static rule tables, never for user-supplied config at runtime.
func MustRegex(expr string) Pattern {
	p, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the pattern matches s.
func (p Pattern) Match(s string) bool {
	switch p.kind {
	case patternAll:
		return true
	case patternExact:
		return p.exact == s
	case patternRegex:
		return p.re != nil && p.re.MatchString(s)
	default:
		return false
	}
}

// IsAll reports whether the pattern is the catch-all wildcard.
func (p Pattern) IsAll() bool {
	return p.kind == patternAll
}
