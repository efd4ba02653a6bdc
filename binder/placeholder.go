package binder

import "regexp"

// placeholderRe matches `{{name}}` tokens. spec.md §6 defines the external interface
// as allowing no whitespace inside the braces, so unlike the teacher's `@name`
// annotation regexes in rpc/parser.go (which tolerate internal whitespace), this one
// matches the literal `{{name}}` shape exactly.
var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)
