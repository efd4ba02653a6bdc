package config

import "testing"

func TestPatternMatch(t *testing.T) {
	cases := []struct {
		name string
		p    Pattern
		in   string
		want bool
	}{
		{"all matches anything", All(), "whatever", true},
		{"exact matches equal", Exact("public"), "public", true},
		{"exact rejects different", Exact("public"), "private", false},
		{"regex matches prefix", MustRegex("^pg_temp"), "pg_temp_1", true},
		{"regex rejects non-match", MustRegex("^pg_temp"), "public", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.Match(tc.in); got != tc.want {
				t.Errorf("Match(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRegexRejectsInvalidExpression(t *testing.T) {
	if _, err := Regex("["); err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func TestIsAll(t *testing.T) {
	if !All().IsAll() {
		t.Fatal("All() should report IsAll")
	}
	if Exact("x").IsAll() {
		t.Fatal("Exact should not report IsAll")
	}
}
