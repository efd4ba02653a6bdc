package denylist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/lotuserr"
)

func TestValidateAcceptsSelect(t *testing.T) {
	assert.Nil(t, Validate("SELECT id FROM users WHERE id = $1"))
}

func TestValidateAcceptsLeadingKeywords(t *testing.T) {
	for _, sql := range []string{
		"WITH x AS (SELECT 1) SELECT * FROM x",
		"VALUES (1), (2)",
		"EXPLAIN SELECT 1",
		"SHOW search_path",
	} {
		assert.Nil(t, Validate(sql), sql)
	}
}

func TestValidateRejectsNonReadOnlyShape(t *testing.T) {
	err := Validate("UPDATE users SET name = 'x'")
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindReadOnlyViolation, err.Kind)
}

func TestValidateRejectsWriteKeywordEvenInsideLiteral(t *testing.T) {
	// Deliberate: spec says this rejects even though "DROP TABLE" never executes.
	err := Validate("SELECT 'please DROP TABLE users' AS msg")
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindReadOnlyViolation, err.Kind)
}

func TestValidateAllowsTrailingSemicolon(t *testing.T) {
	assert.Nil(t, Validate("SELECT 1;"))
	assert.Nil(t, Validate("SELECT 1;   -- trailing comment"))
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	err := Validate("SELECT 1; SELECT 2")
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindMultipleStatements, err.Kind)
}

func TestValidateIgnoresSemicolonInsideStringLiteral(t *testing.T) {
	assert.Nil(t, Validate(`SELECT 'a;b' AS x`))
}

func TestValidateIgnoresSemicolonInsideDollarQuote(t *testing.T) {
	assert.Nil(t, Validate(`SELECT $$a;b$$ AS x`))
	assert.Nil(t, Validate(`SELECT $tag$a;b$tag$ AS x`))
}

func TestValidateIgnoresSemicolonInsideComment(t *testing.T) {
	assert.Nil(t, Validate("SELECT 1 -- a;b\nFROM dual"))
	assert.Nil(t, Validate("SELECT 1 /* a;b */ FROM dual"))
}

func TestValidateHandlesEscapedQuotes(t *testing.T) {
	assert.Nil(t, Validate(`SELECT 'it''s fine; still one stmt' AS x`))
}

func TestValidateRejectsLeadingCommentDisguisedWrite(t *testing.T) {
	err := Validate("-- comment\nDELETE FROM users")
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindReadOnlyViolation, err.Kind)
}
